// internal/jobs/review-listing/config.go
package reviewlisting

import "time"

type Config struct {
	GenAIBaseURL string
	APIKey       string
	MaxRetries   int
	Timeout      time.Duration
}

func LoadConfig() *Config {
	return &Config{
		MaxRetries: 2,
		Timeout:    30 * time.Second,
	}
}
