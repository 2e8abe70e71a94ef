// internal/jobs/expire-subscriptions/config.go
package expiresubscriptions

import "time"

type Config struct {
	RetentionDays int
	Timeout       time.Duration
}

func LoadConfig() *Config {
	return &Config{
		RetentionDays: 30,
		Timeout:       30 * time.Second,
	}
}
