// internal/jobs/review-listing/handler.go
package reviewlisting

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"autoparts-relay/internal/common/errors"
	"autoparts-relay/internal/common/logger"
)

const FunctionName = "review-listing"

// Handler asks the content review service for a moderation verdict on a
// listing. The remote call retries with exponential backoff; a context
// deadline surfaces as a review timeout so callers can distinguish a slow
// service from a rejection.
type Handler struct {
	config *Config
	db     *sql.DB
	client *http.Client
	logger logger.Logger
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		db:     db,
		// No client timeout, the context deadline governs the call.
		client: &http.Client{},
		logger: log.WithFields(map[string]interface{}{"function": FunctionName}),
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.ListingID == "" {
		return nil, errors.NewInvalidPayloadError("listingId is required")
	}

	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	var title, description, category string
	var price float64
	err := h.db.QueryRowContext(ctx,
		`SELECT title, description, category, price FROM listings WHERE id = $1`,
		input.ListingID,
	).Scan(&title, &description, &category, &price)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("listing", input.ListingID)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("load listing", err)
	}

	requestBody := map[string]interface{}{
		"action": "review",
		"listing": map[string]interface{}{
			"id":          input.ListingID,
			"title":       title,
			"description": description,
			"category":    category,
			"price":       price,
		},
	}
	body, _ := json.Marshal(requestBody)

	resp, err := h.postWithRetry(ctx, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var apiResponse struct {
		Verdict    string   `json:"verdict"`
		Flags      []string `json:"flags"`
		Confidence float64  `json:"confidence"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, errors.NewReviewCallFailedError(fmt.Errorf("decode response: %w", err))
	}

	// An empty verdict means the service could not decide; flag rather than
	// silently approve.
	if apiResponse.Verdict == "" {
		apiResponse.Verdict = VerdictFlag
		apiResponse.Confidence = 0
	}

	h.logger.Info("review verdict received", map[string]interface{}{
		"listingId":  input.ListingID,
		"verdict":    apiResponse.Verdict,
		"confidence": apiResponse.Confidence,
	})

	return &Output{
		ListingID:  input.ListingID,
		Verdict:    apiResponse.Verdict,
		Flags:      apiResponse.Flags,
		Confidence: apiResponse.Confidence,
		ReviewedAt: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func (h *Handler) postWithRetry(ctx context.Context, body []byte) (*http.Response, error) {
	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= h.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, errors.NewReviewTimeoutError()
			}
		}

		req, err := http.NewRequestWithContext(ctx, "POST", h.config.GenAIBaseURL+"/api/ai/review", bytes.NewBuffer(body))
		if err != nil {
			return nil, errors.NewReviewCallFailedError(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if h.config.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+h.config.APIKey)
		}

		resp, lastErr = h.client.Do(req)
		if lastErr == nil {
			if resp.StatusCode == http.StatusOK {
				return resp, nil
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			resp = nil
		}

		if ctx.Err() != nil {
			return nil, errors.NewReviewTimeoutError()
		}
	}

	if ctx.Err() == context.DeadlineExceeded {
		return nil, errors.NewReviewTimeoutError()
	}
	return nil, errors.NewReviewCallFailedError(lastErr)
}
