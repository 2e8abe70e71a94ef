// Package advisor invokes the external promotion scoring function. The result
// is purely advisory: any failure yields nil, logged, never an error.
package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"autoparts-relay/internal/common/errors"
	"autoparts-relay/internal/common/logger"
	"autoparts-relay/internal/models"
)

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type Gateway struct {
	config *Config
	client *http.Client
	logger logger.Logger
}

func NewGateway(config *Config, log logger.Logger) *Gateway {
	return &Gateway{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: log.WithFields(map[string]interface{}{"component": "advisor"}),
	}
}

type evaluateRequest struct {
	Action    string `json:"action"`
	ListingID string `json:"listing_id"`
}

type evaluateResponse struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// Evaluate asks the scoring endpoint for a promotion recommendation. On any
// error, network or remote-reported, it logs and returns nil. No retry: the
// caller decides whether and how to act on a non-nil suggestion.
func (g *Gateway) Evaluate(ctx context.Context, subjectID string) *models.PromotionSuggestion {
	suggestion, err := g.evaluate(ctx, subjectID)
	if err != nil {
		g.logger.Warn("promotion evaluation failed", map[string]interface{}{
			"subjectId": subjectID,
			"error":     err.Error(),
		})
		return nil
	}
	return suggestion
}

func (g *Gateway) evaluate(ctx context.Context, subjectID string) (*models.PromotionSuggestion, error) {
	body, _ := json.Marshal(evaluateRequest{
		Action:    "evaluate",
		ListingID: subjectID,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.config.BaseURL+"/functions/promotion-advisor", bytes.NewBuffer(body))
	if err != nil {
		return nil, errors.NewAdvisorCallFailedError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.config.APIKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, errors.NewRemoteUnavailableError("promotion-advisor", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewAdvisorCallFailedError(err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewRemoteRejectedError("promotion-advisor",
			fmt.Sprintf("status %d: %s", resp.StatusCode, string(respBody)))
	}

	var parsed evaluateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, errors.NewAdvisorCallFailedError(err)
	}
	if !parsed.Success {
		return nil, errors.NewRemoteRejectedError("promotion-advisor", parsed.Error)
	}

	return &models.PromotionSuggestion{
		SubjectID:      subjectID,
		Recommendation: parsed.Data,
	}, nil
}
