// internal/advisor/gateway_test.go
package advisor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"autoparts-relay/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGateway(baseURL string) *Gateway {
	return NewGateway(&Config{
		BaseURL: baseURL,
		APIKey:  "test-key",
		Timeout: 2 * time.Second,
	}, logger.Nop())
}

func TestEvaluate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "evaluate", req["action"])
		assert.Equal(t, "listing-1", req["listing_id"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"promote": true,
				"score":   0.87,
			},
		})
	}))
	defer server.Close()

	g := newTestGateway(server.URL)
	suggestion := g.Evaluate(context.Background(), "listing-1")

	require.NotNil(t, suggestion)
	assert.Equal(t, "listing-1", suggestion.SubjectID)
	assert.Equal(t, true, suggestion.Recommendation["promote"])
}

func TestEvaluate_RemoteReportedError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   "listing not eligible",
		})
	}))
	defer server.Close()

	g := newTestGateway(server.URL)
	assert.Nil(t, g.Evaluate(context.Background(), "listing-1"))
}

func TestEvaluate_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	g := newTestGateway(server.URL)
	assert.Nil(t, g.Evaluate(context.Background(), "listing-1"))
}

func TestEvaluate_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	g := newTestGateway(server.URL)
	assert.Nil(t, g.Evaluate(context.Background(), "listing-1"))
}

func TestEvaluate_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))
	defer server.Close()

	g := newTestGateway(server.URL)
	assert.Nil(t, g.Evaluate(context.Background(), "listing-1"))
}
