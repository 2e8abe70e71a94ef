// internal/server/router_test.go
package server

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"autoparts-relay/internal/advisor"
	"autoparts-relay/internal/analytics"
	"autoparts-relay/internal/common/config"
	"autoparts-relay/internal/common/logger"
	"autoparts-relay/internal/common/observability"
	dispatchnotification "autoparts-relay/internal/jobs/dispatch-notification"
	expiresubscriptions "autoparts-relay/internal/jobs/expire-subscriptions"
	publishposts "autoparts-relay/internal/jobs/publish-posts"
	reviewlisting "autoparts-relay/internal/jobs/review-listing"
	unfeaturelistings "autoparts-relay/internal/jobs/unfeature-listings"
	"autoparts-relay/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSES struct{}

func (stubSES) SendEmail(ctx context.Context, params *ses.SendEmailInput) (*ses.SendEmailOutput, error) {
	return &ses.SendEmailOutput{}, nil
}

type stubSNS struct{}

func (stubSNS) Publish(ctx context.Context, params *sns.PublishInput) (*sns.PublishOutput, error) {
	return &sns.PublishOutput{}, nil
}

type stubFeed struct{}

func (stubFeed) Publish(ctx context.Context, event models.ChangeEvent) error { return nil }

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.Name = "autoparts-relay"
	cfg.Server.CORS.AllowedOrigins = []string{"https://shop.autoparts.example"}
	cfg.Jobs = map[string]config.JobConfig{
		"expire-subscriptions": {Enabled: true, Timeout: 5000},
		"unfeature-listings":   {Enabled: true, Timeout: 5000},
		"publish-posts":        {Enabled: true, Timeout: 5000},
	}
	return cfg
}

type routerFixture struct {
	router *gin.Engine
	mock   sqlmock.Sqlmock
}

func setupRouter(t *testing.T, cfg *config.Config, advisorURL string) *routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := logger.Nop()
	timeout := 5 * time.Second

	handlers := &Handlers{
		ExpireSubscriptions: expiresubscriptions.NewHandler(
			&expiresubscriptions.Config{RetentionDays: 30, Timeout: timeout}, db, log),
		UnfeatureListings: unfeaturelistings.NewHandler(
			&unfeaturelistings.Config{Timeout: timeout}, db, log),
		PublishPosts: publishposts.NewHandler(
			&publishposts.Config{Timeout: timeout}, db, log),
		DispatchNotification: dispatchnotification.NewHandler(
			&dispatchnotification.Config{EmailEnabled: true, FromEmail: "noreply@autoparts.example", Timeout: timeout},
			db, log, stubSES{}, stubSNS{}, stubFeed{}),
		ReviewListing: reviewlisting.NewHandler(
			&reviewlisting.Config{GenAIBaseURL: "http://unused", MaxRetries: 0, Timeout: timeout}, db, log),
		Advisor: advisor.NewGateway(
			&advisor.Config{BaseURL: advisorURL, Timeout: timeout}, log),
		Analytics: analytics.NewRecorder(db, nil, log),
	}

	srv := NewServer(cfg, log, &observability.Observability{}, handlers)
	return &routerFixture{router: srv.Router(), mock: mock}
}

func doRequest(router *gin.Engine, method, path string, body []byte) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Origin", "https://shop.autoparts.example")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	f := setupRouter(t, testConfig(), "http://unused")

	w := doRequest(f.router, "GET", "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "autoparts-relay")
}

func TestMetricsExposed(t *testing.T) {
	f := setupRouter(t, testConfig(), "http://unused")

	w := doRequest(f.router, "GET", "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestJobEndpoint_SuccessShape(t *testing.T) {
	f := setupRouter(t, testConfig(), "http://unused")
	f.mock.ExpectExec("UPDATE subscriptions").
		WithArgs(30).
		WillReturnResult(sqlmock.NewResult(0, 4))

	w := doRequest(f.router, "POST", "/functions/expire-subscriptions", []byte(`{}`))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Message string                 `json:"message"`
		Counts  map[string]interface{} `json:"counts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Message)
	assert.EqualValues(t, 4, resp.Counts["expired"])
}

func TestJobEndpoint_ErrorShape(t *testing.T) {
	f := setupRouter(t, testConfig(), "http://unused")
	f.mock.ExpectExec("UPDATE subscriptions").
		WillReturnError(sql.ErrConnDone)

	w := doRequest(f.router, "POST", "/functions/expire-subscriptions", []byte(`{}`))
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp, "error")
	assert.NotContains(t, resp, "success")
}

func TestJobEndpoint_DisabledJobShortCircuits(t *testing.T) {
	cfg := testConfig()
	cfg.Jobs["publish-posts"] = config.JobConfig{Enabled: false}
	f := setupRouter(t, cfg, "http://unused")

	w := doRequest(f.router, "POST", "/functions/publish-posts", []byte(`{}`))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "disabled")
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCORSHeadersOnSuccessAndError(t *testing.T) {
	f := setupRouter(t, testConfig(), "http://unused")
	f.mock.ExpectExec("UPDATE subscriptions").
		WillReturnResult(sqlmock.NewResult(0, 0))
	f.mock.ExpectExec("UPDATE subscriptions").
		WillReturnError(sql.ErrConnDone)

	success := doRequest(f.router, "POST", "/functions/expire-subscriptions", []byte(`{}`))
	failure := doRequest(f.router, "POST", "/functions/expire-subscriptions", []byte(`{}`))

	assert.Equal(t, "https://shop.autoparts.example", success.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "https://shop.autoparts.example", failure.Header().Get("Access-Control-Allow-Origin"))
}

func TestDispatchNotification_InvalidPayload(t *testing.T) {
	f := setupRouter(t, testConfig(), "http://unused")

	w := doRequest(f.router, "POST", "/functions/dispatch-notification", []byte(`{"type":"new_request"}`))
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
}

func TestDispatchNotification_Success(t *testing.T) {
	f := setupRouter(t, testConfig(), "http://unused")
	f.mock.ExpectQuery("SELECT email, phone FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"email", "phone"}).
			AddRow("seller@example.com", ""))
	f.mock.ExpectExec("INSERT INTO notifications").
		WillReturnResult(sqlmock.NewResult(0, 1))

	body := []byte(`{"recipientId":"seller-001","type":"new_request","requestId":"req-1"}`)
	w := doRequest(f.router, "POST", "/functions/dispatch-notification", body)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool                   `json:"success"`
		Data    map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "sent", resp.Data["status"])
}

func TestPromotionAdvisor_ProxiesSuggestion(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    map[string]interface{}{"listing_id": "lst-1", "recommendation": "feature"},
		})
	}))
	defer remote.Close()

	f := setupRouter(t, testConfig(), remote.URL)

	w := doRequest(f.router, "POST", "/functions/promotion-advisor", []byte(`{"listingId":"lst-1"}`))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool                   `json:"success"`
		Data    map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Data)
	assert.Equal(t, "lst-1", resp.Data["subjectId"])
	recommendation, _ := resp.Data["recommendation"].(map[string]interface{})
	require.NotNil(t, recommendation)
	assert.Equal(t, "feature", recommendation["recommendation"])
}

func TestPromotionAdvisor_RemoteDownStillSucceeds(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	remote.Close()

	f := setupRouter(t, testConfig(), remote.URL)

	w := doRequest(f.router, "POST", "/functions/promotion-advisor", []byte(`{"listingId":"lst-1"}`))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool        `json:"success"`
		Data    interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Data)
}

func TestAnalyticsEvent_Accepted(t *testing.T) {
	f := setupRouter(t, testConfig(), "http://unused")
	f.mock.ExpectExec("INSERT INTO listing_events").
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectExec("UPDATE listings").
		WillReturnResult(sqlmock.NewResult(0, 1))

	body := []byte(`{"kind":"view","subjectId":"lst-1","actorId":"user-9"}`)
	w := doRequest(f.router, "POST", "/analytics/events", body)
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestAnalyticsEvent_StorageFailureStillAccepted(t *testing.T) {
	f := setupRouter(t, testConfig(), "http://unused")
	f.mock.ExpectExec("INSERT INTO listing_events").
		WillReturnError(sql.ErrConnDone)
	f.mock.ExpectExec("UPDATE listings").
		WillReturnError(sql.ErrConnDone)

	body := []byte(`{"kind":"click","subjectId":"lst-1"}`)
	w := doRequest(f.router, "POST", "/analytics/events", body)
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestAnalyticsEvent_InvalidKindRejected(t *testing.T) {
	f := setupRouter(t, testConfig(), "http://unused")

	body := []byte(`{"kind":"hover","subjectId":"lst-1"}`)
	w := doRequest(f.router, "POST", "/analytics/events", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestUnknownRouteNotFound(t *testing.T) {
	f := setupRouter(t, testConfig(), "http://unused")

	w := doRequest(f.router, "POST", "/functions/unknown", []byte(`{}`))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
