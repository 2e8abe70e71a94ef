// internal/server/router.go
package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"autoparts-relay/internal/advisor"
	"autoparts-relay/internal/analytics"
	"autoparts-relay/internal/common/config"
	"autoparts-relay/internal/common/errors"
	"autoparts-relay/internal/common/logger"
	"autoparts-relay/internal/common/observability"
	"autoparts-relay/internal/common/validation"
	dispatchnotification "autoparts-relay/internal/jobs/dispatch-notification"
	expiresubscriptions "autoparts-relay/internal/jobs/expire-subscriptions"
	publishposts "autoparts-relay/internal/jobs/publish-posts"
	reviewlisting "autoparts-relay/internal/jobs/review-listing"
	unfeaturelistings "autoparts-relay/internal/jobs/unfeature-listings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers bundles the function handlers the router dispatches to.
type Handlers struct {
	ExpireSubscriptions  *expiresubscriptions.Handler
	UnfeatureListings    *unfeaturelistings.Handler
	PublishPosts         *publishposts.Handler
	DispatchNotification *dispatchnotification.Handler
	ReviewListing        *reviewlisting.Handler
	Advisor              *advisor.Gateway
	Analytics            *analytics.Recorder
}

type Server struct {
	config    *config.Config
	logger    logger.Logger
	responder *errors.Responder
	obs       *observability.Observability
	handlers  *Handlers
}

func NewServer(cfg *config.Config, log logger.Logger, obs *observability.Observability, handlers *Handlers) *Server {
	return &Server{
		config:    cfg,
		logger:    log.WithFields(map[string]interface{}{"component": "server"}),
		responder: errors.NewResponder(log),
		obs:       obs,
		handlers:  handlers,
	}
}

// Router builds the gin engine with all function routes mounted. CORS headers
// apply to every response, error responses included, so browser clients can
// read failure bodies.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.requestLogger())

	corsConfig := cors.Config{
		AllowOrigins:     s.config.Server.CORS.AllowedOrigins,
		AllowMethods:     s.config.Server.CORS.AllowedMethods,
		AllowHeaders:     s.config.Server.CORS.AllowedHeaders,
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowOrigins = []string{"*"}
		corsConfig.AllowCredentials = false
	}
	if len(corsConfig.AllowMethods) == 0 {
		corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(corsConfig.AllowHeaders) == 0 {
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": s.config.App.Name})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	functions := router.Group("/functions")
	{
		functions.POST("/expire-subscriptions", s.runJob("expire-subscriptions"))
		functions.POST("/unfeature-listings", s.runJob("unfeature-listings"))
		functions.POST("/publish-posts", s.runJob("publish-posts"))
		functions.POST("/dispatch-notification", s.dispatchNotification)
		functions.POST("/review-listing", s.reviewListing)
		functions.POST("/promotion-advisor", s.promotionAdvisor)
	}

	router.POST("/analytics/events", s.recordAnalyticsEvent)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found", "path": c.Request.URL.Path})
	})

	return router
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request handled", map[string]interface{}{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
	}
}

// runJob dispatches a scheduled maintenance sweep. Jobs report `{message,
// counts}` on success and a bare `{error}` on failure.
func (s *Server) runJob(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !config.IsJobEnabled(s.config, name) {
			c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("job %s is disabled", name), "counts": gin.H{}})
			return
		}

		start := time.Now()
		var counts interface{}
		var err error

		switch name {
		case "expire-subscriptions":
			counts, err = s.handlers.ExpireSubscriptions.Execute(c.Request.Context())
		case "unfeature-listings":
			counts, err = s.handlers.UnfeatureListings.Execute(c.Request.Context())
		case "publish-posts":
			counts, err = s.handlers.PublishPosts.Execute(c.Request.Context())
		default:
			err = errors.NewNotFoundError("job", name)
		}

		if err != nil {
			s.obs.RecordInvocation(c.Request.Context(), name, "error")
			s.responder.JobError(c, name, err)
			return
		}

		s.obs.RecordInvocation(c.Request.Context(), name, "ok")
		s.obs.RecordDuration(c.Request.Context(), name, time.Since(start), "ok")
		c.JSON(http.StatusOK, gin.H{
			"message": fmt.Sprintf("job %s completed", name),
			"counts":  counts,
		})
	}
}

// readValidated reads the request body and checks it against the schema.
// On failure it writes the function error response and reports false.
func (s *Server) readValidated(c *gin.Context, function string, schema []byte) ([]byte, bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil || len(body) == 0 {
		s.responder.FunctionError(c, function, errors.NewInvalidPayloadError("request body is required"))
		return nil, false
	}

	result, err := validation.ValidateBytes(body, schema)
	if err != nil {
		s.responder.FunctionError(c, function, errors.NewInvalidPayloadError(err.Error()))
		return nil, false
	}
	if !result.Valid {
		s.responder.FunctionError(c, function, errors.NewInvalidPayloadError(strings.Join(result.GetErrorMessages(), "; ")))
		return nil, false
	}
	return body, true
}

func (s *Server) dispatchNotification(c *gin.Context) {
	const function = dispatchnotification.FunctionName

	body, ok := s.readValidated(c, function, dispatchNotificationSchema)
	if !ok {
		return
	}

	var input dispatchnotification.Input
	if err := json.Unmarshal(body, &input); err != nil {
		s.responder.FunctionError(c, function, errors.NewInvalidPayloadError(err.Error()))
		return
	}

	start := time.Now()
	output, err := s.handlers.DispatchNotification.Execute(c.Request.Context(), &input)
	if err != nil {
		s.obs.RecordInvocation(c.Request.Context(), function, "error")
		s.responder.FunctionError(c, function, err)
		return
	}

	s.obs.RecordInvocation(c.Request.Context(), function, "ok")
	s.obs.RecordDuration(c.Request.Context(), function, time.Since(start), "ok")
	c.JSON(http.StatusOK, gin.H{"success": true, "data": output})
}

func (s *Server) reviewListing(c *gin.Context) {
	const function = reviewlisting.FunctionName

	body, ok := s.readValidated(c, function, reviewListingSchema)
	if !ok {
		return
	}

	var input reviewlisting.Input
	if err := json.Unmarshal(body, &input); err != nil {
		s.responder.FunctionError(c, function, errors.NewInvalidPayloadError(err.Error()))
		return
	}

	start := time.Now()
	output, err := s.handlers.ReviewListing.Execute(c.Request.Context(), &input)
	if err != nil {
		s.obs.RecordInvocation(c.Request.Context(), function, "error")
		s.responder.FunctionError(c, function, err)
		return
	}

	s.obs.RecordInvocation(c.Request.Context(), function, "ok")
	s.obs.RecordDuration(c.Request.Context(), function, time.Since(start), "ok")
	c.JSON(http.StatusOK, gin.H{"success": true, "data": output})
}

// promotionAdvisor proxies the external scoring service. Advice is optional:
// a failed evaluation answers success with a null suggestion instead of an
// error, a caller must never block on it.
func (s *Server) promotionAdvisor(c *gin.Context) {
	const function = "promotion-advisor"

	body, ok := s.readValidated(c, function, promotionAdvisorSchema)
	if !ok {
		return
	}

	var input struct {
		ListingID string `json:"listingId"`
	}
	if err := json.Unmarshal(body, &input); err != nil {
		s.responder.FunctionError(c, function, errors.NewInvalidPayloadError(err.Error()))
		return
	}

	suggestion := s.handlers.Advisor.Evaluate(c.Request.Context(), input.ListingID)

	s.obs.RecordInvocation(c.Request.Context(), function, "ok")
	c.JSON(http.StatusOK, gin.H{"success": true, "data": suggestion})
}

// recordAnalyticsEvent accepts an interaction event and answers 202 once the
// payload shape checks out. Recording is best effort, the response never
// reflects storage outcome.
func (s *Server) recordAnalyticsEvent(c *gin.Context) {
	const function = "record-analytics-event"

	body, ok := s.readValidated(c, function, analyticsEventSchema)
	if !ok {
		return
	}

	var input struct {
		Kind      string                 `json:"kind"`
		SubjectID string                 `json:"subjectId"`
		ActorID   string                 `json:"actorId"`
		Payload   map[string]interface{} `json:"payload"`
	}
	if err := json.Unmarshal(body, &input); err != nil {
		s.responder.FunctionError(c, function, errors.NewInvalidPayloadError(err.Error()))
		return
	}

	s.handlers.Analytics.Record(c.Request.Context(), input.Kind, input.SubjectID, input.ActorID, input.Payload)
	c.JSON(http.StatusAccepted, gin.H{"accepted": true})
}
