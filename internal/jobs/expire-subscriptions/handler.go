// internal/jobs/expire-subscriptions/handler.go
package expiresubscriptions

import (
	"context"
	"database/sql"
	"time"

	"autoparts-relay/internal/common/errors"
	"autoparts-relay/internal/common/logger"
	"autoparts-relay/internal/common/metrics"
)

const JobName = "expire-subscriptions"

// Handler transitions active subscriptions past the retention window to
// expired. A single filtered update makes the sweep idempotent and race-free
// under overlapping invocations: the predicate excludes rows already
// transitioned.
type Handler struct {
	config *Config
	db     *sql.DB
	logger logger.Logger
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		db:     db,
		logger: log.WithFields(map[string]interface{}{"job": JobName}),
	}
}

func (h *Handler) Execute(ctx context.Context) (*Output, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	res, err := h.db.ExecContext(ctx,
		`UPDATE subscriptions
		 SET status = 'expired', updated_at = NOW()
		 WHERE status = 'active'
		   AND created_at < NOW() - make_interval(days => $1)`,
		h.config.RetentionDays,
	)
	if err != nil {
		metrics.JobsFailed.WithLabelValues(JobName, string(errors.ErrCodeQueryExecutionFailed)).Inc()
		return nil, errors.NewQueryExecutionFailedError("expire subscriptions", err)
	}

	expired, err := res.RowsAffected()
	if err != nil {
		metrics.JobsFailed.WithLabelValues(JobName, string(errors.ErrCodeQueryExecutionFailed)).Inc()
		return nil, errors.NewQueryExecutionFailedError("rows affected", err)
	}

	metrics.JobsCompleted.WithLabelValues(JobName).Inc()
	metrics.JobDuration.WithLabelValues(JobName).Observe(time.Since(start).Seconds())

	h.logger.Info("subscription sweep finished", map[string]interface{}{
		"expired":       expired,
		"retentionDays": h.config.RetentionDays,
	})

	return &Output{
		Expired: expired,
		RanAt:   start.UTC().Format(time.RFC3339),
	}, nil
}
