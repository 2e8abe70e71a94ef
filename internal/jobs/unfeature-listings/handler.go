// internal/jobs/unfeature-listings/handler.go
package unfeaturelistings

import (
	"context"
	"database/sql"
	"time"

	"autoparts-relay/internal/common/errors"
	"autoparts-relay/internal/common/logger"
	"autoparts-relay/internal/common/metrics"
)

const JobName = "unfeature-listings"

// Handler clears the featured flag on listings whose featured_until has
// passed. Affected rows are selected first so each transition is logged, then
// the same filtered update applies the change; the redundancy buys an audit
// trail, not correctness.
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

	rows, err := h.db.QueryContext(ctx,
		`SELECT id, title FROM listings
		 WHERE featured = TRUE AND featured_until < NOW()`,
	)
	if err != nil {
		metrics.JobsFailed.WithLabelValues(JobName, string(errors.ErrCodeQueryExecutionFailed)).Inc()
		return nil, errors.NewQueryExecutionFailedError("select expired featured listings", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id, title string
		if err := rows.Scan(&id, &title); err != nil {
			metrics.JobsFailed.WithLabelValues(JobName, string(errors.ErrCodeQueryExecutionFailed)).Inc()
			return nil, errors.NewQueryExecutionFailedError("scan expired featured listing", err)
		}
		ids = append(ids, id)
		h.logger.Info("featured period elapsed", map[string]interface{}{
			"listingId": id,
			"title":     title,
		})
	}
	if err := rows.Err(); err != nil {
		metrics.JobsFailed.WithLabelValues(JobName, string(errors.ErrCodeQueryExecutionFailed)).Inc()
		return nil, errors.NewQueryExecutionFailedError("iterate expired featured listings", err)
	}

	res, err := h.db.ExecContext(ctx,
		`UPDATE listings
		 SET featured = FALSE, featured_until = NULL
		 WHERE featured = TRUE AND featured_until < NOW()`,
	)
	if err != nil {
		metrics.JobsFailed.WithLabelValues(JobName, string(errors.ErrCodeQueryExecutionFailed)).Inc()
		return nil, errors.NewQueryExecutionFailedError("unfeature listings", err)
	}

	unfeatured, err := res.RowsAffected()
	if err != nil {
		metrics.JobsFailed.WithLabelValues(JobName, string(errors.ErrCodeQueryExecutionFailed)).Inc()
		return nil, errors.NewQueryExecutionFailedError("rows affected", err)
	}

	metrics.JobsCompleted.WithLabelValues(JobName).Inc()
	metrics.JobDuration.WithLabelValues(JobName).Observe(time.Since(start).Seconds())

	h.logger.Info("featured sweep finished", map[string]interface{}{
		"unfeatured": unfeatured,
	})

	return &Output{
		Unfeatured: unfeatured,
		ListingIDs: ids,
		RanAt:      start.UTC().Format(time.RFC3339),
	}, nil
}
