// internal/jobs/publish-posts/handler.go
package publishposts

import (
	"context"
	"database/sql"
	"time"

	"autoparts-relay/internal/common/errors"
	"autoparts-relay/internal/common/logger"
	"autoparts-relay/internal/common/metrics"
)

const JobName = "publish-posts"

// Handler publishes blog posts whose scheduled time has arrived. Rows are
// updated one at a time so a failure on one post does not hold back the rest
// of the batch; failures are counted and the sweep picks them up again on the
// next invocation.
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
		`SELECT id, title FROM blog_posts
		 WHERE published = FALSE AND scheduled_publish_at <= NOW()`,
	)
	if err != nil {
		metrics.JobsFailed.WithLabelValues(JobName, string(errors.ErrCodeQueryExecutionFailed)).Inc()
		return nil, errors.NewQueryExecutionFailedError("select due posts", err)
	}
	defer rows.Close()

	type duePost struct {
		id    string
		title string
	}
	var due []duePost
	for rows.Next() {
		var p duePost
		if err := rows.Scan(&p.id, &p.title); err != nil {
			metrics.JobsFailed.WithLabelValues(JobName, string(errors.ErrCodeQueryExecutionFailed)).Inc()
			return nil, errors.NewQueryExecutionFailedError("scan due post", err)
		}
		due = append(due, p)
	}
	if err := rows.Err(); err != nil {
		metrics.JobsFailed.WithLabelValues(JobName, string(errors.ErrCodeQueryExecutionFailed)).Inc()
		return nil, errors.NewQueryExecutionFailedError("iterate due posts", err)
	}

	output := &Output{RanAt: start.UTC().Format(time.RFC3339)}
	for _, p := range due {
		_, err := h.db.ExecContext(ctx,
			`UPDATE blog_posts
			 SET published = TRUE, published_at = $2
			 WHERE id = $1 AND published = FALSE`,
			p.id, start.UTC(),
		)
		if err != nil {
			output.Failed++
			h.logger.Error("post publish failed", map[string]interface{}{
				"postId": p.id,
				"title":  p.title,
				"error":  err.Error(),
			})
			continue
		}
		output.Published++
		output.PostIDs = append(output.PostIDs, p.id)
		h.logger.Info("post published", map[string]interface{}{
			"postId": p.id,
			"title":  p.title,
		})
	}

	metrics.JobsCompleted.WithLabelValues(JobName).Inc()
	metrics.JobDuration.WithLabelValues(JobName).Observe(time.Since(start).Seconds())

	h.logger.Info("publish sweep finished", map[string]interface{}{
		"published": output.Published,
		"failed":    output.Failed,
	})

	return output, nil
}
