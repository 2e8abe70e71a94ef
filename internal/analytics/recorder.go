// Package analytics records typed interaction events against listings and
// maintains their derived counters. Everything here is best-effort: a failure
// is logged and counted, never surfaced to the interacting user.
package analytics

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"autoparts-relay/internal/common/logger"
	"autoparts-relay/internal/common/metrics"
	"autoparts-relay/internal/models"

	"github.com/google/uuid"
)

// Indexer mirrors recorded events into a search index. Optional.
type Indexer interface {
	Index(ctx context.Context, event models.AnalyticsEvent) error
}

type Recorder struct {
	db      *sql.DB
	indexer Indexer
	logger  logger.Logger
}

func NewRecorder(db *sql.DB, indexer Indexer, log logger.Logger) *Recorder {
	return &Recorder{
		db:      db,
		indexer: indexer,
		logger:  log.WithFields(map[string]interface{}{"component": "analytics"}),
	}
}

// Record stores one interaction event and, for view/click kinds, bumps the
// matching counter on the listing. The event insert and the counter increment
// are two independent calls: either can succeed while the other fails. No
// error reaches the caller; the UI action that triggered tracking must never
// be blocked or rolled back by an analytics failure.
func (r *Recorder) Record(ctx context.Context, kind, subjectID, actorID string, payload map[string]interface{}) {
	if subjectID == "" {
		r.logger.Warn("dropping analytics event with empty subject", map[string]interface{}{
			"kind": kind,
		})
		metrics.AnalyticsEventsDropped.WithLabelValues(kind, "validate").Inc()
		return
	}

	event := models.AnalyticsEvent{
		ID:        uuid.New().String(),
		SubjectID: subjectID,
		Kind:      kind,
		ActorID:   actorID,
		Payload:   payload,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}

	if err := r.insertEvent(ctx, event); err != nil {
		r.logger.Error("analytics insert failed", map[string]interface{}{
			"kind":      kind,
			"subjectId": subjectID,
			"error":     err.Error(),
		})
		metrics.AnalyticsEventsDropped.WithLabelValues(kind, "insert").Inc()
	} else {
		metrics.AnalyticsEventsRecorded.WithLabelValues(kind).Inc()
	}

	// Counter increment runs regardless of the insert outcome.
	if kind == models.KindView || kind == models.KindClick {
		if err := r.incrementCounter(ctx, kind, subjectID); err != nil {
			r.logger.Error("counter increment failed", map[string]interface{}{
				"kind":      kind,
				"subjectId": subjectID,
				"error":     err.Error(),
			})
			metrics.AnalyticsEventsDropped.WithLabelValues(kind, "counter").Inc()
		}
	}

	if r.indexer != nil {
		if err := r.indexer.Index(ctx, event); err != nil {
			r.logger.Warn("analytics index failed", map[string]interface{}{
				"kind":  kind,
				"error": err.Error(),
			})
			metrics.AnalyticsEventsDropped.WithLabelValues(kind, "index").Inc()
		}
	}
}

func (r *Recorder) insertEvent(ctx context.Context, event models.AnalyticsEvent) error {
	payloadJSON, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}

	var actorID interface{}
	if event.ActorID != "" {
		actorID = event.ActorID
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO listing_events (id, subject_id, kind, actor_id, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		event.ID, event.SubjectID, event.Kind, actorID, payloadJSON, event.CreatedAt,
	)
	return err
}

func (r *Recorder) incrementCounter(ctx context.Context, kind, subjectID string) error {
	column := "view_count"
	if kind == models.KindClick {
		column = "click_count"
	}

	_, err := r.db.ExecContext(ctx,
		`UPDATE listings SET `+column+` = `+column+` + 1 WHERE id = $1`,
		subjectID,
	)
	return err
}
