// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_jobs_completed_total",
			Help: "Total number of scheduled job invocations completed",
		},
		[]string{"job"},
	)

	JobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_jobs_failed_total",
			Help: "Total number of scheduled job invocations failed",
		},
		[]string{"job", "error_code"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "relay_job_duration_seconds",
			Help: "Duration of scheduled job invocations in seconds",
		},
		[]string{"job"},
	)

	AnalyticsEventsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_analytics_events_recorded_total",
			Help: "Total number of analytics events recorded",
		},
		[]string{"kind"},
	)

	AnalyticsEventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_analytics_events_dropped_total",
			Help: "Total number of analytics events dropped at a pipeline stage",
		},
		[]string{"kind", "stage"},
	)

	NotificationsPresented = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_notifications_presented_total",
			Help: "Total number of notifications presented to a user channel",
		},
		[]string{"type"},
	)

	NotificationsDeduped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_notifications_deduped_total",
			Help: "Total number of redelivered notifications suppressed by dedup",
		},
	)

	FeedEventsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_feed_events_delivered_total",
			Help: "Total number of change-feed events delivered to subscribers",
		},
		[]string{"stream"},
	)
)
