// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	SweepsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reminder_sweeps_total",
			Help: "Total number of reminder evaluation sweeps",
		},
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reminder_sweep_duration_seconds",
			Help:    "Duration of one sweep over all subscribed users",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		},
	)

	RemindersFired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminders_fired_total",
			Help: "Reminder events produced by the matcher",
		},
		[]string{"kind"},
	)

	RecordsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_records_skipped_total",
			Help: "Medications or meal plans skipped during evaluation",
		},
		[]string{"entity", "reason"},
	)

	DispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_dispatch_total",
			Help: "Remote reminder dispatch attempts by outcome",
		},
		[]string{"kind", "status"},
	)

	DispatchInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reminder_dispatch_in_flight",
			Help: "Dispatch sends that have not completed yet",
		},
	)

	SnapshotRefreshFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_snapshot_refresh_failures_total",
			Help: "Snapshot fetch failures; the stale snapshot is kept",
		},
		[]string{"stage"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Reminder emails and SMS handled by the notification service",
		},
		[]string{"channel", "type", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Notification API request latency",
		},
		[]string{"route", "status"},
	)
)
