// Package metrics holds the process-wide prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission triggers.
const (
	TriggerUser       = "user"
	TriggerSweep      = "sweep"
	TriggerLateAnswer = "late_answer"
)

var (
	// AttemptsStarted counts attempts created.
	AttemptsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quizhub_attempts_started_total",
			Help: "Total number of quiz attempts started",
		},
	)

	// AttemptsSubmitted counts finalized attempts by what triggered submission.
	AttemptsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizhub_attempts_submitted_total",
			Help: "Total number of quiz attempts submitted",
		},
		[]string{"trigger"},
	)

	// EnqueueFailures counts notification jobs that could not be handed to the queue.
	EnqueueFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizhub_notification_enqueue_failures_total",
			Help: "Notification jobs that failed to enqueue",
		},
		[]string{"type"},
	)

	// JobsProcessed counts consumed queue jobs by outcome: ok, retry, dead.
	JobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizhub_jobs_processed_total",
			Help: "Queue jobs processed by outcome",
		},
		[]string{"type", "outcome"},
	)

	// HTTPRequestDuration observes request latency per route.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quizhub_http_request_duration_seconds",
			Help:    "Time spent serving HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)
