package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce           sync.Once
	requestsTotal          *prometheus.CounterVec
	requestLatencySeconds  *prometheus.HistogramVec
	dispatchesTotal        *prometheus.CounterVec
	dispatchFailuresTotal  *prometheus.CounterVec
	sweepTransitionsTotal  *prometheus.CounterVec
	scheduledRowsTotal     *prometheus.CounterVec
	jobRunsTotal           *prometheus.CounterVec
	jobDurationSeconds     *prometheus.HistogramVec
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskroom_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		requestLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskroom_request_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		dispatchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskroom_notification_dispatches_total",
			Help: "Total number of notification events handed to the messaging channel.",
		}, []string{"event_type"})

		dispatchFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskroom_notification_dispatch_failures_total",
			Help: "Total number of failed notification dispatch attempts.",
		}, []string{"event_type"})

		sweepTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskroom_sweep_transitions_total",
			Help: "Total number of assignments transitioned by periodic sweeps.",
		}, []string{"sweep"})

		scheduledRowsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskroom_scheduled_notifications_total",
			Help: "Total number of scheduled notification rows by final status.",
		}, []string{"status"})

		jobRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskroom_job_runs_total",
			Help: "Total number of periodic job executions.",
		}, []string{"job", "outcome"})

		jobDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskroom_job_duration_seconds",
			Help:    "Duration distribution of periodic job executions.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 15.0, 60.0},
		}, []string{"job"})

		prometheus.MustRegister(
			requestsTotal,
			requestLatencySeconds,
			dispatchesTotal,
			dispatchFailuresTotal,
			sweepTransitionsTotal,
			scheduledRowsTotal,
			jobRunsTotal,
			jobDurationSeconds,
		)
	})
}

// Requests exposes the counter for API requests.
func Requests() *prometheus.CounterVec {
	RegisterMetrics()
	return requestsTotal
}

// RequestLatency exposes the latency histogram for API requests.
func RequestLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return requestLatencySeconds
}

// Dispatches exposes the counter for notification dispatches.
func Dispatches() *prometheus.CounterVec {
	RegisterMetrics()
	return dispatchesTotal
}

// DispatchFailures exposes the counter for failed dispatch attempts.
func DispatchFailures() *prometheus.CounterVec {
	RegisterMetrics()
	return dispatchFailuresTotal
}

// SweepTransitions exposes the counter for sweep-driven status transitions.
func SweepTransitions() *prometheus.CounterVec {
	RegisterMetrics()
	return sweepTransitionsTotal
}

// ScheduledRows exposes the counter for scheduled notification row outcomes.
func ScheduledRows() *prometheus.CounterVec {
	RegisterMetrics()
	return scheduledRowsTotal
}

// JobRuns exposes the counter for periodic job executions.
func JobRuns() *prometheus.CounterVec {
	RegisterMetrics()
	return jobRunsTotal
}

// JobDuration exposes the duration histogram for periodic jobs.
func JobDuration() *prometheus.HistogramVec {
	RegisterMetrics()
	return jobDurationSeconds
}
