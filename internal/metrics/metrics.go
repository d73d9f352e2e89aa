// Dugout - Job-Tracked Sports League Data Synchronization
// Copyright 2026 Dugout Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dugoutproject/dugout

// Package metrics provides Prometheus instrumentation for the pipeline:
//   - Upstream API request latency, retries, and failure classes
//   - Change-detection classification counts
//   - Replica sync batch/row application and fallback counts
//   - Job durations by type and terminal status
//   - Circuit breaker state
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Upstream API metrics

	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dugout_upstream_requests_total",
			Help: "Total upstream API requests by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"}, // outcome: ok, transient, permanent
	)

	UpstreamRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dugout_upstream_retries_total",
			Help: "Total retry attempts against the upstream API",
		},
		[]string{"endpoint"},
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dugout_upstream_request_duration_seconds",
			Help:    "Upstream API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// Change detection metrics

	RecordsClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dugout_records_classified_total",
			Help: "Entities classified by the change detector",
		},
		[]string{"entity", "result"}, // result: new, changed, unchanged
	)

	ChangeRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dugout_change_records_total",
			Help: "Change-log entries appended per entity type",
		},
		[]string{"entity"},
	)

	// Replica sync metrics

	SyncBatchesApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dugout_sync_batches_applied_total",
			Help: "Sync batches applied to the replica by table and mode",
		},
		[]string{"table", "mode"}, // mode: batch, row
	)

	SyncRowsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dugout_sync_rows_applied_total",
			Help: "Rows applied to the replica per table",
		},
		[]string{"table"},
	)

	SyncRowsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dugout_sync_rows_skipped_total",
			Help: "Rows skipped during per-row fallback application",
		},
		[]string{"table"},
	)

	// Job ledger metrics

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dugout_job_duration_seconds",
			Help:    "Job duration in seconds by type and terminal status",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 3600, 14400},
		},
		[]string{"job_type", "status"},
	)

	DatesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dugout_collector_dates_skipped_total",
			Help: "Dates skipped inside a collection run after fetch failures",
		},
		[]string{"job_type"},
	)

	// Circuit breaker metrics

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dugout_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dugout_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dugout_circuit_breaker_requests_total",
			Help: "Requests through the circuit breaker by result",
		},
		[]string{"name", "result"}, // result: success, failure, rejected
	)
)

// ObserveUpstreamRequest records one upstream call's outcome and duration.
func ObserveUpstreamRequest(endpoint, outcome string, d time.Duration) {
	UpstreamRequests.WithLabelValues(endpoint, outcome).Inc()
	UpstreamRequestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// ObserveJob records a finished job's duration under its terminal status.
func ObserveJob(jobType, status string, d time.Duration) {
	JobDuration.WithLabelValues(jobType, status).Observe(d.Seconds())
}
