package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AttemptsTotal tracks operation attempts by outcome
	AttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provisioner_attempts_total",
			Help: "Total number of operation attempts",
		},
		[]string{"outcome"},
	)

	// ExhaustedTotal tracks workflows that ran out of attempts
	ExhaustedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "provisioner_retry_exhausted_total",
			Help: "Total number of workflows that exhausted all retry attempts",
		},
	)

	// ConflictsDetected tracks classified conflicts per type
	ConflictsDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provisioner_conflicts_detected_total",
			Help: "Total number of resource conflicts detected",
		},
		[]string{"type"},
	)

	// ConflictsRecovered tracks conflicts resolved by adopting the existing resource
	ConflictsRecovered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provisioner_conflicts_recovered_total",
			Help: "Total number of conflicts resolved via recovery",
		},
		[]string{"type"},
	)

	// IdempotencyHits tracks idempotency lookups served per source
	IdempotencyHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provisioner_idempotency_hits_total",
			Help: "Total number of idempotency lookups served from a stored record",
		},
		[]string{"source"},
	)

	// IdempotencyWrites tracks record write outcomes
	IdempotencyWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provisioner_idempotency_writes_total",
			Help: "Total number of idempotency record writes",
		},
		[]string{"outcome"},
	)

	// BackoffDelay tracks scheduled backoff delays
	BackoffDelay = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "provisioner_backoff_delay_seconds",
			Help:    "Backoff delay scheduled between retry attempts",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
	)
)
