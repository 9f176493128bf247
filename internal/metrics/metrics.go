// Package metrics exposes Prometheus metrics for the custody vault.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Life-cycle metrics
var (
	LocksCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lplocker_locks_created_total",
		Help: "Total number of locks created",
	})

	LocksWithdrawn = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lplocker_locks_withdrawn_total",
		Help: "Total number of locks withdrawn at maturity",
	})

	FeeCollections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lplocker_fee_collections_total",
		Help: "Total number of fee harvests performed",
	})

	ActiveLocks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lplocker_active_locks",
		Help: "Number of currently active locks",
	})
)

// Failure metrics
var (
	ExternalCallFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lplocker_external_call_failures_total",
			Help: "Total number of failed position-manager or payment calls by operation",
		},
		[]string{"operation"},
	)

	RejectedOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lplocker_rejected_operations_total",
			Help: "Total number of operations rejected by precondition checks",
		},
		[]string{"operation"},
	)
)
