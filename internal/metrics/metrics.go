// Package metrics exposes Prometheus counters for credential lifecycle operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RotationsTotal counts key rotations by outcome (ok, busy, no_key, upstream_auth, error).
	RotationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keygate_rotations_total",
			Help: "Total number of key rotation attempts",
		},
		[]string{"outcome"},
	)

	// OnboardingsTotal counts onboarding attempts by outcome (ok, deferred, not_ready, conflict, error).
	OnboardingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keygate_onboardings_total",
			Help: "Total number of onboarding attempts",
		},
		[]string{"outcome"},
	)

	// CompensationRecordsTotal counts repair records written after exhausted local retries.
	CompensationRecordsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "keygate_compensation_records_total",
			Help: "Total number of compensation records written",
		},
	)

	// SyncDrainTotal counts drained queue entries by outcome (completed, failed).
	SyncDrainTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keygate_sync_drain_entries_total",
			Help: "Total number of billing sync queue entries processed by drains",
		},
		[]string{"outcome"},
	)

	// DegradedLockAcquisitions counts acquisitions served by the in-process fallback.
	DegradedLockAcquisitions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "keygate_degraded_lock_acquisitions_total",
			Help: "Total number of lock acquisitions served by the in-memory fallback",
		},
	)
)
