package lock

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts lock operations for the admin metrics endpoint.
type Metrics struct {
	Acquired       prometheus.Counter
	Conflicts      prometheus.Counter
	Released       prometheus.Counter
	ReleaseMisses  prometheus.Counter
	Refreshed      prometheus.Counter
	RefreshMisses  prometheus.Counter
	ForceReleases  prometheus.Counter
	VerifyFailures prometheus.Counter
	ActiveLocks    prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Acquired: factory.NewCounter(prometheus.CounterOpts{
			Name: "slotlock_acquired_total",
			Help: "Successful lock acquisitions.",
		}),
		Conflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "slotlock_acquire_conflicts_total",
			Help: "Acquire attempts rejected because the slot was already locked.",
		}),
		Released: factory.NewCounter(prometheus.CounterOpts{
			Name: "slotlock_released_total",
			Help: "Successful owner-checked releases.",
		}),
		ReleaseMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "slotlock_release_misses_total",
			Help: "Release attempts on expired or foreign locks.",
		}),
		Refreshed: factory.NewCounter(prometheus.CounterOpts{
			Name: "slotlock_refreshed_total",
			Help: "Successful owner-checked TTL extensions.",
		}),
		RefreshMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "slotlock_refresh_misses_total",
			Help: "Refresh attempts on expired or foreign locks.",
		}),
		ForceReleases: factory.NewCounter(prometheus.CounterOpts{
			Name: "slotlock_force_releases_total",
			Help: "Administrative unconditional releases.",
		}),
		VerifyFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "slotlock_verify_failures_total",
			Help: "Verify calls that found a missing or mismatched lock.",
		}),
		ActiveLocks: factory.NewGauge(prometheus.GaugeOpts{
			Name: "slotlock_active_locks",
			Help: "Live locks observed by the last full scan.",
		}),
	}
}
