package metrics

import (
	"mercator-hq/gemrelay/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// RotationMetrics tracks credential selection and the rotation store.
//
// Metrics:
//   - gemrelay_rotation_selections_total: Selection attempts by outcome
//   - gemrelay_rotation_served_total: Successful selections by credential index
//   - gemrelay_rotation_attempts: Attempts needed per request
//   - gemrelay_rotation_retries_exhausted_total: Requests that gave up on conflicts
//   - gemrelay_rotation_store_up: Store reachability from the last probe
//   - gemrelay_rotation_credentials: Size of the credential set
type RotationMetrics struct {
	selections *prometheus.CounterVec
	served     *prometheus.CounterVec
	attempts   prometheus.Histogram
	exhausted  prometheus.Counter
	storeUp    prometheus.Gauge
	creds      prometheus.Gauge
}

// NewRotationMetrics creates and registers rotation metrics with the provided registry.
func NewRotationMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RotationMetrics {
	rm := &RotationMetrics{
		selections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rotation_selections_total",
				Help:      "Credential selection attempts by outcome (success, conflict, error)",
			},
			[]string{"outcome"},
		),

		served: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rotation_served_total",
				Help:      "Successful selections by credential index",
			},
			[]string{"index"},
		),

		attempts: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rotation_attempts",
				Help:      "Selection attempts needed per request",
				Buckets:   []float64{1, 2, 3, 4, 6, 8, 12, 16},
			},
		),

		exhausted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rotation_retries_exhausted_total",
				Help:      "Requests rejected because every selection attempt conflicted",
			},
		),

		storeUp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rotation_store_up",
				Help:      "Rotation store reachability from the last probe (1=up, 0=down)",
			},
		),

		creds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rotation_credentials",
				Help:      "Number of configured credentials",
			},
		),
	}

	registry.MustRegister(
		rm.selections,
		rm.served,
		rm.attempts,
		rm.exhausted,
		rm.storeUp,
		rm.creds,
	)

	return rm
}
