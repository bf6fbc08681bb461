package metrics

import (
	"strconv"
	"time"

	"mercator-hq/gemrelay/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// RequestMetrics tracks proxied request handling.
//
// Metrics:
//   - gemrelay_requests_total: Requests by method and status class
//   - gemrelay_request_duration_seconds: Time until the response body finished
//   - gemrelay_requests_in_flight: Requests currently being handled
//   - gemrelay_upstream_errors_total: Upstream failures with no response, by reason
//   - gemrelay_core_errors_total: Requests the proxy answered itself, by kind
type RequestMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        prometheus.Gauge
	upstreamErrors  *prometheus.CounterVec
	coreErrors      *prometheus.CounterVec
}

// NewRequestMetrics creates and registers request metrics with the provided registry.
func NewRequestMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RequestMetrics {
	rm := &RequestMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "requests_total",
				Help:      "Total number of proxied requests by method and status class",
			},
			[]string{"method", "status_class"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "request_duration_seconds",
				Help:      "Duration of proxied requests in seconds, including streamed bodies",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"status_class"},
		),

		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "requests_in_flight",
				Help:      "Number of requests currently being handled",
			},
		),

		upstreamErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "upstream_errors_total",
				Help:      "Upstream round trips that failed before a response was received",
			},
			[]string{"reason"},
		),

		coreErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "core_errors_total",
				Help:      "Requests answered by the proxy with a fixed error body",
			},
			[]string{"kind"},
		),
	}

	registry.MustRegister(
		rm.requestsTotal,
		rm.requestDuration,
		rm.inFlight,
		rm.upstreamErrors,
		rm.coreErrors,
	)

	return rm
}

// RecordRequest records a completed request.
func (rm *RequestMetrics) RecordRequest(method string, status int, duration time.Duration) {
	class := StatusClass(status)
	rm.requestsTotal.WithLabelValues(method, class).Inc()
	rm.requestDuration.WithLabelValues(class).Observe(duration.Seconds())
}

// StatusClass maps an HTTP status to "1xx".."5xx". Anything else is "other".
func StatusClass(status int) string {
	if status < 100 || status > 599 {
		return "other"
	}
	return strconv.Itoa(status/100) + "xx"
}
