package metrics

import (
	"strconv"
	"sync"
	"time"

	"mercator-hq/gemrelay/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Label values for core errors.
const (
	CoreErrorNoCredentials    = "no_credentials"
	CoreErrorRetriesExhausted = "retries_exhausted"
	CoreErrorStoreUnavailable = "store_unavailable"
	CoreErrorUpstream         = "upstream"
	CoreErrorPanic            = "panic"
)

// maxIndexLabels bounds the served-index label set. Larger credential sets
// aggregate the remainder into "other".
const maxIndexLabels = 256

// Collector owns the Prometheus registry and every gemrelay metric.
//
// All methods are safe on a nil *Collector and on a collector built from a
// disabled config, so callers never need to check whether metrics are on.
type Collector struct {
	config   config.MetricsConfig
	registry *prometheus.Registry

	requestMetrics  *RequestMetrics
	rotationMetrics *RotationMetrics

	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a new metrics collector with the specified configuration
// and Prometheus registry. If registry is nil, a new registry is created with
// the Go runtime and process collectors attached.
//
// Example:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	c := &Collector{
		registry:           registry,
		cardinalityLimiter: NewCardinalityLimiter(maxIndexLabels),
	}
	if cfg != nil {
		c.config = *cfg
	}

	// Set defaults if not specified
	if c.config.Namespace == "" {
		c.config.Namespace = config.DefaultMetricsNamespace
	}
	if len(c.config.RequestDurationBuckets) == 0 {
		c.config.RequestDurationBuckets = config.DefaultRequestDurationBuckets
	}

	c.requestMetrics = NewRequestMetrics(&c.config, registry)
	c.rotationMetrics = NewRotationMetrics(&c.config, registry)

	return c
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// RecordSelection records one selection attempt. index is the served slot
// for successful attempts and ignored otherwise.
func (c *Collector) RecordSelection(outcome string, index int) {
	if !c.enabled() {
		return
	}

	c.rotationMetrics.selections.WithLabelValues(outcome).Inc()
	if index < 0 {
		return
	}

	label := strconv.Itoa(index)
	if !c.cardinalityLimiter.Allow(label) {
		label = "other"
	}
	c.rotationMetrics.served.WithLabelValues(label).Inc()
}

// RecordAttempts records how many selection attempts a request needed and
// whether it gave up.
func (c *Collector) RecordAttempts(attempts int, exhausted bool) {
	if !c.enabled() {
		return
	}

	c.rotationMetrics.attempts.Observe(float64(attempts))
	if exhausted {
		c.rotationMetrics.exhausted.Inc()
	}
}

// SetStoreUp records the result of a store probe.
func (c *Collector) SetStoreUp(up bool) {
	if !c.enabled() {
		return
	}

	value := 0.0
	if up {
		value = 1.0
	}
	c.rotationMetrics.storeUp.Set(value)
}

// SetCredentials records the size of the credential set.
func (c *Collector) SetCredentials(n int) {
	if !c.enabled() {
		return
	}
	c.rotationMetrics.creds.Set(float64(n))
}

// RequestStarted marks a request as in flight. Every call must be paired
// with RequestFinished.
func (c *Collector) RequestStarted() {
	if !c.enabled() {
		return
	}
	c.requestMetrics.inFlight.Inc()
}

// RequestFinished records a completed request.
func (c *Collector) RequestFinished(method string, status int, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.requestMetrics.inFlight.Dec()
	c.requestMetrics.RecordRequest(method, status, duration)
}

// RecordUpstreamError records an upstream round trip that failed without a
// response. reason is a short fixed label such as "timeout" or "canceled".
func (c *Collector) RecordUpstreamError(reason string) {
	if !c.enabled() {
		return
	}
	c.requestMetrics.upstreamErrors.WithLabelValues(reason).Inc()
}

// RecordCoreError records a request answered with a fixed error body.
func (c *Collector) RecordCoreError(kind string) {
	if !c.enabled() {
		return
	}
	c.requestMetrics.coreErrors.WithLabelValues(kind).Inc()
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label combinations per metric.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow checks if a label set is allowed. Returns true if the label set
// already exists or if we haven't reached the cardinality limit yet.
// Returns false if adding this label set would exceed the limit.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[labelSet]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
