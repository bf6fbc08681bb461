package telemetry

import (
	"context"
	"errors"
	"fmt"

	"mercator-hq/gemrelay/pkg/config"
	"mercator-hq/gemrelay/pkg/telemetry/logging"
	"mercator-hq/gemrelay/pkg/telemetry/metrics"
	"mercator-hq/gemrelay/pkg/telemetry/tracing"
)

// Telemetry owns the logger, metrics collector and tracer for one process.
type Telemetry struct {
	logger  *logging.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
}

// Options adjusts telemetry construction. The zero value is valid.
type Options struct {
	// LogOverrides are applied on top of the configured logging settings.
	LogOverrides func(*logging.Config)
}

// New builds the telemetry stack from configuration. secrets are the
// credential values the log handler must never emit.
func New(cfg *config.TelemetryConfig, secrets []string, opts ...Options) (*Telemetry, error) {
	if cfg == nil {
		return nil, errors.New("telemetry config is nil")
	}

	logCfg := logging.Config{
		Level:             cfg.Logging.Level,
		Format:            cfg.Logging.Format,
		AddSource:         cfg.Logging.AddSource,
		RedactCredentials: cfg.Logging.RedactCredentials,
		Secrets:           secrets,
	}
	for _, o := range opts {
		if o.LogOverrides != nil {
			o.LogOverrides(&logCfg)
		}
	}

	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	tracer, err := tracing.New(&cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	return &Telemetry{
		logger:  logger,
		metrics: metrics.NewCollector(&cfg.Metrics, nil),
		tracer:  tracer,
	}, nil
}

// Logger returns the process logger.
func (t *Telemetry) Logger() *logging.Logger {
	return t.logger
}

// Metrics returns the metrics collector. It is safe to use when metrics are
// disabled.
func (t *Telemetry) Metrics() *metrics.Collector {
	return t.metrics
}

// Tracer returns the tracer. It is a noop tracer when tracing is disabled.
func (t *Telemetry) Tracer() *tracing.Tracer {
	return t.tracer
}

// Shutdown flushes pending spans.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return t.tracer.Shutdown(ctx)
}
