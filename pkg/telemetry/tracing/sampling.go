package tracing

import (
	"fmt"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// createSampler maps a sample ratio onto a sampler.
//
// A ratio of 1 samples everything and 0 samples nothing. Anything between
// uses TraceIDRatioBased so every service sampling the same trace ID makes
// the same decision.
//
// The result is wrapped in ParentBased, so a client that sends a sampled
// traceparent always gets its request traced:
//   - If parent span is sampled → child is sampled
//   - If parent span is not sampled → child is not sampled
//   - If no parent span → use the ratio
func createSampler(ratio float64) (sdktrace.Sampler, error) {
	if ratio < 0.0 || ratio > 1.0 {
		return nil, fmt.Errorf("sample ratio must be between 0.0 and 1.0, got %f", ratio)
	}

	var baseSampler sdktrace.Sampler
	switch ratio {
	case 1.0:
		baseSampler = sdktrace.AlwaysSample()
	case 0.0:
		baseSampler = sdktrace.NeverSample()
	default:
		baseSampler = sdktrace.TraceIDRatioBased(ratio)
	}

	return sdktrace.ParentBased(baseSampler), nil
}
