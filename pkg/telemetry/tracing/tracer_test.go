package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mercator-hq/gemrelay/pkg/config"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newRecordingTracer(t *testing.T, ratio float64) (*Tracer, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tracer, err := NewWithExporter(&config.TracingConfig{
		Enabled:     true,
		SampleRatio: ratio,
		ServiceName: "test-service",
	}, exporter)
	if err != nil {
		t.Fatalf("NewWithExporter failed: %v", err)
	}
	t.Cleanup(func() {
		_ = tracer.Shutdown(context.Background())
	})
	return tracer, exporter
}

func findAttr(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		config      *config.TracingConfig
		wantErr     bool
		wantEnabled bool
	}{
		{
			name:    "nil config",
			config:  nil,
			wantErr: true,
		},
		{
			name:   "disabled tracing",
			config: &config.TracingConfig{Enabled: false, ServiceName: "test-service"},
		},
		{
			name: "enabled with lazy OTLP connection",
			config: &config.TracingConfig{
				Enabled:     true,
				Endpoint:    "localhost:4317",
				Insecure:    true,
				SampleRatio: 1.0,
				ServiceName: "test-service",
				Timeout:     time.Second,
			},
			wantEnabled: true,
		},
		{
			name: "invalid sample ratio",
			config: &config.TracingConfig{
				Enabled:     true,
				Endpoint:    "localhost:4317",
				Insecure:    true,
				SampleRatio: 1.5,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracer, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			defer func() { _ = tracer.Shutdown(ctx) }()

			if tracer.Enabled() != tt.wantEnabled {
				t.Errorf("Enabled() = %v, want %v", tracer.Enabled(), tt.wantEnabled)
			}
		})
	}
}

func TestTracer_DisabledIsNoop(t *testing.T) {
	tracer, err := New(&config.TracingConfig{Enabled: false})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, span := tracer.Start(context.Background(), "noop")
	defer span.End()

	if span.SpanContext().IsValid() {
		t.Error("Expected invalid span context from noop tracer")
	}
	if TraceID(ctx) != "" {
		t.Error("Expected empty trace ID")
	}
	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown of disabled tracer: %v", err)
	}
}

func TestTracer_NilSafe(t *testing.T) {
	var tracer *Tracer

	_, span := tracer.Start(context.Background(), "nil")
	span.End()

	if tracer.Enabled() {
		t.Error("Expected nil tracer to be disabled")
	}
	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

func TestTracer_RecordsSpans(t *testing.T) {
	tracer, exporter := newRecordingTracer(t, 1.0)

	ctx, parent := tracer.Start(context.Background(), "proxy.forward")
	SetRequestAttributes(parent, http.MethodPost, "/v1beta/models/gemini-pro:generateContent", "req-1")
	SetSelectionAttributes(parent, 2, 7, 3)
	SetStatusCode(parent, http.StatusOK)

	_, child := tracer.Start(ctx, "rotation.select")
	SetError(child, errors.New("conflict"))
	child.End()
	parent.End()

	if err := tracer.ForceFlush(context.Background()); err != nil {
		t.Fatalf("ForceFlush failed: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("Expected 2 spans, got %d", len(spans))
	}

	childSpan, parentSpan := spans[0], spans[1]
	if childSpan.Parent.SpanID() != parentSpan.SpanContext.SpanID() {
		t.Error("Expected rotation.select to be a child of proxy.forward")
	}
	if childSpan.Status.Code != codes.Error {
		t.Errorf("Expected error status on child, got %v", childSpan.Status.Code)
	}

	if v, ok := findAttr(parentSpan.Attributes, AttrCredentialIndex); !ok || v.AsInt64() != 2 {
		t.Errorf("Expected credential index 2, got %v", v)
	}
	if v, ok := findAttr(parentSpan.Attributes, AttrRotationAttempts); !ok || v.AsInt64() != 3 {
		t.Errorf("Expected 3 attempts, got %v", v)
	}
	if v, ok := findAttr(parentSpan.Attributes, AttrHTTPStatusCode); !ok || v.AsInt64() != 200 {
		t.Errorf("Expected status 200, got %v", v)
	}
}

func TestTracer_NeverSampleRespectsParent(t *testing.T) {
	tracer, exporter := newRecordingTracer(t, 0.0)

	_, span := tracer.Start(context.Background(), "unsampled")
	span.End()

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	parent := trace.ContextWithRemoteSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	}))
	_, sampled := tracer.Start(parent, "sampled-by-parent")
	sampled.End()

	if err := tracer.ForceFlush(context.Background()); err != nil {
		t.Fatalf("ForceFlush failed: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("Expected only the parent-sampled span, got %d", len(spans))
	}
	if spans[0].Name != "sampled-by-parent" {
		t.Errorf("Unexpected span %q", spans[0].Name)
	}
}

func TestHTTPMiddleware_ExtractsTraceParent(t *testing.T) {
	newRecordingTracer(t, 1.0)

	var got string
	handler := HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = TraceID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("Expected extracted trace ID, got %q", got)
	}
}

func TestInject(t *testing.T) {
	tracer, _ := newRecordingTracer(t, 1.0)

	ctx, span := tracer.Start(context.Background(), "outbound")
	defer span.End()

	headers := http.Header{}
	Inject(ctx, headers)

	if headers.Get("traceparent") == "" {
		t.Error("Expected traceparent header")
	}
}

func TestCreateSampler(t *testing.T) {
	tests := []struct {
		ratio   float64
		wantErr bool
	}{
		{0.0, false},
		{0.5, false},
		{1.0, false},
		{-0.1, true},
		{1.1, true},
	}
	for _, tt := range tests {
		s, err := createSampler(tt.ratio)
		if (err != nil) != tt.wantErr {
			t.Errorf("createSampler(%v) error = %v, wantErr %v", tt.ratio, err, tt.wantErr)
			continue
		}
		if err == nil && s == nil {
			t.Errorf("createSampler(%v) returned nil sampler", tt.ratio)
		}
	}
}
