package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func newTestLogger(t *testing.T, cfg Config) (*Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	cfg.Writer = &buf
	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return logger, &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"bad level", Config{Level: "loud"}},
		{"bad format", Config{Format: "xml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLogger_RedactsAttributes(t *testing.T) {
	secret := "configured-credential-0001"
	logger, buf := newTestLogger(t, Config{
		Level:             "debug",
		Format:            "json",
		RedactCredentials: true,
		Secrets:           []string{secret},
	})
	log := logger.Slog()

	log.Info("forwarding request "+secret,
		"path", "/v1beta/models?key="+secret,
		"api_key", "anything",
		"error", errors.New("dial failed for key="+secret),
		"index", 2,
		slog.Group("upstream", "url", "https://host/x?key=abc"),
	)

	lines := decodeLines(t, buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	line := lines[0]

	if strings.Contains(buf.String(), secret) {
		t.Fatalf("secret leaked: %s", buf.String())
	}
	if msg := line["msg"].(string); !strings.HasPrefix(msg, "forwarding request [credential:") {
		t.Errorf("unexpected msg %q", msg)
	}
	if line["api_key"] != Redacted {
		t.Errorf("expected api_key redacted, got %v", line["api_key"])
	}
	if line["index"] != float64(2) {
		t.Errorf("expected index 2, got %v", line["index"])
	}
	group, ok := line["upstream"].(map[string]any)
	if !ok {
		t.Fatalf("expected upstream group, got %v", line["upstream"])
	}
	if group["url"] != "https://host/x?key="+Redacted {
		t.Errorf("expected group value redacted, got %v", group["url"])
	}
}

func TestLogger_RedactsWithAttrs(t *testing.T) {
	logger, buf := newTestLogger(t, Config{RedactCredentials: true, Secrets: []string{"s3cr3t-value"}})

	logger.Slog().With("dsn", "postgres://u:p@db/relay", "note", "s3cr3t-value").Info("ready")

	if strings.Contains(buf.String(), "s3cr3t-value") || strings.Contains(buf.String(), "u:p@db") {
		t.Errorf("secret leaked: %s", buf.String())
	}
}

func TestLogger_NoRedaction(t *testing.T) {
	logger, buf := newTestLogger(t, Config{RedactCredentials: false})

	logger.Slog().Info("raw", "api_key", "visible")

	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("expected unredacted output, got %s", buf.String())
	}
	if logger.Redactor() != nil {
		t.Error("expected nil redactor")
	}
}

func TestLogger_ContextFields(t *testing.T) {
	logger, buf := newTestLogger(t, Config{RedactCredentials: true})

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))
	ctx = WithRequestID(ctx, "req-42")
	ctx = WithCredentialIndex(ctx, 0)

	logger.Slog().InfoContext(ctx, "done")

	line := decodeLines(t, buf)[0]
	if line["request_id"] != "req-42" {
		t.Errorf("expected request_id, got %v", line["request_id"])
	}
	if line["credential_index"] != float64(0) {
		t.Errorf("expected credential_index 0, got %v", line["credential_index"])
	}
	if line["trace_id"] != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("expected trace_id, got %v", line["trace_id"])
	}
	if line["span_id"] != "00f067aa0ba902b7" {
		t.Errorf("expected span_id, got %v", line["span_id"])
	}
}

func TestLogger_SetLevel(t *testing.T) {
	logger, buf := newTestLogger(t, Config{Level: "warn"})
	log := logger.Slog().With("component", "test")

	log.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered, got %s", buf.String())
	}

	if err := logger.SetLevel("debug"); err != nil {
		t.Fatalf("SetLevel failed: %v", err)
	}
	if logger.Level() != slog.LevelDebug {
		t.Errorf("expected debug level, got %v", logger.Level())
	}

	// Derived loggers follow the new level
	log.Debug("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected debug output after SetLevel, got %s", buf.String())
	}

	if err := logger.SetLevel("chatty"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestLogger_TextFormat(t *testing.T) {
	logger, buf := newTestLogger(t, Config{Format: "TEXT"})
	logger.Slog().Info("hello", "n", 1)

	if !strings.Contains(buf.String(), "msg=hello") || !strings.Contains(buf.String(), "n=1") {
		t.Errorf("unexpected text output %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"Error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := parseLevel(tt.in)
		if err != nil {
			t.Errorf("parseLevel(%q) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCredentialSlot(t *testing.T) {
	outer := WithCredentialSlot(context.Background())
	if _, ok := GetCredentialIndex(outer); ok {
		t.Fatal("expected no index before selection")
	}

	inner := WithCredentialIndex(outer, 3)
	if idx, ok := GetCredentialIndex(inner); !ok || idx != 3 {
		t.Errorf("inner index = %d, %v", idx, ok)
	}
	if idx, ok := GetCredentialIndex(outer); !ok || idx != 3 {
		t.Errorf("outer context should see index 3, got %d, %v", idx, ok)
	}

	if _, ok := GetCredentialIndex(WithCredentialIndex(context.Background(), 1)); !ok {
		t.Error("expected index without a slot")
	}
}
