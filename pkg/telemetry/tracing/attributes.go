package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys. Standard keys follow OpenTelemetry semantic
// conventions; gemrelay keys use the "gemrelay.*" namespace. No key ever
// carries a credential value.
const (
	AttrHTTPMethod     = "http.request.method"
	AttrHTTPStatusCode = "http.response.status_code"
	AttrUpstreamPath   = "gemrelay.upstream.path"

	AttrRequestID        = "gemrelay.request_id"
	AttrCredentialIndex  = "gemrelay.credential.index"
	AttrRotationVersion  = "gemrelay.rotation.version"
	AttrRotationAttempts = "gemrelay.rotation.attempts"
	AttrRotationBackend  = "gemrelay.rotation.backend"
)

// SetRequestAttributes sets inbound request attributes on a span.
func SetRequestAttributes(span trace.Span, method, upstreamPath, requestID string) {
	attrs := []attribute.KeyValue{
		attribute.String(AttrHTTPMethod, method),
		attribute.String(AttrUpstreamPath, upstreamPath),
	}
	if requestID != "" {
		attrs = append(attrs, attribute.String(AttrRequestID, requestID))
	}
	span.SetAttributes(attrs...)
}

// SetSelectionAttributes records which credential slot served the request
// and how many attempts the rotation took.
func SetSelectionAttributes(span trace.Span, index int, version int64, attempts int) {
	span.SetAttributes(
		attribute.Int(AttrCredentialIndex, index),
		attribute.Int64(AttrRotationVersion, version),
		attribute.Int(AttrRotationAttempts, attempts),
	)
}

// SetStatusCode records the HTTP status returned to the client.
func SetStatusCode(span trace.Span, status int) {
	span.SetAttributes(attribute.Int(AttrHTTPStatusCode, status))
}
