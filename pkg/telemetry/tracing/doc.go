// Package tracing provides OpenTelemetry distributed tracing for gemrelay.
//
// Spans are exported over OTLP gRPC. When tracing is disabled a noop tracer
// is used and every call is free of side effects.
//
// # Spans
//
//   - proxy.forward: one per proxied request, carrying the credential index,
//     the committed rotation version and the number of attempts
//   - rotation.select: one per selection attempt
//
// Inbound W3C traceparent headers are honoured so a client's trace continues
// through the proxy. The trace and span IDs are also attached to every log
// record emitted with the request context.
//
// # Usage
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	ctx, span := tracer.Start(ctx, "proxy.forward")
//	defer span.End()
package tracing
