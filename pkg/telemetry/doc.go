// Package telemetry bundles the observability stack of gemrelay: redacting
// structured logging, Prometheus metrics, OpenTelemetry tracing and the
// admin health endpoints.
//
// # Components
//
//   - logging: slog handler that masks credentials
//   - metrics: Prometheus collectors for requests and rotation
//   - tracing: OTLP span export and W3C trace context
//   - health: liveness and readiness endpoints
//
// # Usage
//
//	tel, err := telemetry.New(&cfg.Telemetry, cfg.Credentials.APIKeys)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	logger := tel.Logger().Slog()
//	ctx, span := tel.Tracer().Start(ctx, "proxy.forward")
//	defer span.End()
package telemetry
