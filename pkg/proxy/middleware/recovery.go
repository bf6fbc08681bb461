package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"mercator-hq/gemrelay/pkg/proxy"
	"mercator-hq/gemrelay/pkg/telemetry/metrics"
)

// RecoveryMiddleware recovers from panics in HTTP handlers and returns a 500
// with a fixed body. It logs the panic with stack trace but does not expose
// internal details to clients.
//
// http.ErrAbortHandler is re-panicked so the server aborts the connection;
// the reverse proxy uses it when an upstream body fails mid-stream.
//
// Example usage:
//
//	handler = RecoveryMiddleware(logger, collector)(handler)
func RecoveryMiddleware(logger *slog.Logger, collector *metrics.Collector) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				err := recover()
				if err == nil {
					return
				}
				if err == http.ErrAbortHandler {
					panic(err)
				}

				logger.ErrorContext(r.Context(), "panic in handler",
					"error", err,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)
				collector.RecordCoreError(metrics.CoreErrorPanic)

				proxy.WriteFixed(w, http.StatusInternalServerError, proxy.InternalErrorBody)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
