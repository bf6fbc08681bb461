package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"mercator-hq/gemrelay/pkg/telemetry/logging"
)

// LoggingMiddleware logs every request once it has completed, including
// streamed bodies. It records method, path, status, latency and size. The
// query string is never logged: it may carry a credential.
//
// Log format (JSON):
//
//	{
//	  "time": "2026-10-19T10:30:00Z",
//	  "level": "INFO",
//	  "msg": "request completed",
//	  "request_id": "3f0c7a52-...",
//	  "credential_index": 2,
//	  "method": "POST",
//	  "path": "/v1/models/gemini-pro/chat/completions",
//	  "status": 200,
//	  "latency_ms": 1250,
//	  "bytes": 5120
//	}
func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "http")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startTime := time.Now()
			rw := wrap(w)

			logger.DebugContext(r.Context(), "request started",
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)

			ctx := logging.WithCredentialSlot(r.Context())
			next.ServeHTTP(rw, r.WithContext(ctx))

			logLevel := slog.LevelInfo
			if rw.statusCode >= 500 {
				logLevel = slog.LevelError
			} else if rw.statusCode >= 400 {
				logLevel = slog.LevelWarn
			}

			logger.Log(ctx, logLevel, "request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rw.statusCode,
				"latency_ms", time.Since(startTime).Milliseconds(),
				"bytes", rw.bytes,
				"remote_addr", r.RemoteAddr,
			)
		})
	}
}
