// Package logging provides structured logging with credential redaction.
//
// # Overview
//
// The logging package builds a log/slog logger with:
//   - JSON or text output
//   - Redaction of configured credentials, Google API keys, key= query
//     parameters and bearer tokens
//   - Request fields taken from the context (request_id, credential_index,
//     trace_id, span_id)
//   - A level that can be changed while running
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:             "info",
//	    Format:            "json",
//	    RedactCredentials: true,
//	    Secrets:           creds.Values(),
//	})
//	log := logger.Slog()
//
//	ctx = logging.WithRequestID(ctx, "req-123")
//	log.InfoContext(ctx, "forwarding", "path", "/v1beta/models?key=AIza...")
//	// path=/v1beta/models?key=[REDACTED] request_id=req-123
//
// # Redaction
//
// A configured credential is replaced by "[credential:<fingerprint>]" so
// log lines can be tied to a rotation slot without exposing the value.
// Values of attributes named like secrets (api_key, authorization, dsn,
// key, ...) are replaced entirely.
package logging
