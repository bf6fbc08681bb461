// Package middleware provides the HTTP middleware wrapped around the
// gemrelay forwarder.
//
// # Middleware Chain
//
// The server applies the chain outermost first:
//
//	Chain(forwarder,
//	    RequestIDMiddleware,
//	    tracing.HTTPMiddleware,
//	    LoggingMiddleware(logger),
//	    MetricsMiddleware(collector),
//	    RecoveryMiddleware(logger, collector),
//	)
//
// Recovery sits innermost so a recovered panic is still logged and counted
// as a 500 by the outer layers.
//
// # Middleware Types
//
//   - RequestIDMiddleware: reuse X-Request-ID or generate a UUID, store it in
//     the context for log correlation
//   - LoggingMiddleware: one "request completed" record per request, with the
//     served credential index when one was selected
//   - MetricsMiddleware: in-flight gauge, request counter and duration
//   - RecoveryMiddleware: recover panics, answer 500 with a fixed body
//
// None of them modifies the request or the upstream response headers. The
// response writer wrapper forwards Flush so streamed bodies are not held
// back.
package middleware
