package middleware

import (
	"net/http"
	"time"

	"mercator-hq/gemrelay/pkg/telemetry/metrics"
)

// MetricsMiddleware records in-flight requests, request counts by status
// class and duration, including the time spent streaming the body.
func MetricsMiddleware(collector *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := wrap(w)

			collector.RequestStarted()
			defer func() {
				collector.RequestFinished(r.Method, rw.statusCode, time.Since(start))
			}()

			next.ServeHTTP(rw, r)
		})
	}
}
