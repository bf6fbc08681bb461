package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns an HTTP handler for the Prometheus metrics endpoint.
//
// It is mounted on the admin listener, never on the proxy listener, so that
// every proxy path is forwarded upstream.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(
		c.registry,
		promhttp.HandlerOpts{
			// Enable OpenMetrics encoding (preferred over Prometheus text format)
			EnableOpenMetrics: true,

			// Serve what can be collected rather than failing the scrape
			ErrorHandling: promhttp.ContinueOnError,
		},
	)
}
