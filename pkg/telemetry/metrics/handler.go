package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns an HTTP handler for the Prometheus metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(
		c.registry,
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
			ErrorHandling:     promhttp.ContinueOnError,
		},
	)
}

// WriteTextfile writes the metrics to path in the text exposition format,
// for the node exporter textfile collector. The file is replaced
// atomically. Nothing is written when metrics are disabled or path is empty.
func (c *Collector) WriteTextfile(path string) error {
	if !c.enabled || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, c.registry)
}
