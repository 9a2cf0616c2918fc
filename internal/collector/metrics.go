package collector

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// serverMetrics carries the collector's Prometheus instruments on a private
// registry, so tests can run several servers in one process.
type serverMetrics struct {
	registry *prometheus.Registry

	uploads        prometheus.Counter
	uploadBytes    prometheus.Counter
	uploadFailures prometheus.Counter
	commands       *prometheus.CounterVec
}

func newServerMetrics() *serverMetrics {
	m := &serverMetrics{
		registry: prometheus.NewRegistry(),
		uploads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "loom_collector_uploads_total",
			Help: "Frames stored by the collector",
		}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "loom_collector_upload_bytes_total",
			Help: "Bytes of frame data stored by the collector",
		}),
		uploadFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "loom_collector_upload_failures_total",
			Help: "Frame uploads rejected or failed",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loom_collector_commands_total",
			Help: "Capture commands accepted, by action",
		}, []string{"action"}),
	}
	m.registry.MustRegister(m.uploads, m.uploadBytes, m.uploadFailures, m.commands)
	return m
}

func (m *serverMetrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
