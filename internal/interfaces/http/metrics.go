package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsRegistry holds the Prometheus metrics for the report API.
type MetricsRegistry struct {
	ReportBuilds  *prometheus.CounterVec
	BuildDuration *prometheus.HistogramVec
	CacheHits     prometheus.Counter
	CacheMisses   prometheus.Counter
	HTTPDuration  *prometheus.HistogramVec
	ActiveStreams prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetricsRegistry creates and registers the metric set on a private
// Prometheus registry, so tests can build several without collisions.
func NewMetricsRegistry() *MetricsRegistry {
	m := &MetricsRegistry{
		ReportBuilds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "revlens_report_builds_total",
				Help: "Report builds by result",
			},
			[]string{"result"},
		),
		BuildDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "revlens_report_build_duration_seconds",
				Help:    "Report assembly duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"result"},
		),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "revlens_report_cache_hits_total",
			Help: "Report cache hits",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "revlens_report_cache_misses_total",
			Help: "Report cache misses",
		}),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "revlens_http_request_duration_seconds",
				Help:    "HTTP request duration by path and status",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path", "code"},
		),
		ActiveStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "revlens_active_report_streams",
			Help: "Open websocket report streams",
		}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.ReportBuilds,
		m.BuildDuration,
		m.CacheHits,
		m.CacheMisses,
		m.HTTPDuration,
		m.ActiveStreams,
	)
	return m
}

// Handler exposes the registry in Prometheus text format.
func (m *MetricsRegistry) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
