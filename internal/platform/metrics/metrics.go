// Package metrics exposes Prometheus metrics for imports, HTTP requests and
// display widgets.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"universe_backend/internal/feature/instruments/domain/entity"
)

// Metrics owns a private registry so tests and multiple instances never collide.
type Metrics struct {
	registry *prometheus.Registry

	imports         *prometheus.CounterVec
	importFailures  *prometheus.CounterVec
	importDuration  prometheus.Histogram
	snapshotSize    prometheus.Gauge
	lastImport      prometheus.Gauge
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	widgetFallbacks *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "universe_instrument_changes_total",
			Help: "Instruments added, removed or reinstated by imports.",
		}, []string{"change"}),
		importFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "universe_import_failures_total",
			Help: "Failed imports by stage.",
		}, []string{"stage"}),
		importDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "universe_import_duration_seconds",
			Help:    "Duration of successful imports.",
			Buckets: prometheus.DefBuckets,
		}),
		snapshotSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "universe_snapshot_instruments",
			Help: "Number of records in the stored snapshot.",
		}),
		lastImport: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "universe_last_import_timestamp_seconds",
			Help: "Unix time of the last successful import.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "universe_http_requests_total",
			Help: "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "universe_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		widgetFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "universe_widget_fallbacks_total",
			Help: "Widget payloads served from the deterministic fallback.",
		}, []string{"source"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.imports, m.importFailures, m.importDuration, m.snapshotSize, m.lastImport,
		m.httpRequests, m.httpDuration, m.widgetFallbacks,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveImport records a successful import.
func (m *Metrics) ObserveImport(report entity.ImportReport, took time.Duration) {
	m.imports.WithLabelValues("added").Add(float64(len(report.Added)))
	m.imports.WithLabelValues("removed").Add(float64(len(report.Removed)))
	m.imports.WithLabelValues("reinstated").Add(float64(len(report.Reinstated)))
	m.importDuration.Observe(took.Seconds())
	m.snapshotSize.Set(float64(report.Total))
	m.lastImport.Set(float64(report.ImportedAt.Unix()))
}

// ImportFailed records an import that failed at stage.
func (m *Metrics) ImportFailed(stage string) {
	m.importFailures.WithLabelValues(stage).Inc()
}

// WidgetFallback records a widget payload served from fallback data.
func (m *Metrics) WidgetFallback(source string) {
	m.widgetFallbacks.WithLabelValues(source).Inc()
}

// Middleware records request counts and latency per matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
