package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors behind a private
// registry so tests can create isolated instances.
type Metrics struct {
	CapturesTotal   *prometheus.CounterVec // by source: upload|snapshot|monitor
	DetectionsTotal *prometheus.CounterVec // by class
	FallbacksTotal  prometheus.Counter
	SkippedFiles    prometheus.Counter
	AlertsTotal     prometheus.Counter
	MonitorActive   prometheus.Gauge

	registry *prometheus.Registry
}

func New() *Metrics {
	m := &Metrics{
		CapturesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "maskwatch_captures_total",
			Help: "Captures processed, by source",
		}, []string{"source"}),
		DetectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "maskwatch_detections_total",
			Help: "Detections produced, by class",
		}, []string{"class"}),
		FallbacksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "maskwatch_synthetic_fallbacks_total",
			Help: "Detect calls served by the synthetic fallback",
		}),
		SkippedFiles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "maskwatch_skipped_files_total",
			Help: "Upload files rejected as non-images",
		}),
		AlertsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "maskwatch_alerts_total",
			Help: "Batches that raised a without_mask alert",
		}),
		MonitorActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "maskwatch_monitor_active",
			Help: "1 while the monitoring scheduler is active",
		}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.CapturesTotal,
		m.DetectionsTotal,
		m.FallbacksTotal,
		m.SkippedFiles,
		m.AlertsTotal,
		m.MonitorActive,
	)

	return m
}

// Handler returns the scrape endpoint for this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
