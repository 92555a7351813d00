package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instruments for the telemetry and
// crowd-validation engine.
type Metrics struct {
	MessagesProcessed prometheus.Counter
	MessagesDropped   *prometheus.CounterVec // label: reason={integrity,noise,unknown_sensor,store,decode}
	ProcessingTime    prometheus.Histogram

	SensorsOffline prometheus.Counter

	ReportsCreated  prometheus.Counter
	ReportsVerified prometheus.Counter
	ReportsPending  prometheus.Counter
}

// NewMetrics creates and registers all engine metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.MessagesProcessed,
		m.MessagesDropped,
		m.ProcessingTime,
		m.SensorsOffline,
		m.ReportsCreated,
		m.ReportsVerified,
		m.ReportsPending,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, so parallel
// tests do not hit "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		MessagesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "floodwatch",
			Name:      "messages_processed_total",
			Help:      "Telemetry messages that completed the full pipeline.",
		}),
		MessagesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "floodwatch",
			Name:      "messages_dropped_total",
			Help:      "Telemetry messages dropped before persisting, by reason.",
		}, []string{"reason"}),
		ProcessingTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "floodwatch",
			Name:      "message_processing_seconds",
			Help:      "Duration of a complete per-message pipeline run.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}),
		SensorsOffline: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "floodwatch",
			Name:      "sensors_marked_offline_total",
			Help:      "Sensors transitioned to offline by the health monitor.",
		}),
		ReportsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "floodwatch",
			Name:      "crowd_reports_created_total",
			Help:      "Citizen flood reports accepted.",
		}),
		ReportsVerified: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "floodwatch",
			Name:      "crowd_reports_cross_verified_total",
			Help:      "Reports automatically verified by nearby sensor telemetry.",
		}),
		ReportsPending: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "floodwatch",
			Name:      "crowd_reports_pending_total",
			Help:      "Reports deferred to human moderation.",
		}),
	}
}
