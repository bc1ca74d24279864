package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all application metrics
type Metrics struct {
	// Resolution pipeline
	Resolutions       *prometheus.CounterVec
	GenerationLatency *prometheus.HistogramVec
	OCRLatency        prometheus.Histogram
	PrescriptionNames prometheus.Histogram

	// Upstream calls
	UpstreamErrors *prometheus.CounterVec
	BreakerState   *prometheus.GaugeVec
}

// New creates the application metrics and registers them with reg.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "medicine_resolutions_total",
			Help:      "Medicine resolutions by outcome (store_hit, generated, conflict_reread, not_recognized, failed)",
		}, []string{"outcome"}),
		GenerationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "text_generation_duration_seconds",
			Help:      "Duration of text generation calls",
			Buckets:   []float64{.25, .5, 1, 2.5, 5, 10, 20, 30, 60},
		}, []string{"provider"}),
		OCRLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ocr_duration_seconds",
			Help:      "Duration of OCR runs",
			Buckets:   []float64{.5, 1, 2.5, 5, 10, 20, 30, 60},
		}),
		PrescriptionNames: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prescription_names",
			Help:      "Number of medicine names extracted per prescription",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		}),
		UpstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_errors_total",
			Help:      "Failed calls to external services",
		}, []string{"service", "kind"}),
		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		}, []string{"name"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.Resolutions,
			m.GenerationLatency,
			m.OCRLatency,
			m.PrescriptionNames,
			m.UpstreamErrors,
			m.BreakerState,
		)
	}
	return m
}

// NewNop returns unregistered metrics for tests and optional wiring.
func NewNop() *Metrics {
	return New("test", nil)
}
