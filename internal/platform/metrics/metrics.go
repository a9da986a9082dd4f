package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	SessionsStarted   prometheus.Counter
	StepAdvances      *prometheus.CounterVec
	StepRejections    *prometheus.CounterVec
	Submissions       *prometheus.CounterVec
	Uploads           *prometheus.CounterVec
	StateSaveDuration prometheus.Histogram
	RequestLatency    *prometheus.HistogramVec
}

// New creates all metrics and registers them on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics on the given registerer. Tests pass a fresh
// registry so parallel constructions never collide.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "analysthub_onboarding_sessions_started_total",
			Help: "Total number of onboarding wizard sessions started",
		}),
		StepAdvances: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "analysthub_onboarding_step_advances_total",
			Help: "Step advances accepted by the wizard, labeled by the step advanced from",
		}, []string{"from_step"}),
		StepRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "analysthub_onboarding_step_rejections_total",
			Help: "Step advances rejected by a validation gate, labeled by step",
		}, []string{"step"}),
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "analysthub_onboarding_submissions_total",
			Help: "Application submissions by outcome",
		}, []string{"outcome"}),
		Uploads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "analysthub_onboarding_uploads_total",
			Help: "File uploads by kind and outcome",
		}, []string{"kind", "outcome"}),
		StateSaveDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "analysthub_wizard_state_save_duration_ms",
			Help:    "Latency of wizard state persistence writes in milliseconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
		}),
		RequestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "analysthub_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status class",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

// ObserveStateSave records one persistence write latency.
func (m *Metrics) ObserveStateSave(start time.Time) {
	m.StateSaveDuration.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
}
