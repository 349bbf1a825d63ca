package website

import (
	"context"
	"net/http"
	"time"

	"github.com/ardanlabs/ai-agents/foundation/analyst"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors for the service on a registry of its own.
type Metrics struct {
	registry    *prometheus.Registry
	runs        *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	transitions *prometheus.CounterVec
	uploads     *prometheus.CounterVec
}

// NewMetrics constructs and registers the collectors.
func NewMetrics() *Metrics {
	m := Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analyst_runs_total",
				Help: "Total number of pipeline runs by the phase they ended or failed in",
			},
			[]string{"phase"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "analyst_run_duration_seconds",
				Help:    "Duration of pipeline runs",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"mode"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analyst_transitions_total",
				Help: "Total number of phase transitions",
			},
			[]string{"from", "to"},
		),
		uploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analyst_uploads_total",
				Help: "Total number of dataset uploads",
			},
			[]string{"status"},
		),
	}

	m.registry.MustRegister(m.runs, m.runDuration, m.transitions, m.uploads)

	return &m
}

// Handler serves the collectors in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Transition counts a phase change. It matches the signature of the
// pipeline's transition hook.
func (m *Metrics) Transition(ctx context.Context, runID string, from analyst.Phase, to analyst.Phase) {
	m.transitions.WithLabelValues(from.String(), to.String()).Inc()
}

func (m *Metrics) run(mode analyst.Mode, phase analyst.Phase, d time.Duration) {
	m.runs.WithLabelValues(phase.String()).Inc()
	m.runDuration.WithLabelValues(mode.String()).Observe(d.Seconds())
}

func (m *Metrics) upload(status string) {
	m.uploads.WithLabelValues(status).Inc()
}
