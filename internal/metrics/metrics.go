// Package metrics holds the controller's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/buzzauk/sixarm/pkg/domain"
)

// Metrics instruments the control loop. A nil *Metrics is valid and
// records nothing, so callers never guard instrumentation sites.
type Metrics struct {
	triggers       *prometheus.CounterVec
	transitions    *prometheus.CounterVec
	commitFailures prometheus.Counter
	tickDuration   prometheus.Histogram
	steps          prometheus.Gauge
}

// New builds the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		triggers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sixarm_triggers_total",
				Help: "Triggers dispatched to the mode controller, by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sixarm_mode_transitions_total",
				Help: "Mode transitions, labeled by the mode entered",
			},
			[]string{"mode"},
		),
		commitFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sixarm_store_commit_failures_total",
				Help: "Step store mutations whose durable commit failed",
			},
		),
		tickDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sixarm_tick_duration_seconds",
				Help:    "Duration of one control loop tick",
				Buckets: []float64{.0005, .001, .0025, .005, .01, .015, .025, .05, .1},
			},
		),
		steps: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "sixarm_store_steps",
				Help: "Number of recorded steps in the store",
			},
		),
	}
	reg.MustRegister(m.triggers, m.transitions, m.commitFailures, m.tickDuration, m.steps)
	return m
}

// Trigger records one dispatched trigger and whether it was accepted.
func (m *Metrics) Trigger(kind domain.TriggerKind, accepted bool) {
	if m == nil {
		return
	}
	outcome := "accepted"
	if !accepted {
		outcome = "rejected"
	}
	m.triggers.WithLabelValues(string(kind), outcome).Inc()
}

// ModeChange records entering a mode.
func (m *Metrics) ModeChange(mode domain.Mode) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(mode)).Inc()
}

// CommitFailure records a failed store commit.
func (m *Metrics) CommitFailure() {
	if m == nil {
		return
	}
	m.commitFailures.Inc()
}

// TickDuration records how long one control tick took.
func (m *Metrics) TickDuration(seconds float64) {
	if m == nil {
		return
	}
	m.tickDuration.Observe(seconds)
}

// Steps records the stored step count.
func (m *Metrics) Steps(n int) {
	if m == nil {
		return
	}
	m.steps.Set(float64(n))
}
