// Package metrics holds the Prometheus collectors for claim processing.
//
// A nil *Metrics is valid and records nothing, so components can be built
// without a registry in tests.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "zkclaim"

// Outcome and result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
	ResultCache = "cache"
)

// Metrics groups every collector exported by the orchestrator.
type Metrics struct {
	PollAttempts     *prometheus.CounterVec
	TransientRetries *prometheus.CounterVec
	PollOutcomes     *prometheus.CounterVec
	VKRegistrations  *prometheus.CounterVec
	PhaseDuration    *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PollAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "poll",
				Name:      "attempts_total",
				Help:      "Counted job-status attempts.",
			},
			[]string{"role"},
		),
		TransientRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "poll",
				Name:      "transient_retries_total",
				Help:      "Job-status calls retried after 503, not counted against the attempt budget.",
			},
			[]string{"role"},
		),
		PollOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "poll",
				Name:      "outcomes_total",
				Help:      "Finished polls by outcome.",
			},
			[]string{"role", "outcome"},
		),
		VKRegistrations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "vk",
				Name:      "registrations_total",
				Help:      "Verification key lookups by result (cache, ok, error).",
			},
			[]string{"role", "result"},
		),
		PhaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "phase",
				Name:      "duration_seconds",
				Help:      "Wall time of one claim phase from prove to outcome.",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
			},
			[]string{"role", "result"},
		),
	}
	if reg != nil {
		reg.MustRegister(
			m.PollAttempts,
			m.TransientRetries,
			m.PollOutcomes,
			m.VKRegistrations,
			m.PhaseDuration,
		)
	}
	return m
}

// PollAttempt counts one budgeted job-status attempt.
func (m *Metrics) PollAttempt(role string) {
	if m == nil {
		return
	}
	m.PollAttempts.WithLabelValues(role).Inc()
}

// TransientRetry counts one 503 retry.
func (m *Metrics) TransientRetry(role string) {
	if m == nil {
		return
	}
	m.TransientRetries.WithLabelValues(role).Inc()
}

// PollOutcome counts a finished poll.
func (m *Metrics) PollOutcome(role, outcome string) {
	if m == nil {
		return
	}
	m.PollOutcomes.WithLabelValues(role, outcome).Inc()
}

// VKRegistration counts a registrar lookup.
func (m *Metrics) VKRegistration(role, result string) {
	if m == nil {
		return
	}
	m.VKRegistrations.WithLabelValues(role, result).Inc()
}

// ObservePhase records the duration of a phase started at start.
func (m *Metrics) ObservePhase(role, result string, start time.Time) {
	if m == nil {
		return
	}
	m.PhaseDuration.WithLabelValues(role, result).Observe(time.Since(start).Seconds())
}
