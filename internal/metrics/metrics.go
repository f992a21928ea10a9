// Package metrics is an optional prometheus side-channel. §1 keeps
// logging/metrics out of the core's required collaborator contract, so a nil
// *Metrics (the zero value's methods are no-ops via nil receiver guards) is
// a fully valid, inert choice — registration only happens if a caller wires
// a prometheus.Registerer explicitly.
package metrics

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	opsTriggered  *prometheus.CounterVec
	opsCompleted  *prometheus.CounterVec
	fragmentsSent *prometheus.CounterVec
	fallbacks     *prometheus.CounterVec
}

// New registers the engine's counters on reg. reg may be nil, in which case
// the returned *Metrics records nothing (every method becomes a no-op).
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}
	m := &Metrics{
		opsTriggered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ucg", Name: "ops_triggered_total",
			Help: "Collective operations triggered, by kind.",
		}, []string{"kind"}),
		opsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ucg", Name: "ops_completed_total",
			Help: "Collective operations completed, by kind and status.",
		}, []string{"kind", "status"}),
		fragmentsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ucg", Name: "fragments_sent_total",
			Help: "Fragments sent, by send mode.",
		}, []string{"mode"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ucg", Name: "algo_fallbacks_total",
			Help: "Feasibility-triggered algorithm rewrites, by check name.",
		}, []string{"check"}),
	}
	reg.MustRegister(m.opsTriggered, m.opsCompleted, m.fragmentsSent, m.fallbacks)
	return m
}

func (m *Metrics) OpTriggered(kind string) {
	if m == nil {
		return
	}
	m.opsTriggered.WithLabelValues(kind).Inc()
}

func (m *Metrics) OpCompleted(kind, status string) {
	if m == nil {
		return
	}
	m.opsCompleted.WithLabelValues(kind, status).Inc()
}

func (m *Metrics) FragmentSent(mode string) {
	if m == nil {
		return
	}
	m.fragmentsSent.WithLabelValues(mode).Inc()
}

func (m *Metrics) Fallback(check string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(check).Inc()
}
