// Package metrics exposes progression counters to Prometheus.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "pixelquest"

// Metrics groups the application counters. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	Completions      prometheus.Counter
	Undos            prometheus.Counter
	LevelUps         prometheus.Counter
	AdvisorFallbacks *prometheus.CounterVec
}

// New creates the counters and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Completions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completions_total",
			Help:      "Resolutions marked complete for a day.",
		}),
		Undos: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "undos_total",
			Help:      "Completions reverted by a second toggle.",
		}),
		LevelUps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "level_ups_total",
			Help:      "Levels gained across all users.",
		}),
		AdvisorFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "advisor_fallbacks_total",
			Help:      "Coach requests answered with fallback content, by kind.",
		}, []string{"kind"}),
	}
	reg.MustRegister(m.Completions, m.Undos, m.LevelUps, m.AdvisorFallbacks)
	return m
}

func (m *Metrics) ObserveCompletion() {
	if m == nil {
		return
	}
	m.Completions.Inc()
}

func (m *Metrics) ObserveUndo() {
	if m == nil {
		return
	}
	m.Undos.Inc()
}

func (m *Metrics) ObserveLevelUps(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.LevelUps.Add(float64(n))
}

// ObserveFallback records a degraded coach response; kind is "advice" or "avatar".
func (m *Metrics) ObserveFallback(kind string) {
	if m == nil {
		return
	}
	m.AdvisorFallbacks.WithLabelValues(kind).Inc()
}
