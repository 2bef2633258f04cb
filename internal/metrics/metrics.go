// Package metrics exposes Prometheus counters for turns and essays.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	turns  *prometheus.CounterVec
	essays *prometheus.CounterVec
	chunks prometheus.Counter
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sam_turns_total",
			Help: "Finished chat turns by outcome.",
		}, []string{"outcome", "mode"}),
		essays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sam_essays_total",
			Help: "Finished essay compositions by outcome.",
		}, []string{"outcome"}),
		chunks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sam_stream_chunks_total",
			Help: "Stream chunks applied to assistant messages.",
		}),
	}
	reg.MustRegister(m.turns, m.essays, m.chunks)
	return m
}

// The recorders are nil-safe so services can run without metrics.

func (m *Metrics) TurnFinished(outcome, mode string) {
	if m == nil {
		return
	}
	m.turns.WithLabelValues(outcome, mode).Inc()
}

func (m *Metrics) EssayFinished(outcome string) {
	if m == nil {
		return
	}
	m.essays.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ChunkApplied() {
	if m == nil {
		return
	}
	m.chunks.Inc()
}
