package workflow

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JaimeStill/tally/pkg/network"
)

// Metrics are the pipeline's Prometheus collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	Runs      *prometheus.CounterVec
	Turns     prometheus.Histogram
	Duration  prometheus.Histogram
	ToolCalls *prometheus.CounterVec
	Errored   prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tally",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Pipeline runs by final status and error kind.",
		}, []string{"status", "kind"}),
		Turns: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tally",
			Subsystem: "pipeline",
			Name:      "turns",
			Help:      "Turns taken per pipeline run.",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tally",
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of pipeline runs.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		ToolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tally",
			Subsystem: "pipeline",
			Name:      "tool_calls_total",
			Help:      "Tool invocations by agent, tool, and outcome.",
		}, []string{"agent", "tool", "outcome"}),
		Errored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tally",
			Subsystem: "pipeline",
			Name:      "files_errored_total",
			Help:      "Expense files marked errored after a failed run.",
		}),
	}

	reg.MustRegister(m.Runs, m.Turns, m.Duration, m.ToolCalls, m.Errored)
	return m
}

func (m *Metrics) observe(status network.Status, kind Kind, history []network.Turn, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.Runs.WithLabelValues(string(status), string(kind)).Inc()
	m.Turns.Observe(float64(len(history)))
	m.Duration.Observe(elapsed.Seconds())

	for _, t := range history {
		m.ToolCalls.WithLabelValues(t.Agent, t.Tool, string(t.Outcome)).Inc()
	}
}

func (m *Metrics) failed() {
	if m == nil {
		return
	}
	m.Errored.Inc()
}
