package production

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/comalice/hsm"
)

// Metrics records lifecycle notifications as Prometheus series.
type Metrics struct {
	enters      *prometheus.CounterVec
	exits       *prometheus.CounterVec
	transitions *prometheus.CounterVec
	duration    prometheus.Histogram
	escalated   *prometheus.CounterVec
}

// NewMetrics creates the collectors under namespace (default "hsm") and
// registers them on reg.
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	if namespace == "" {
		namespace = "hsm"
	}
	m := &Metrics{
		enters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_enters_total",
			Help:      "Total number of state entries.",
		}, []string{"state"}),
		exits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_exits_total",
			Help:      "Total number of state exits.",
		}, []string{"state"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Total number of transitions by source leaf and target.",
		}, []string{"from", "to"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transition_duration_seconds",
			Help:      "Time spent in exit and enter hooks per transition.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
		escalated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_escalated_total",
			Help:      "Messages that reached the machine's top-level handler.",
		}, []string{"kind"}),
	}
	for _, c := range []prometheus.Collector{m.enters, m.exits, m.transitions, m.duration, m.escalated} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) StateEntered(ev hsm.StateEvent) {
	m.enters.WithLabelValues(ev.Name).Inc()
}

func (m *Metrics) StateExited(ev hsm.StateEvent) {
	m.exits.WithLabelValues(ev.Name).Inc()
}

func (m *Metrics) Transitioned(ev hsm.TransitionEvent) {
	m.transitions.WithLabelValues(ev.From, ev.To).Inc()
	m.duration.Observe(ev.Elapsed.Seconds())
}

func (m *Metrics) Escalated(ev hsm.MessageEvent) {
	m.escalated.WithLabelValues(ev.Kind).Inc()
}
