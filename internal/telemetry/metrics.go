package telemetry

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsSink counts combat events in Prometheus.
type MetricsSink struct {
	events   *prometheus.CounterVec
	rounds   prometheus.Histogram
	defeated prometheus.Counter
}

// NewMetricsSink registers the combat collectors on reg under namespace.
// A nil reg uses prometheus.DefaultRegisterer.
//
// Postcondition: Panics if the collectors are already registered on reg.
func NewMetricsSink(reg prometheus.Registerer, namespace string) *MetricsSink {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &MetricsSink{
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "combat",
			Name:      "events_total",
			Help:      "Terminal combat transitions by event name.",
		}, []string{"event"}),
		rounds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "combat",
			Name:      "rounds",
			Help:      "Rounds fought per finished combat.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21},
		}),
		defeated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "combat",
			Name:      "enemies_defeated_total",
			Help:      "Enemies defeated across all finished combats.",
		}),
	}
}

// Emit implements Sink.
func (s *MetricsSink) Emit(_ context.Context, e Event) error {
	s.events.WithLabelValues(e.Name).Inc()
	if rounds, ok := intValue(e.Payload[KeyRounds]); ok {
		s.rounds.Observe(float64(rounds))
	}
	if n, ok := intValue(e.Payload[KeyEnemiesDefeated]); ok && n > 0 {
		s.defeated.Add(float64(n))
	}
	return nil
}

func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
