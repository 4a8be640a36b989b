package persist

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/JaraLowell/RadeWeb-sub002/metric"
)

// effectMetrics counts side-effect outcomes for a persist-style processor.
type effectMetrics struct {
	done   prometheus.Counter
	failed prometheus.Counter
}

func newEffectMetrics(registry *metric.MetricsRegistry, component string) (*effectMetrics, error) {
	if registry == nil {
		return nil, nil
	}

	m := &effectMetrics{
		done: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "radeweb",
			Subsystem: component,
			Name:      "effects_total",
			Help:      "Side effects performed successfully",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "radeweb",
			Subsystem: component,
			Name:      "effect_failures_total",
			Help:      "Side effects that failed this run",
		}),
	}

	if err := registry.Register(component, "effects_total", m.done); err != nil {
		return nil, err
	}
	if err := registry.Register(component, "effect_failures_total", m.failed); err != nil {
		return nil, err
	}
	return m, nil
}
