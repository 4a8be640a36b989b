package relay

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/JaraLowell/RadeWeb-sub002/metric"
)

// relayMetrics holds Prometheus metrics for relay operations.
type relayMetrics struct {
	relayed prometheus.Counter
	failed  prometheus.Counter
}

// newRelayMetrics creates and registers relay metrics with the provided
// registry. A nil registry disables metrics.
func newRelayMetrics(registry *metric.MetricsRegistry) (*relayMetrics, error) {
	if registry == nil {
		return nil, nil
	}

	m := &relayMetrics{
		relayed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "radeweb",
			Subsystem: "relay",
			Name:      "forwarded_total",
			Help:      "Direct messages forwarded to a relay target",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "radeweb",
			Subsystem: "relay",
			Name:      "send_failures_total",
			Help:      "Relay sends that failed at the connection",
		}),
	}

	if err := registry.Register("relay", "forwarded_total", m.relayed); err != nil {
		return nil, err
	}
	if err := registry.Register("relay", "send_failures_total", m.failed); err != nil {
		return nil, err
	}
	return m, nil
}
