package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/JaraLowell/RadeWeb-sub002/metric"
)

// pipelineMetrics holds Prometheus metrics for pipeline execution.
type pipelineMetrics struct {
	runs          prometheus.Counter
	aborted       prometheus.Counter
	duration      *prometheus.HistogramVec // by processor
	failures      *prometheus.CounterVec   // by processor
	panics        *prometheus.CounterVec   // by processor
	shortCircuits *prometheus.CounterVec   // by processor
	replies       *prometheus.CounterVec   // by channel
}

// newPipelineMetrics creates and registers pipeline metrics with the
// provided registry. A nil registry disables metrics.
func newPipelineMetrics(registry *metric.MetricsRegistry) (*pipelineMetrics, error) {
	if registry == nil {
		return nil, nil
	}

	m := &pipelineMetrics{
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "radeweb",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs started",
		}),
		aborted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "radeweb",
			Subsystem: "pipeline",
			Name:      "runs_aborted_total",
			Help:      "Pipeline runs abandoned between steps due to cancellation",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "radeweb",
			Subsystem: "pipeline",
			Name:      "processor_duration_seconds",
			Help:      "Per-processor execution duration",
			Buckets:   prometheus.DefBuckets,
		}, []string{"processor"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "radeweb",
			Subsystem: "pipeline",
			Name:      "processor_failures_total",
			Help:      "Processor invocations that reported an expected failure",
		}, []string{"processor"}),
		panics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "radeweb",
			Subsystem: "pipeline",
			Name:      "processor_panics_total",
			Help:      "Processor invocations contained after a panic",
		}, []string{"processor"}),
		shortCircuits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "radeweb",
			Subsystem: "pipeline",
			Name:      "short_circuits_total",
			Help:      "Runs terminated early by a processor",
		}, []string{"processor"}),
		replies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "radeweb",
			Subsystem: "pipeline",
			Name:      "replies_dispatched_total",
			Help:      "Replies dispatched through account connections",
		}, []string{"channel"}),
	}

	collectors := []struct {
		name string
		c    prometheus.Collector
	}{
		{"runs_total", m.runs},
		{"runs_aborted_total", m.aborted},
		{"processor_duration_seconds", m.duration},
		{"processor_failures_total", m.failures},
		{"processor_panics_total", m.panics},
		{"short_circuits_total", m.shortCircuits},
		{"replies_dispatched_total", m.replies},
	}
	for _, col := range collectors {
		if err := registry.Register("pipeline", col.name, col.c); err != nil {
			return nil, err
		}
	}

	return m, nil
}
