// Package broadcast pushes the current message to the account's live web
// subscribers, at most once per pipeline run.
package broadcast

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JaraLowell/RadeWeb-sub002/collab"
	"github.com/JaraLowell/RadeWeb-sub002/errors"
	"github.com/JaraLowell/RadeWeb-sub002/message"
	"github.com/JaraLowell/RadeWeb-sub002/metric"
	"github.com/JaraLowell/RadeWeb-sub002/pipeline"
)

// DefaultPriority runs after persistence by convention; the context flags,
// not the chain structure, keep each effect at-most-once.
const DefaultPriority = 30

// Processor invokes the broadcast collaborator, guarded by the context's
// Broadcast flag.
type Processor struct {
	broadcaster collab.Broadcaster
	logger      *slog.Logger
	published   prometheus.Counter
	failed      prometheus.Counter
}

// New creates the broadcast processor. The metrics registry may be nil.
func New(broadcaster collab.Broadcaster, registry *metric.MetricsRegistry, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}

	p := &Processor{
		broadcaster: broadcaster,
		logger:      logger.With("processor", "broadcast"),
	}

	if registry != nil {
		p.published = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "radeweb",
			Subsystem: "broadcast",
			Name:      "published_total",
			Help:      "Messages pushed to web subscribers",
		})
		p.failed = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "radeweb",
			Subsystem: "broadcast",
			Name:      "publish_failures_total",
			Help:      "Broadcast publishes that failed this run",
		})
		for name, c := range map[string]prometheus.Counter{
			"published_total":        p.published,
			"publish_failures_total": p.failed,
		} {
			if err := registry.Register("broadcast", name, c); err != nil {
				p.logger.Error("failed to register broadcast metric", "metric", name, "error", err)
			}
		}
	}

	return p
}

// Name implements pipeline.Processor.
func (p *Processor) Name() string { return "broadcast" }

// DefaultPriority implements pipeline.Processor.
func (p *Processor) DefaultPriority() int { return DefaultPriority }

// Process publishes the current message unless the run already broadcast
// one. A publish failure is reported as a processor error; the run
// continues.
func (p *Processor) Process(ctx context.Context, msg message.ChatMessage, pc *pipeline.Context) pipeline.Result {
	if pc.Broadcast || p.broadcaster == nil {
		return pipeline.Continue()
	}

	if err := p.broadcaster.Publish(ctx, pc.AccountID, msg); err != nil {
		if p.failed != nil {
			p.failed.Inc()
		}
		return pipeline.Fail(errors.Wrap(err, "BroadcastProcessor", "Process", "publish"))
	}

	pc.Broadcast = true
	if p.published != nil {
		p.published.Inc()
	}
	return pipeline.Continue()
}
