// Package persist hands the current message to the message store, at most
// once per pipeline run.
package persist

import (
	"context"
	"log/slog"

	"github.com/JaraLowell/RadeWeb-sub002/collab"
	"github.com/JaraLowell/RadeWeb-sub002/errors"
	"github.com/JaraLowell/RadeWeb-sub002/message"
	"github.com/JaraLowell/RadeWeb-sub002/metric"
	"github.com/JaraLowell/RadeWeb-sub002/pipeline"
)

// DefaultPriority runs before broadcast so stored and shown state stay
// consistent.
const DefaultPriority = 20

// Processor invokes the message store. The context's Persisted flag is the
// idempotence guard: two persist-like processors in one chain still produce
// a single Save call.
type Processor struct {
	store   collab.MessageStore
	logger  *slog.Logger
	metrics *effectMetrics
}

// New creates the persistence processor. The metrics registry may be nil.
func New(store collab.MessageStore, registry *metric.MetricsRegistry, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("processor", "persist")

	metrics, err := newEffectMetrics(registry, "persist")
	if err != nil {
		logger.Error("failed to initialize persist metrics", "error", err)
		metrics = nil
	}

	return &Processor{
		store:   store,
		logger:  logger,
		metrics: metrics,
	}
}

// Name implements pipeline.Processor.
func (p *Processor) Name() string { return "persist" }

// DefaultPriority implements pipeline.Processor.
func (p *Processor) DefaultPriority() int { return DefaultPriority }

// Process saves the current message unless the run already persisted one.
// A store failure is reported as a processor error; the run continues and
// no retry happens here.
func (p *Processor) Process(ctx context.Context, msg message.ChatMessage, pc *pipeline.Context) pipeline.Result {
	if pc.Persisted || p.store == nil {
		return pipeline.Continue()
	}

	if err := p.store.Save(ctx, msg); err != nil {
		if p.metrics != nil {
			p.metrics.failed.Inc()
		}
		return pipeline.Fail(errors.Wrap(err, "PersistProcessor", "Process", "message save"))
	}

	pc.Persisted = true
	if p.metrics != nil {
		p.metrics.done.Inc()
	}
	return pipeline.Continue()
}
