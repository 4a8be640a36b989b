// Package ignorefilter drops group traffic the account has muted.
// It runs first so ignored traffic never reaches persistence or broadcast.
package ignorefilter

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaraLowell/RadeWeb-sub002/collab"
	"github.com/JaraLowell/RadeWeb-sub002/message"
	"github.com/JaraLowell/RadeWeb-sub002/pipeline"
)

// DefaultPriority places the filter ahead of every other built-in.
const DefaultPriority = 5

// Processor asks the group policy whether the target group is ignored for
// the account and short-circuits the whole run when it is.
type Processor struct {
	policy collab.GroupPolicy
	logger *slog.Logger
}

// New creates the ignore filter.
func New(policy collab.GroupPolicy, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		policy: policy,
		logger: logger.With("processor", "ignore-filter"),
	}
}

// Name implements pipeline.Processor.
func (p *Processor) Name() string { return "ignore-filter" }

// DefaultPriority implements pipeline.Processor.
func (p *Processor) DefaultPriority() int { return DefaultPriority }

// Process stops the pipeline for ignored group traffic. Policy lookups
// fail open: on error the message passes through.
func (p *Processor) Process(ctx context.Context, msg message.ChatMessage, pc *pipeline.Context) pipeline.Result {
	if !msg.IsGroup() || msg.TargetID == uuid.Nil || p.policy == nil {
		return pipeline.Continue()
	}

	ignored, err := p.policy.Ignored(ctx, pc.AccountID, msg.TargetID)
	if err != nil {
		p.logger.Warn("group policy lookup failed, passing message through",
			"account", pc.AccountID, "group", msg.TargetID, "error", err)
		return pipeline.Continue()
	}

	if ignored {
		p.logger.Debug("dropping ignored group message",
			"account", pc.AccountID, "group", msg.TargetID)
		return pipeline.Stop()
	}
	return pipeline.Continue()
}
