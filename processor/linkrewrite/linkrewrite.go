// Package linkrewrite rewrites embedded world links and URLs in message
// text before later stages see it.
package linkrewrite

import (
	"context"
	"log/slog"

	"github.com/JaraLowell/RadeWeb-sub002/collab"
	"github.com/JaraLowell/RadeWeb-sub002/message"
	"github.com/JaraLowell/RadeWeb-sub002/pipeline"
)

// DefaultPriority runs after filtering, before relay and fan-out.
const DefaultPriority = 10

// Processor delegates text rewriting to the link-rewrite collaborator and
// replaces the message when the text changed.
type Processor struct {
	rewriter collab.LinkRewriter
	logger   *slog.Logger
}

// New creates the link rewrite processor.
func New(rewriter collab.LinkRewriter, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		rewriter: rewriter,
		logger:   logger.With("processor", "link-rewrite"),
	}
}

// Name implements pipeline.Processor.
func (p *Processor) Name() string { return "link-rewrite" }

// DefaultPriority implements pipeline.Processor.
func (p *Processor) DefaultPriority() int { return DefaultPriority }

// Process rewrites links in the text. On rewrite failure the original
// message continues unchanged.
func (p *Processor) Process(ctx context.Context, msg message.ChatMessage, pc *pipeline.Context) pipeline.Result {
	if p.rewriter == nil {
		return pipeline.Continue()
	}

	rewritten, err := p.rewriter.Rewrite(ctx, msg.Text, pc.AccountID)
	if err != nil {
		p.logger.Warn("link rewrite failed, keeping original text",
			"account", pc.AccountID, "error", err)
		return pipeline.Continue()
	}

	if rewritten == msg.Text {
		return pipeline.Continue()
	}
	// WithText re-stamps the locale time strings on the replacement.
	return pipeline.Continue().Replace(msg.WithText(rewritten))
}
