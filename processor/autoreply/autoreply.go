// Package autoreply generates automated replies to normal chat through
// the auto-reply collaborator.
package autoreply

import (
	"context"
	"log/slog"

	"github.com/JaraLowell/RadeWeb-sub002/collab"
	"github.com/JaraLowell/RadeWeb-sub002/message"
	"github.com/JaraLowell/RadeWeb-sub002/pipeline"
)

// DefaultPriority runs last among the built-ins.
const DefaultPriority = 50

// Processor consults the responder with the current message and the run's
// recent history and supplies the generated text as the reply.
type Processor struct {
	responder collab.AutoResponder
	logger    *slog.Logger
}

// New creates the auto-reply processor.
func New(responder collab.AutoResponder, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		responder: responder,
		logger:    logger.With("processor", "auto-reply"),
	}
}

// Name implements pipeline.Processor.
func (p *Processor) Name() string { return "auto-reply" }

// DefaultPriority implements pipeline.Processor.
func (p *Processor) DefaultPriority() int { return DefaultPriority }

// Process asks the responder for a reply to normal chat from a known
// sender. Generator failures are logged and the run continues silently.
func (p *Processor) Process(ctx context.Context, msg message.ChatMessage, pc *pipeline.Context) pipeline.Result {
	if p.responder == nil || msg.Channel != message.ChannelNormal || !msg.HasSender() || !p.responder.Enabled() {
		return pipeline.Continue()
	}

	reply, err := p.responder.Respond(ctx, msg, pc.History)
	if err != nil {
		p.logger.Warn("auto-reply generation failed",
			"account", pc.AccountID, "error", err)
		return pipeline.Continue()
	}

	if reply != "" {
		return pipeline.Continue().WithReply(reply)
	}
	return pipeline.Continue()
}
