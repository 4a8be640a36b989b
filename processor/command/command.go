// Package command recognizes chat commands in direct messages and
// delegates authorization and execution to the command collaborator.
package command

import (
	"context"
	"log/slog"

	"github.com/JaraLowell/RadeWeb-sub002/collab"
	"github.com/JaraLowell/RadeWeb-sub002/message"
	"github.com/JaraLowell/RadeWeb-sub002/pipeline"
)

// DefaultPriority runs after fan-out so command traffic is still stored
// and shown like any other IM.
const DefaultPriority = 40

// Processor delegates to the command collaborator and supplies its
// response as the reply. Denial is a normal no-op, not an error.
type Processor struct {
	commander collab.Commander
	logger    *slog.Logger
}

// New creates the command processor.
func New(commander collab.Commander, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		commander: commander,
		logger:    logger.With("processor", "command"),
	}
}

// Name implements pipeline.Processor.
func (p *Processor) Name() string { return "command" }

// DefaultPriority implements pipeline.Processor.
func (p *Processor) DefaultPriority() int { return DefaultPriority }

// Process executes a recognized command from a known IM sender. Execution
// failures are logged and the run continues with no reply.
func (p *Processor) Process(ctx context.Context, msg message.ChatMessage, pc *pipeline.Context) pipeline.Result {
	if p.commander == nil || !msg.IsIM() || !msg.HasSender() || !p.commander.IsCommand(msg.Text) {
		return pipeline.Continue()
	}

	ok, response, err := p.commander.Execute(ctx, pc.AccountID, msg.FromID, msg.FromName, msg.Text)
	if err != nil {
		p.logger.Warn("command execution failed",
			"account", pc.AccountID, "sender", msg.FromID, "error", err)
		return pipeline.Continue()
	}

	if ok && response != "" {
		return pipeline.Continue().WithReply(response)
	}
	return pipeline.Continue()
}
