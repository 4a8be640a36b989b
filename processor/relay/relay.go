// Package relay forwards incoming direct messages to the account's
// configured relay target.
package relay

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaraLowell/RadeWeb-sub002/collab"
	"github.com/JaraLowell/RadeWeb-sub002/message"
	"github.com/JaraLowell/RadeWeb-sub002/metric"
	"github.com/JaraLowell/RadeWeb-sub002/pipeline"
)

// DefaultPriority runs after link rewrite so the relayed copy carries the
// rewritten text.
const DefaultPriority = 15

const (
	// maxRelayRunes caps the visible characters in a relayed body.
	// Text beyond it is cut and marked with the ellipsis.
	maxRelayRunes = 800
	ellipsis      = "…"
)

// Processor forwards IMs to the relay target as a new direct message,
// embedding the original sender as a clickable agent reference.
// It never fails a run: every failure path logs and continues.
type Processor struct {
	directory collab.AccountDirectory
	logger    *slog.Logger
	metrics   *relayMetrics
}

// New creates the relay processor. The metrics registry may be nil.
func New(directory collab.AccountDirectory, registry *metric.MetricsRegistry, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("processor", "relay")

	metrics, err := newRelayMetrics(registry)
	if err != nil {
		logger.Error("failed to initialize relay metrics", "error", err)
		metrics = nil
	}

	return &Processor{
		directory: directory,
		logger:    logger,
		metrics:   metrics,
	}
}

// Name implements pipeline.Processor.
func (p *Processor) Name() string { return "relay" }

// DefaultPriority implements pipeline.Processor.
func (p *Processor) DefaultPriority() int { return DefaultPriority }

// Process relays the message when all of these hold: it is an IM from a
// known sender, the account has a relay target that is neither the zero
// identity, the account's own identity, nor the sender, and the account's
// connection is live.
func (p *Processor) Process(ctx context.Context, msg message.ChatMessage, pc *pipeline.Context) pipeline.Result {
	if !msg.IsIM() || !msg.HasSender() || p.directory == nil {
		return pipeline.Continue()
	}

	account, err := p.directory.Account(ctx, pc.AccountID)
	if err != nil {
		p.logger.Warn("account lookup failed, skipping relay",
			"account", pc.AccountID, "error", err)
		return pipeline.Continue()
	}
	if account == nil {
		return pipeline.Continue()
	}

	target := account.RelayTarget
	if target == uuid.Nil || target == account.SelfID || target == msg.FromID {
		return pipeline.Continue()
	}
	// A message from the account's own identity would echo back and forth.
	if msg.FromID == account.SelfID {
		return pipeline.Continue()
	}

	if pc.Conn == nil || !pc.Conn.Connected() {
		p.logger.Debug("no live connection, skipping relay", "account", pc.AccountID)
		return pipeline.Continue()
	}

	body := formatRelayBody(msg)
	if err := pc.Conn.SendIM(ctx, body, target); err != nil {
		p.logger.Warn("relay send failed",
			"account", pc.AccountID, "target", target, "error", err)
		if p.metrics != nil {
			p.metrics.failed.Inc()
		}
		return pipeline.Continue()
	}

	if p.metrics != nil {
		p.metrics.relayed.Inc()
	}
	return pipeline.Continue()
}

// formatRelayBody builds the forwarded copy: sender name, a clickable
// agent reference, and the (possibly truncated) text.
func formatRelayBody(msg message.ChatMessage) string {
	text, truncated := truncate(msg.Text, maxRelayRunes)
	if truncated {
		text += ellipsis
	}
	return fmt.Sprintf("%s (secondlife:///app/agent/%s/about): %s",
		msg.FromName, msg.FromID, text)
}

// truncate cuts s to at most limit visible characters.
func truncate(s string, limit int) (string, bool) {
	runes := []rune(s)
	if len(runes) <= limit {
		return s, false
	}
	return string(runes[:limit]), true
}
