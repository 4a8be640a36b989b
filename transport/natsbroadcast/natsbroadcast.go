// Package natsbroadcast publishes pipeline output onto per-account NATS
// subjects, where the websocket gateway (and any other subscriber) picks
// it up for delivery to web clients.
package natsbroadcast

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JaraLowell/RadeWeb-sub002/errors"
	"github.com/JaraLowell/RadeWeb-sub002/message"
	"github.com/JaraLowell/RadeWeb-sub002/metric"
)

// SubjectPrefix is the root of the broadcast subject space; the account
// identifier is appended as the final token.
const SubjectPrefix = "chat.events."

// Publisher is the slice of the NATS client the broadcaster needs.
type Publisher interface {
	Publish(subject string, data []byte) error
	Connected() bool
}

// Broadcaster implements collab.Broadcaster over NATS subjects.
type Broadcaster struct {
	publisher Publisher
	logger    *slog.Logger
	published *prometheus.CounterVec
}

// New creates a NATS broadcaster. The metrics registry may be nil.
func New(publisher Publisher, registry *metric.MetricsRegistry, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}

	b := &Broadcaster{
		publisher: publisher,
		logger:    logger.With("component", "natsbroadcast"),
	}

	if registry != nil {
		b.published = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "radeweb",
			Subsystem: "natsbroadcast",
			Name:      "published_total",
			Help:      "Broadcast events published to NATS",
		}, []string{"status"})
		if err := registry.Register("natsbroadcast", "published_total", b.published); err != nil {
			b.logger.Error("failed to register broadcast metric", "error", err)
			b.published = nil
		}
	}

	return b
}

// Subject returns the broadcast subject for an account.
func Subject(accountID string) string {
	return SubjectPrefix + accountID
}

// Publish encodes the message as JSON and publishes it on the account's
// subject.
func (b *Broadcaster) Publish(_ context.Context, accountID string, msg message.ChatMessage) error {
	if !b.publisher.Connected() {
		b.count("disconnected")
		return errors.WrapTransient(errors.ErrNoConnection, "Broadcaster", "Publish", "connection check")
	}

	data, err := json.Marshal(msg)
	if err != nil {
		b.count("encode_error")
		return errors.WrapInvalid(err, "Broadcaster", "Publish", "message encode")
	}

	if err := b.publisher.Publish(Subject(accountID), data); err != nil {
		b.count("publish_error")
		return errors.WrapTransient(err, "Broadcaster", "Publish", "nats publish")
	}

	b.count("ok")
	return nil
}

func (b *Broadcaster) count(status string) {
	if b.published != nil {
		b.published.WithLabelValues(status).Inc()
	}
}
