// Package natsclient provides a thin NATS connection wrapper with
// reconnect logging and JetStream key-value access.
package natsclient

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/JaraLowell/RadeWeb-sub002/errors"
)

// Client manages one NATS connection shared by the relay's adapters.
type Client struct {
	url    string
	opts   options
	logger *slog.Logger

	mu   sync.RWMutex
	conn *nats.Conn
	js   jetstream.JetStream
	subs []*nats.Subscription
}

// New creates a client for the given NATS URL. Connect must be called
// before use.
func New(url string, opts ...Option) *Client {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Client{
		url:    url,
		opts:   o,
		logger: o.logger.With("component", "natsclient"),
	}
}

// Connect establishes the connection and the JetStream context.
func (c *Client) Connect() error {
	natsOpts := []nats.Option{
		nats.Name(c.opts.name),
		nats.Timeout(c.opts.connectTimeout),
		nats.ReconnectWait(c.opts.reconnectWait),
		nats.MaxReconnects(c.opts.maxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			c.logger.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			c.logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			c.logger.Info("NATS connection closed")
		}),
	}

	conn, err := nats.Connect(c.url, natsOpts...)
	if err != nil {
		return errors.WrapTransient(err, "Client", "Connect", "nats connect")
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return errors.WrapFatal(err, "Client", "Connect", "jetstream context")
	}

	c.mu.Lock()
	c.conn = conn
	c.js = js
	c.mu.Unlock()

	c.logger.Info("connected to NATS", "url", conn.ConnectedUrl())
	return nil
}

// Connected reports whether the underlying connection is usable.
func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && c.conn.IsConnected()
}

// Publish sends data on the given subject.
func (c *Client) Publish(subject string, data []byte) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		return errors.WrapTransient(errors.ErrNoConnection, "Client", "Publish", "connection check")
	}
	if err := conn.Publish(subject, data); err != nil {
		return errors.WrapTransient(err, "Client", "Publish", "publish")
	}
	return nil
}

// Subscribe registers a handler for the given subject. Subscriptions are
// tracked and drained on Close.
func (c *Client) Subscribe(subject string, handler nats.MsgHandler) (*nats.Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, errors.WrapTransient(errors.ErrNoConnection, "Client", "Subscribe", "connection check")
	}
	sub, err := c.conn.Subscribe(subject, handler)
	if err != nil {
		return nil, errors.WrapTransient(err, "Client", "Subscribe", "subscribe")
	}
	c.subs = append(c.subs, sub)
	return sub, nil
}

// KeyValue opens the named JetStream KV bucket, creating it when missing.
func (c *Client) KeyValue(ctx context.Context, bucket string) (jetstream.KeyValue, error) {
	c.mu.RLock()
	js := c.js
	c.mu.RUnlock()

	if js == nil {
		return nil, errors.WrapTransient(errors.ErrNoConnection, "Client", "KeyValue", "jetstream check")
	}

	kv, err := js.KeyValue(ctx, bucket)
	if err == nil {
		return kv, nil
	}
	if !stderrors.Is(err, jetstream.ErrBucketNotFound) {
		return nil, errors.WrapTransient(err, "Client", "KeyValue", "bucket lookup")
	}

	kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:  bucket,
		History: 1,
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "Client", "KeyValue", "bucket create")
	}
	return kv, nil
}

// Close drains subscriptions and closes the connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, sub := range c.subs {
		if err := sub.Drain(); err != nil {
			c.logger.Warn("failed to drain subscription", "subject", sub.Subject, "error", err)
		}
	}
	c.subs = nil

	if c.conn != nil {
		if err := c.conn.Drain(); err != nil {
			c.logger.Warn("failed to drain connection", "error", err)
			c.conn.Close()
		}
		c.conn = nil
		c.js = nil
	}
}

// options holds tunables for the client.
type options struct {
	name           string
	connectTimeout time.Duration
	reconnectWait  time.Duration
	maxReconnects  int
	logger         *slog.Logger
}

func defaultOptions() options {
	return options{
		name:           "radeweb",
		connectTimeout: 5 * time.Second,
		reconnectWait:  2 * time.Second,
		maxReconnects:  -1, // retry forever
		logger:         slog.Default(),
	}
}

// Option customizes client construction.
type Option func(*options)

// WithName sets the connection name visible in NATS monitoring.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithConnectTimeout sets the initial connect timeout.
func WithConnectTimeout(d time.Duration) Option {
	return func(o *options) { o.connectTimeout = d }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
