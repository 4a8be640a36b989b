// Package websocket pushes broadcast chat events to connected browser
// clients. The gateway subscribes to the per-account broadcast subjects
// once and fans each event out to the websocket clients registered for
// that account.
package websocket

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"

	"github.com/JaraLowell/RadeWeb-sub002/errors"
	"github.com/JaraLowell/RadeWeb-sub002/transport/natsbroadcast"
)

// Subscriber is the slice of the NATS client the gateway needs.
type Subscriber interface {
	Subscribe(subject string, handler nats.MsgHandler) (*nats.Subscription, error)
}

// Config holds gateway configuration.
type Config struct {
	Addr string // HTTP bind address, e.g. ":8080"
	Path string // Websocket endpoint path (default "/ws")
}

// DefaultConfig returns the default gateway configuration.
func DefaultConfig() Config {
	return Config{
		Addr: ":8080",
		Path: "/ws",
	}
}

// sendBuffer is the per-client queue depth; a client that cannot keep up
// is disconnected rather than allowed to stall the fan-out.
const sendBuffer = 64

type client struct {
	accountID string
	conn      *websocket.Conn
	send      chan []byte
}

// Gateway is the websocket push endpoint for web clients.
type Gateway struct {
	addr       string
	path       string
	subscriber Subscriber
	logger     *slog.Logger
	upgrader   websocket.Upgrader

	clientsMu sync.RWMutex
	clients   map[*client]struct{}

	lifecycleMu sync.Mutex
	running     bool
	server      *http.Server
	shutdown    chan struct{}
	wg          sync.WaitGroup
}

// New creates a gateway serving cfg.Addr.
func New(cfg Config, subscriber Subscriber, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultConfig().Addr
	}
	if cfg.Path == "" {
		cfg.Path = DefaultConfig().Path
	}

	return &Gateway{
		addr:       cfg.Addr,
		path:       cfg.Path,
		subscriber: subscriber,
		logger:     logger.With("component", "ws-gateway"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The surrounding web frontend enforces origin/auth; the
			// gateway itself accepts the upgraded request.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// Start subscribes to the broadcast subject space and begins serving.
func (g *Gateway) Start() error {
	g.lifecycleMu.Lock()
	defer g.lifecycleMu.Unlock()

	if g.running {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Gateway", "Start", "already running")
	}

	if _, err := g.subscriber.Subscribe(natsbroadcast.SubjectPrefix+">", g.handleEvent); err != nil {
		return errors.Wrap(err, "Gateway", "Start", "broadcast subscription")
	}

	mux := http.NewServeMux()
	mux.HandleFunc(g.path, g.handleWS)

	g.shutdown = make(chan struct{})
	g.server = &http.Server{
		Addr:              g.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		if err := g.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			g.logger.Error("gateway server stopped", "error", err)
		}
	}()

	g.running = true
	g.logger.Info("websocket gateway started", "addr", g.addr, "path", g.path)
	return nil
}

// Stop closes all clients and shuts the server down within timeout.
func (g *Gateway) Stop(timeout time.Duration) error {
	g.lifecycleMu.Lock()
	defer g.lifecycleMu.Unlock()

	if !g.running {
		return nil
	}
	close(g.shutdown)

	g.clientsMu.Lock()
	for c := range g.clients {
		close(c.send)
		delete(g.clients, c)
	}
	g.clientsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	err := g.server.Shutdown(ctx)

	g.wg.Wait()
	g.running = false
	g.logger.Info("websocket gateway stopped")
	return err
}

// handleEvent fans a broadcast event out to the account's clients.
// The account is the final subject token.
func (g *Gateway) handleEvent(msg *nats.Msg) {
	accountID := strings.TrimPrefix(msg.Subject, natsbroadcast.SubjectPrefix)
	if accountID == "" || accountID == msg.Subject {
		return
	}

	g.clientsMu.RLock()
	defer g.clientsMu.RUnlock()

	for c := range g.clients {
		if c.accountID != accountID {
			continue
		}
		select {
		case c.send <- msg.Data:
		default:
			g.logger.Warn("dropping slow websocket client", "account", accountID)
			// Closing the send channel ends the writer, which closes the
			// socket; removal happens in the reader's cleanup.
			go g.removeClient(c)
		}
	}
}

// handleWS upgrades a browser connection and registers it for an account.
func (g *Gateway) handleWS(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("account")
	if accountID == "" {
		http.Error(w, "missing account parameter", http.StatusBadRequest)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		accountID: accountID,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
	}

	g.clientsMu.Lock()
	g.clients[c] = struct{}{}
	count := len(g.clients)
	g.clientsMu.Unlock()
	g.logger.Info("websocket client connected", "account", accountID, "clients", count)

	g.wg.Add(2)
	go g.writeLoop(c)
	go g.readLoop(c)
}

// writeLoop forwards queued events to the socket until the send channel
// closes.
func (g *Gateway) writeLoop(c *client) {
	defer g.wg.Done()
	defer c.conn.Close()

	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			g.logger.Debug("websocket write failed", "account", c.accountID, "error", err)
			return
		}
	}
}

// readLoop consumes control frames and detects the client going away.
func (g *Gateway) readLoop(c *client) {
	defer g.wg.Done()
	defer g.removeClient(c)

	c.conn.SetReadLimit(1024)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// removeClient unregisters and closes a client. Safe to call twice.
func (g *Gateway) removeClient(c *client) {
	g.clientsMu.Lock()
	_, present := g.clients[c]
	if present {
		delete(g.clients, c)
		close(c.send)
	}
	g.clientsMu.Unlock()

	if present {
		g.logger.Info("websocket client disconnected", "account", c.accountID)
	}
}

// ClientCount returns the number of connected clients, for health checks.
func (g *Gateway) ClientCount() int {
	g.clientsMu.RLock()
	defer g.clientsMu.RUnlock()
	return len(g.clients)
}
