// Package chatstore persists chat messages and serves the short rolling
// history consumed by pipeline runs.
//
// Two storage modes mirror the deployment options: "memory" keeps a
// bounded per-session ring in process (development and tests), "kv" keeps
// the same envelope in a NATS JetStream key-value bucket so history
// survives restarts. History is always returned most-recent-first.
package chatstore

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/JaraLowell/RadeWeb-sub002/errors"
	"github.com/JaraLowell/RadeWeb-sub002/message"
	"github.com/JaraLowell/RadeWeb-sub002/pkg/cache"
	"github.com/JaraLowell/RadeWeb-sub002/pkg/retry"
)

// Storage mode constants
const (
	ModeMemory = "memory"
	ModeKV     = "kv"
)

// localSession keys history for messages that carry no session identifier.
const localSession = "local"

// Config holds chat store configuration.
type Config struct {
	Mode         string // ModeMemory or ModeKV
	HistoryLimit int    // Messages kept per account+session (default 20)
	CacheSize    int    // KV read cache entries (default 256)
}

// DefaultConfig returns the default chat store configuration.
func DefaultConfig() Config {
	return Config{
		Mode:         ModeMemory,
		HistoryLimit: 20,
		CacheSize:    256,
	}
}

// Store implements collab.MessageStore and collab.HistoryProvider.
type Store struct {
	mode   string
	limit  int
	logger *slog.Logger

	// kv mode
	kv       jetstream.KeyValue
	retryCfg retry.Config
	cache    *cache.LRU[[]message.ChatMessage]

	// memory mode
	mu   sync.RWMutex
	ring map[string][]message.ChatMessage
}

// New creates a chat store. kv may be nil in memory mode and is required
// in kv mode.
func New(cfg Config, kv jetstream.KeyValue, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeMemory
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultConfig().HistoryLimit
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultConfig().CacheSize
	}

	switch cfg.Mode {
	case ModeMemory, ModeKV:
	default:
		return nil, errors.WrapInvalid(
			fmt.Errorf("unknown storage mode %q", cfg.Mode),
			"ChatStore", "New", "mode validation")
	}
	if cfg.Mode == ModeKV && kv == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig,
			"ChatStore", "New", "kv bucket validation")
	}

	return &Store{
		mode:     cfg.Mode,
		limit:    cfg.HistoryLimit,
		logger:   logger.With("component", "chatstore"),
		kv:       kv,
		retryCfg: retry.DefaultConfig(),
		cache:    cache.NewLRU[[]message.ChatMessage](cfg.CacheSize),
		ring:     make(map[string][]message.ChatMessage),
	}, nil
}

// Save appends the message to its account+session history, trimming the
// envelope to the configured limit. Failures are transient from the
// caller's perspective; the persist processor reports them and the run
// continues.
func (s *Store) Save(ctx context.Context, msg message.ChatMessage) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	key := s.key(msg.AccountID, msg.SessionID)

	if s.mode == ModeMemory {
		s.mu.Lock()
		s.ring[key] = prepend(s.ring[key], msg, s.limit)
		s.mu.Unlock()
		return nil
	}

	// One gateway process owns an account's traffic and runs its saves
	// sequentially, so read-modify-write per key is safe here.
	current, err := s.loadKV(ctx, key)
	if err != nil {
		return err
	}
	updated := prepend(current, msg, s.limit)

	data, err := json.Marshal(updated)
	if err != nil {
		return errors.WrapInvalid(err, "ChatStore", "Save", "envelope encode")
	}

	err = retry.Do(ctx, s.retryCfg, func() error {
		_, putErr := s.kv.Put(ctx, key, data)
		return putErr
	})
	if err != nil {
		return errors.WrapTransient(errors.ErrStorageUnavailable, "ChatStore", "Save",
			fmt.Sprintf("kv put for %s: %v", key, err))
	}

	s.cache.Set(key, updated)
	return nil
}

// RecentHistory returns up to limit messages for the account+session,
// most-recent-first. A missing key is empty history, not an error.
func (s *Store) RecentHistory(ctx context.Context, accountID, sessionID string, limit int) ([]message.ChatMessage, error) {
	if limit <= 0 || limit > s.limit {
		limit = s.limit
	}
	key := s.key(accountID, sessionID)

	if s.mode == ModeMemory {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return clip(s.ring[key], limit), nil
	}

	if cached, ok := s.cache.Get(key); ok {
		return clip(cached, limit), nil
	}

	history, err := s.loadKV(ctx, key)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, history)
	return clip(history, limit), nil
}

// loadKV reads and decodes the history envelope for key.
func (s *Store) loadKV(ctx context.Context, key string) ([]message.ChatMessage, error) {
	entry, err := s.kv.Get(ctx, key)
	if err != nil {
		if stderrors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, errors.WrapTransient(err, "ChatStore", "loadKV", "kv get")
	}

	var history []message.ChatMessage
	if err := json.Unmarshal(entry.Value(), &history); err != nil {
		// Corrupt envelopes are dropped rather than blocking new traffic.
		s.logger.Warn("discarding unreadable history envelope", "key", key, "error", err)
		return nil, nil
	}
	return history, nil
}

// key builds the storage key for an account+session pair. KV keys forbid
// most punctuation, so both parts are sanitized.
func (s *Store) key(accountID, sessionID string) string {
	if sessionID == "" {
		sessionID = localSession
	}
	return sanitize(accountID) + "." + sanitize(sessionID)
}

func sanitize(part string) string {
	var b strings.Builder
	for _, r := range part {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

// prepend puts msg at the front and trims to limit (most-recent-first).
func prepend(history []message.ChatMessage, msg message.ChatMessage, limit int) []message.ChatMessage {
	updated := make([]message.ChatMessage, 0, len(history)+1)
	updated = append(updated, msg)
	updated = append(updated, history...)
	if len(updated) > limit {
		updated = updated[:limit]
	}
	return updated
}

// clip returns a copy of at most limit leading entries.
func clip(history []message.ChatMessage, limit int) []message.ChatMessage {
	if len(history) > limit {
		history = history[:limit]
	}
	out := make([]message.ChatMessage, len(history))
	copy(out, history)
	return out
}
