package collab

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaraLowell/RadeWeb-sub002/message"
)

// Account is the relay-relevant slice of an account record.
type Account struct {
	ID          string    // Account identifier, keys everything per tenant
	DisplayName string    // Human-readable account name
	SelfID      uuid.UUID // The account's own avatar identity in the world
	OwnerID     uuid.UUID // Identity allowed to run commands against this account
	RelayTarget uuid.UUID // Identity incoming IMs are forwarded to; Nil disables relay
}

// Connection is an account's live link to the world server.
// Implementations synchronize their own outbound sends; the pipeline only
// issues calls sequentially within one run.
type Connection interface {
	// Connected reports whether the link is currently usable.
	Connected() bool

	// SendChat sends text to local chat.
	SendChat(ctx context.Context, text string) error

	// SendIM sends text as a direct message to the given identity.
	SendIM(ctx context.Context, text string, target uuid.UUID) error
}

// ConnectionResolver looks up an account's live connection.
type ConnectionResolver interface {
	// Connection returns the live connection for the account, or nil when
	// the account is not connected. A nil connection is not an error.
	Connection(accountID string) Connection
}

// HistoryProvider serves the short rolling message history for one
// account+session. The returned slice is ordered most-recent-first and is
// read-only for callers.
type HistoryProvider interface {
	RecentHistory(ctx context.Context, accountID, sessionID string, limit int) ([]message.ChatMessage, error)
}

// MessageStore persists chat messages.
type MessageStore interface {
	Save(ctx context.Context, msg message.ChatMessage) error
}

// Broadcaster pushes a message to all live subscribers of an account.
type Broadcaster interface {
	Publish(ctx context.Context, accountID string, msg message.ChatMessage) error
}

// GroupPolicy answers whether group traffic should be dropped for an account.
type GroupPolicy interface {
	Ignored(ctx context.Context, accountID string, groupID uuid.UUID) (bool, error)
}

// LinkRewriter rewrites world links and URLs embedded in message text.
type LinkRewriter interface {
	// Rewrite returns the text with embedded links rewritten. When nothing
	// matches it returns the input unchanged.
	Rewrite(ctx context.Context, text, accountID string) (string, error)
}

// Commander recognizes and executes chat commands sent over IM.
type Commander interface {
	// IsCommand reports whether the text carries a recognized command prefix.
	IsCommand(text string) bool

	// Execute runs the command for the sender. ok=false means the command
	// was denied or produced nothing; that is a policy outcome, not an error.
	Execute(ctx context.Context, accountID string, senderID uuid.UUID, senderName, text string) (ok bool, response string, err error)
}

// AutoResponder generates automated replies to normal chat.
type AutoResponder interface {
	// Enabled reports whether the responder should be consulted at all.
	Enabled() bool

	// Respond produces a reply to msg given the recent history
	// (most-recent-first, as served by HistoryProvider). An empty string
	// means no reply.
	Respond(ctx context.Context, msg message.ChatMessage, history []message.ChatMessage) (string, error)
}

// AccountDirectory looks up account records.
type AccountDirectory interface {
	// Account returns the record for the given account, or nil when unknown.
	Account(ctx context.Context, accountID string) (*Account, error)
}
