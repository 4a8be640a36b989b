package pipeline

import (
	"github.com/JaraLowell/RadeWeb-sub002/collab"
	"github.com/JaraLowell/RadeWeb-sub002/message"
)

// Context is the per-run mutable scratch state shared by all processors of
// one pipeline invocation. It is created by the pipeline, passed by
// reference to each processor, and discarded when the run ends; it is never
// shared across runs or accounts.
type Context struct {
	// AccountID identifies the tenant this run belongs to.
	AccountID string

	// Conn is the account's live connection, or nil when the account is
	// not connected. Processors must tolerate a nil or disconnected value.
	Conn collab.Connection

	// History holds the recent messages for this account+session,
	// most-recent-first. It reflects state before the current message is
	// persisted; processors must not assume the current message is
	// included.
	History []message.ChatMessage

	// Persisted and Broadcast are idempotence guards: each effect happens
	// at most once per run, enforced here rather than by chain structure.
	Persisted bool
	Broadcast bool
}
