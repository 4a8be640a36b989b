package message

import (
	"time"

	"github.com/google/uuid"

	"github.com/JaraLowell/RadeWeb-sub002/errors"
)

// Channel classifies how a chat message was delivered.
// The set is open: downstream processors compare against the tags they
// understand and pass everything else through.
type Channel string

const (
	// ChannelNormal is local/nearby chat
	ChannelNormal Channel = "normal"
	// ChannelIM is a point-to-point direct message
	ChannelIM Channel = "im"
	// ChannelGroup is group chat, TargetID carries the group identity
	ChannelGroup Channel = "group"
	// ChannelSystem is server-originated notices
	ChannelSystem Channel = "system"
)

// Time layouts for the locale-formatted strings shown to web clients.
const (
	timeShortLayout = "15:04"
	timeFullLayout  = "Mon, 02 Jan 2006 15:04:05"
)

// ChatMessage is one chat or IM event for a single account.
//
// The zero value is not valid; use New. Fields are exported for JSON
// encoding but treated as read-only by processors — replacements are
// produced with WithText.
type ChatMessage struct {
	ID            string    `json:"id"`
	FromName      string    `json:"from_name"`
	FromID        uuid.UUID `json:"from_id,omitempty"`
	TargetID      uuid.UUID `json:"target_id,omitempty"`
	Text          string    `json:"text"`
	Channel       Channel   `json:"channel"`
	ChannelNumber int32     `json:"channel_number"`
	Timestamp     time.Time `json:"timestamp"`
	AccountID     string    `json:"account_id"`
	SessionID     string    `json:"session_id,omitempty"`
	SessionName   string    `json:"session_name,omitempty"`
	TimeShort     string    `json:"time_short"`
	TimeFull      string    `json:"time_full"`
}

// Option configures optional ChatMessage fields at construction time.
type Option func(*ChatMessage)

// WithSender sets the sender identity.
func WithSender(id uuid.UUID) Option {
	return func(m *ChatMessage) { m.FromID = id }
}

// WithTarget sets the target identity (group or IM recipient).
func WithTarget(id uuid.UUID) Option {
	return func(m *ChatMessage) { m.TargetID = id }
}

// WithSession sets the session identity and display name.
func WithSession(id, name string) Option {
	return func(m *ChatMessage) {
		m.SessionID = id
		m.SessionName = name
	}
}

// WithChannelNumber sets the numeric chat channel.
func WithChannelNumber(n int32) Option {
	return func(m *ChatMessage) { m.ChannelNumber = n }
}

// WithTime sets a specific timestamp instead of time.Now().
// Useful for historical import and testing.
func WithTime(ts time.Time) Option {
	return func(m *ChatMessage) { m.Timestamp = ts.UTC() }
}

// New creates a ChatMessage for the given account, stamping a unique ID,
// the current UTC timestamp, and the locale-formatted time strings.
// Absent text is represented as the empty string, never as a missing value.
func New(accountID, fromName, text string, channel Channel, opts ...Option) ChatMessage {
	m := ChatMessage{
		ID:        uuid.NewString(),
		FromName:  fromName,
		Text:      text,
		Channel:   channel,
		Timestamp: time.Now().UTC(),
		AccountID: accountID,
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.stampLocale()
	return m
}

// WithText returns a copy of the message carrying new text and re-stamped
// locale time strings. The receiver is unchanged.
func (m ChatMessage) WithText(text string) ChatMessage {
	m.Text = text
	m.stampLocale()
	return m
}

// IsIM reports whether the message is a point-to-point direct message.
func (m ChatMessage) IsIM() bool { return m.Channel == ChannelIM }

// IsGroup reports whether the message is group traffic.
func (m ChatMessage) IsGroup() bool { return m.Channel == ChannelGroup }

// HasSender reports whether the sender identity is known.
func (m ChatMessage) HasSender() bool { return m.FromID != uuid.Nil }

// Validate checks that the message can be processed.
func (m ChatMessage) Validate() error {
	if m.AccountID == "" {
		return errors.WrapInvalid(errors.ErrEmptyAccount, "ChatMessage", "Validate", "account check")
	}
	if m.Channel == "" {
		return errors.WrapInvalid(errors.ErrUnknownChannel, "ChatMessage", "Validate", "channel check")
	}
	return nil
}

func (m *ChatMessage) stampLocale() {
	local := m.Timestamp.Local()
	m.TimeShort = local.Format(timeShortLayout)
	m.TimeFull = local.Format(timeFullLayout)
}
