package chatstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaraLowell/RadeWeb-sub002/message"
)

func memoryStore(t *testing.T, limit int) *Store {
	t.Helper()
	s, err := New(Config{Mode: ModeMemory, HistoryLimit: limit}, nil, nil)
	require.NoError(t, err)
	return s
}

func msgFor(account, session, text string) message.ChatMessage {
	return message.New(account, "Someone", text, message.ChannelNormal,
		message.WithSession(session, "Session "+session))
}

func TestSaveAndRecentHistoryMostRecentFirst(t *testing.T) {
	s := memoryStore(t, 10)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		require.NoError(t, s.Save(ctx, msgFor("acct-1", "sess", fmt.Sprintf("msg %d", i))))
	}

	history, err := s.RecentHistory(ctx, "acct-1", "sess", 10)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "msg 3", history[0].Text, "most recent message comes first")
	assert.Equal(t, "msg 1", history[2].Text)
}

func TestHistoryIsBounded(t *testing.T) {
	s := memoryStore(t, 3)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		require.NoError(t, s.Save(ctx, msgFor("acct-1", "sess", fmt.Sprintf("msg %d", i))))
	}

	history, err := s.RecentHistory(ctx, "acct-1", "sess", 10)
	require.NoError(t, err)
	require.Len(t, history, 3, "oldest entries fall off the ring")
	assert.Equal(t, "msg 5", history[0].Text)
	assert.Equal(t, "msg 3", history[2].Text)
}

func TestHistoryLimitParameterClips(t *testing.T) {
	s := memoryStore(t, 10)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		require.NoError(t, s.Save(ctx, msgFor("acct-1", "sess", fmt.Sprintf("msg %d", i))))
	}

	history, err := s.RecentHistory(ctx, "acct-1", "sess", 2)
	require.NoError(t, err)
	assert.Len(t, history, 2)
	assert.Equal(t, "msg 5", history[0].Text)
}

func TestSessionsAreIsolated(t *testing.T) {
	s := memoryStore(t, 10)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, msgFor("acct-1", "group-a", "in group a")))
	require.NoError(t, s.Save(ctx, msgFor("acct-1", "", "local chat")))
	require.NoError(t, s.Save(ctx, msgFor("acct-2", "group-a", "other account")))

	a, err := s.RecentHistory(ctx, "acct-1", "group-a", 10)
	require.NoError(t, err)
	require.Len(t, a, 1)
	assert.Equal(t, "in group a", a[0].Text)

	local, err := s.RecentHistory(ctx, "acct-1", "", 10)
	require.NoError(t, err)
	require.Len(t, local, 1)
	assert.Equal(t, "local chat", local[0].Text)
}

func TestEmptyHistoryIsNotAnError(t *testing.T) {
	s := memoryStore(t, 10)

	history, err := s.RecentHistory(context.Background(), "nobody", "nowhere", 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSaveRejectsInvalidMessage(t *testing.T) {
	s := memoryStore(t, 10)

	bad := message.New("", "Someone", "text", message.ChannelNormal)
	assert.Error(t, s.Save(context.Background(), bad))
}

func TestKVModeRequiresBucket(t *testing.T) {
	_, err := New(Config{Mode: ModeKV}, nil, nil)
	assert.Error(t, err)
}

func TestUnknownModeRejected(t *testing.T) {
	_, err := New(Config{Mode: "tape"}, nil, nil)
	assert.Error(t, err)
}

func TestSanitizeKeyParts(t *testing.T) {
	s := memoryStore(t, 10)

	assert.Equal(t, "acct-1.local", s.key("acct-1", ""))
	assert.Equal(t, "a_b.c_d", s.key("a b", "c/d"))
	assert.Equal(t, "_._", s.key("", "!"))
}
