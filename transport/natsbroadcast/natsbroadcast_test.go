package natsbroadcast

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaraLowell/RadeWeb-sub002/message"
)

type fakePublisher struct {
	connected bool
	err       error
	subjects  []string
	payloads  [][]byte
}

func (f *fakePublisher) Connected() bool { return f.connected }

func (f *fakePublisher) Publish(subject string, data []byte) error {
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return f.err
}

func TestPublishUsesAccountSubject(t *testing.T) {
	pub := &fakePublisher{connected: true}
	b := New(pub, nil, nil)

	msg := message.New("acct-1", "Someone", "hello", message.ChannelNormal)
	require.NoError(t, b.Publish(context.Background(), "acct-1", msg))

	require.Len(t, pub.subjects, 1)
	assert.Equal(t, "chat.events.acct-1", pub.subjects[0])

	var decoded message.ChatMessage
	require.NoError(t, json.Unmarshal(pub.payloads[0], &decoded))
	assert.Equal(t, msg.ID, decoded.ID)
	assert.Equal(t, "hello", decoded.Text)
}

func TestPublishFailsWhenDisconnected(t *testing.T) {
	b := New(&fakePublisher{connected: false}, nil, nil)

	msg := message.New("acct-1", "Someone", "hello", message.ChannelNormal)
	err := b.Publish(context.Background(), "acct-1", msg)
	assert.Error(t, err)
}

func TestPublishWrapsTransportError(t *testing.T) {
	pub := &fakePublisher{connected: true, err: stderrors.New("slow consumer")}
	b := New(pub, nil, nil)

	msg := message.New("acct-1", "Someone", "hello", message.ChannelNormal)
	err := b.Publish(context.Background(), "acct-1", msg)
	require.Error(t, err)
}
