package websocket

import (
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGateway() *Gateway {
	return New(DefaultConfig(), nil, nil)
}

func addClient(g *Gateway, accountID string, buffer int) *client {
	c := &client{
		accountID: accountID,
		send:      make(chan []byte, buffer),
	}
	g.clientsMu.Lock()
	g.clients[c] = struct{}{}
	g.clientsMu.Unlock()
	return c
}

func TestHandleEventFansOutPerAccount(t *testing.T) {
	g := testGateway()
	mine := addClient(g, "acct-1", 4)
	other := addClient(g, "acct-2", 4)

	g.handleEvent(&nats.Msg{Subject: "chat.events.acct-1", Data: []byte(`{"text":"hi"}`)})

	select {
	case data := <-mine.send:
		assert.JSONEq(t, `{"text":"hi"}`, string(data))
	default:
		t.Fatal("expected event for acct-1 client")
	}

	select {
	case <-other.send:
		t.Fatal("event leaked to another account's client")
	default:
	}
}

func TestHandleEventIgnoresForeignSubjects(t *testing.T) {
	g := testGateway()
	c := addClient(g, "acct-1", 4)

	g.handleEvent(&nats.Msg{Subject: "other.subject", Data: []byte("x")})
	g.handleEvent(&nats.Msg{Subject: "chat.events.", Data: []byte("x")})

	select {
	case <-c.send:
		t.Fatal("no event should have been delivered")
	default:
	}
}

func TestSlowClientIsDropped(t *testing.T) {
	g := testGateway()
	slow := addClient(g, "acct-1", 1)

	g.handleEvent(&nats.Msg{Subject: "chat.events.acct-1", Data: []byte("1")})
	g.handleEvent(&nats.Msg{Subject: "chat.events.acct-1", Data: []byte("2")}) // buffer full

	require.Eventually(t, func() bool {
		return g.ClientCount() == 0
	}, time.Second, 10*time.Millisecond, "slow client must be unregistered")

	_, open := <-slow.send
	// The buffered "1" drains first, then the closed channel reports done.
	if open {
		_, open = <-slow.send
	}
	assert.False(t, open, "send channel is closed on removal")
}

func TestRemoveClientIsIdempotent(t *testing.T) {
	g := testGateway()
	c := addClient(g, "acct-1", 1)

	g.removeClient(c)
	assert.NotPanics(t, func() { g.removeClient(c) })
	assert.Equal(t, 0, g.ClientCount())
}
