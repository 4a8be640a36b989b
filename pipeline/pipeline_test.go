package pipeline

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaraLowell/RadeWeb-sub002/collab"
	"github.com/JaraLowell/RadeWeb-sub002/message"
)

// spyProcessor records invocations and returns a scripted result.
type spyProcessor struct {
	name     string
	priority int
	result   func(msg message.ChatMessage, pc *Context) Result

	mu    sync.Mutex
	calls []message.ChatMessage
}

func (s *spyProcessor) Name() string         { return s.name }
func (s *spyProcessor) DefaultPriority() int { return s.priority }

func (s *spyProcessor) Process(_ context.Context, msg message.ChatMessage, pc *Context) Result {
	s.mu.Lock()
	s.calls = append(s.calls, msg)
	s.mu.Unlock()
	if s.result != nil {
		return s.result(msg, pc)
	}
	return Continue()
}

func (s *spyProcessor) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// otherSpyProcessor gives tests a second processor type for equal-priority
// registration, since uniqueness is keyed on (type, priority).
type otherSpyProcessor struct {
	spyProcessor
}

// panicProcessor always panics. Distinct type so it registers independently
// of spyProcessor.
type panicProcessor struct{}

func (panicProcessor) Name() string         { return "panic" }
func (panicProcessor) DefaultPriority() int { return 0 }
func (panicProcessor) Process(context.Context, message.ChatMessage, *Context) Result {
	panic("deliberate crash")
}

// fakeConnection records sends.
type fakeConnection struct {
	connected bool
	sendErr   error

	mu    sync.Mutex
	chats []string
	ims   []struct {
		Text   string
		Target uuid.UUID
	}
}

func (f *fakeConnection) Connected() bool { return f.connected }

func (f *fakeConnection) SendChat(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chats = append(f.chats, text)
	return f.sendErr
}

func (f *fakeConnection) SendIM(_ context.Context, text string, target uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ims = append(f.ims, struct {
		Text   string
		Target uuid.UUID
	}{text, target})
	return f.sendErr
}

type fakeResolver struct {
	conns map[string]collab.Connection
}

func (f *fakeResolver) Connection(accountID string) collab.Connection {
	return f.conns[accountID]
}

type fakeHistory struct {
	history []message.ChatMessage
	err     error
}

func (f *fakeHistory) RecentHistory(context.Context, string, string, int) ([]message.ChatMessage, error) {
	return f.history, f.err
}

func newTestMessage(channel message.Channel) message.ChatMessage {
	return message.New("acct-1", "Test Sender", "hello", channel,
		message.WithSender(uuid.New()))
}

func TestProcessInvokesInPriorityOrder(t *testing.T) {
	p := New(Config{})

	var order []string
	var mu sync.Mutex
	record := func(name string) func(message.ChatMessage, *Context) Result {
		return func(message.ChatMessage, *Context) Result {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return Continue()
		}
	}

	// Registered out of order on purpose.
	p.Register(&spyProcessor{name: "c", result: record("c")}, 30)
	p.Register(&spyProcessor{name: "a", result: record("a")}, 5)
	p.Register(&spyProcessor{name: "b", result: record("b")}, 10)

	p.Process(context.Background(), newTestMessage(message.ChannelNormal), "acct-1")

	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestEqualPriorityRunsInRegistrationOrder(t *testing.T) {
	p := New(Config{})

	var order []string
	var mu sync.Mutex
	record := func(name string) func(message.ChatMessage, *Context) Result {
		return func(message.ChatMessage, *Context) Result {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return Continue()
		}
	}

	// Distinct types at the same priority; uniqueness is keyed on
	// (type, priority), so both stay registered.
	p.Register(&spyProcessor{name: "first", result: record("first")}, 10)
	p.Register(&otherSpyProcessor{spyProcessor{name: "second", result: record("second")}}, 10)

	p.Process(context.Background(), newTestMessage(message.ChannelNormal), "acct-1")

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestRegisterUpsertReplacesSameTypeAndPriority(t *testing.T) {
	p := New(Config{})

	a := &spyProcessor{name: "v1"}
	b := &spyProcessor{name: "v2"}
	p.Register(a, 10)
	p.Register(b, 10)

	p.Process(context.Background(), newTestMessage(message.ChannelNormal), "acct-1")

	assert.Equal(t, 0, a.callCount(), "replaced entry must not run")
	assert.Equal(t, 1, b.callCount())
}

func TestUnregisterRemovesAllEntriesForInstance(t *testing.T) {
	p := New(Config{})

	proc := &spyProcessor{name: "multi"}
	p.Register(proc, 10)
	p.Register(proc, 20) // same instance at two priorities

	p.Unregister(proc)
	p.Process(context.Background(), newTestMessage(message.ChannelNormal), "acct-1")

	assert.Equal(t, 0, proc.callCount())
}

func TestShortCircuitSkipsLaterProcessors(t *testing.T) {
	p := New(Config{})

	stopper := &spyProcessor{name: "stopper", result: func(message.ChatMessage, *Context) Result {
		return Stop()
	}}
	later := &spyProcessor{name: "later"}

	p.Register(stopper, 10)
	p.Register(later, 20)

	p.Process(context.Background(), newTestMessage(message.ChannelNormal), "acct-1")

	assert.Equal(t, 1, stopper.callCount())
	assert.Equal(t, 0, later.callCount(), "no processor after a short-circuit may run")
}

func TestPanickingProcessorIsIsolated(t *testing.T) {
	p := New(Config{})

	later := &spyProcessor{name: "later"}
	p.Register(panicProcessor{}, 10)
	p.Register(later, 20)

	require.NotPanics(t, func() {
		p.Process(context.Background(), newTestMessage(message.ChannelNormal), "acct-1")
	})
	assert.Equal(t, 1, later.callCount(), "a crashing processor must not block later stages")
}

func TestFailureStillHonorsContinueAndReply(t *testing.T) {
	conn := &fakeConnection{connected: true}
	p := New(Config{Connections: &fakeResolver{conns: map[string]collab.Connection{
		"acct-1": conn,
	}}})

	failing := &spyProcessor{name: "failing", result: func(message.ChatMessage, *Context) Result {
		return Fail(stderrors.New("store down")).WithReply("sorry, try later")
	}}
	later := &spyProcessor{name: "later"}
	p.Register(failing, 10)
	p.Register(later, 20)

	p.Process(context.Background(), newTestMessage(message.ChannelNormal), "acct-1")

	assert.Equal(t, 1, later.callCount())
	assert.Equal(t, []string{"sorry, try later"}, conn.chats)
}

func TestReplacementVisibleToLaterProcessors(t *testing.T) {
	p := New(Config{})

	rewriter := &spyProcessor{name: "rewriter", result: func(msg message.ChatMessage, _ *Context) Result {
		return Continue().Replace(msg.WithText("rewritten"))
	}}
	observer := &spyProcessor{name: "observer"}

	p.Register(rewriter, 10)
	p.Register(observer, 20)

	p.Process(context.Background(), newTestMessage(message.ChannelNormal), "acct-1")

	require.Equal(t, 1, observer.callCount())
	assert.Equal(t, "rewritten", observer.calls[0].Text)
}

func TestReplyUsesChannelClassification(t *testing.T) {
	tests := []struct {
		name     string
		channel  message.Channel
		wantIM   int
		wantChat int
	}{
		{"IM reply goes out as IM", message.ChannelIM, 1, 0},
		{"normal chat reply goes to local chat", message.ChannelNormal, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := &fakeConnection{connected: true}
			p := New(Config{Connections: &fakeResolver{conns: map[string]collab.Connection{
				"acct-1": conn,
			}}})

			msg := newTestMessage(tt.channel)
			replier := &spyProcessor{name: "replier", result: func(message.ChatMessage, *Context) Result {
				return Continue().WithReply("pong")
			}}
			p.Register(replier, 10)

			p.Process(context.Background(), msg, "acct-1")

			assert.Len(t, conn.ims, tt.wantIM)
			assert.Len(t, conn.chats, tt.wantChat)
			if tt.wantIM == 1 {
				assert.Equal(t, msg.FromID, conn.ims[0].Target, "IM reply targets the sender")
			}
		})
	}
}

func TestReplyDroppedWithoutLiveConnection(t *testing.T) {
	conn := &fakeConnection{connected: false}
	p := New(Config{Connections: &fakeResolver{conns: map[string]collab.Connection{
		"acct-1": conn,
	}}})

	replier := &spyProcessor{name: "replier", result: func(message.ChatMessage, *Context) Result {
		return Continue().WithReply("pong")
	}}
	p.Register(replier, 10)

	p.Process(context.Background(), newTestMessage(message.ChannelNormal), "acct-1")

	assert.Empty(t, conn.chats)
	assert.Empty(t, conn.ims)
}

func TestHistoryFailureYieldsEmptyHistory(t *testing.T) {
	p := New(Config{History: &fakeHistory{err: stderrors.New("kv down")}})

	var seen []message.ChatMessage
	probe := &spyProcessor{name: "probe", result: func(_ message.ChatMessage, pc *Context) Result {
		seen = pc.History
		return Continue()
	}}
	p.Register(probe, 10)

	p.Process(context.Background(), newTestMessage(message.ChannelNormal), "acct-1")

	assert.Equal(t, 1, probe.callCount(), "history failure must not abort the run")
	assert.Empty(t, seen)
}

func TestCancellationStopsBetweenSteps(t *testing.T) {
	p := New(Config{})

	ctx, cancel := context.WithCancel(context.Background())
	first := &spyProcessor{name: "first", result: func(message.ChatMessage, *Context) Result {
		cancel() // cancellation arrives while the first processor runs
		return Continue()
	}}
	second := &spyProcessor{name: "second"}
	p.Register(first, 10)
	p.Register(second, 20)

	p.Process(ctx, newTestMessage(message.ChannelNormal), "acct-1")

	assert.Equal(t, 1, first.callCount(), "current processor finishes")
	assert.Equal(t, 0, second.callCount(), "no further processor starts after cancellation")
}

func TestRegistrationDuringRunDoesNotAffectSnapshot(t *testing.T) {
	p := New(Config{})

	late := &spyProcessor{name: "late"}
	first := &spyProcessor{name: "first", result: func(message.ChatMessage, *Context) Result {
		p.Register(late, 50)
		return Continue()
	}}
	p.Register(first, 10)

	p.Process(context.Background(), newTestMessage(message.ChannelNormal), "acct-1")
	assert.Equal(t, 0, late.callCount(), "in-flight run uses its snapshot")

	p.Process(context.Background(), newTestMessage(message.ChannelNormal), "acct-1")
	assert.Equal(t, 1, late.callCount(), "next run sees the new registration")
}

func TestConcurrentRunsKeepIsolatedContexts(t *testing.T) {
	p := New(Config{})

	var mu sync.Mutex
	contexts := make(map[string]*Context)
	probe := &spyProcessor{name: "probe", result: func(_ message.ChatMessage, pc *Context) Result {
		pc.Persisted = true // mutate; must never leak into another run
		mu.Lock()
		contexts[pc.AccountID] = pc
		mu.Unlock()
		return Continue()
	}}
	p.Register(probe, 10)

	var wg sync.WaitGroup
	for _, acct := range []string{"acct-a", "acct-b"} {
		wg.Add(1)
		go func(acct string) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				msg := message.New(acct, "Sender", "hi", message.ChannelNormal)
				p.Process(context.Background(), msg, acct)
			}
		}(acct)
	}
	wg.Wait()

	require.Len(t, contexts, 2)
	assert.NotSame(t, contexts["acct-a"], contexts["acct-b"])
	assert.Equal(t, "acct-a", contexts["acct-a"].AccountID)
	assert.Equal(t, "acct-b", contexts["acct-b"].AccountID)
}
