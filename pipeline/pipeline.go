package pipeline

import (
	"context"
	"log/slog"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/JaraLowell/RadeWeb-sub002/collab"
	"github.com/JaraLowell/RadeWeb-sub002/message"
	"github.com/JaraLowell/RadeWeb-sub002/metric"
)

// DefaultHistoryLimit bounds the rolling history handed to each run when
// the configuration does not say otherwise.
const DefaultHistoryLimit = 20

// Config holds construction parameters for a Pipeline.
type Config struct {
	Connections  collab.ConnectionResolver // May be nil; runs then carry no connection
	History      collab.HistoryProvider    // May be nil; runs then carry empty history
	HistoryLimit int                       // Messages fetched per run (default DefaultHistoryLimit)
	Logger       *slog.Logger              // Defaults to slog.Default()
	Metrics      *metric.MetricsRegistry   // Optional; nil disables metrics
}

// entry is one registered processor with its effective priority.
type entry struct {
	proc     Processor
	name     string
	priority int
	seq      uint64 // registration order, breaks priority ties
}

// Pipeline executes registered processors in ascending priority order for
// each inbound message. The registration table is read-mostly: each run
// takes an immutable snapshot, so concurrent Register/Unregister calls
// never affect an in-flight run.
type Pipeline struct {
	connections  collab.ConnectionResolver
	history      collab.HistoryProvider
	historyLimit int
	logger       *slog.Logger
	metrics      *pipelineMetrics

	mu      sync.RWMutex
	entries []entry
	nextSeq uint64
}

// New creates a Pipeline from the given configuration.
func New(cfg Config) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limit := cfg.HistoryLimit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	p := &Pipeline{
		connections:  cfg.Connections,
		history:      cfg.History,
		historyLimit: limit,
		logger:       logger.With("component", "pipeline"),
	}

	metrics, err := newPipelineMetrics(cfg.Metrics)
	if err != nil {
		logger.Error("failed to initialize pipeline metrics", "error", err)
		metrics = nil // continue without metrics
	}
	p.metrics = metrics

	return p
}

// Register adds a processor at the given priority. Registration is an
// idempotent upsert keyed by (processor type identity, priority):
// re-registering the same key replaces the prior entry in place, keeping
// its position among equal priorities.
func (p *Pipeline) Register(proc Processor, priority int) {
	if proc == nil {
		return
	}
	key := reflect.TypeOf(proc)

	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.entries {
		if reflect.TypeOf(p.entries[i].proc) == key && p.entries[i].priority == priority {
			p.entries[i].proc = proc
			p.entries[i].name = proc.Name()
			p.logger.Info("processor re-registered",
				"processor", proc.Name(), "priority", priority)
			return
		}
	}

	p.entries = append(p.entries, entry{
		proc:     proc,
		name:     proc.Name(),
		priority: priority,
		seq:      p.nextSeq,
	})
	p.nextSeq++
	p.logger.Info("processor registered",
		"processor", proc.Name(), "priority", priority)
}

// Unregister removes all entries whose processor instance matches, by
// identity.
func (p *Pipeline) Unregister(proc Processor) {
	if proc == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	kept := p.entries[:0]
	for _, e := range p.entries {
		if e.proc == proc {
			p.logger.Info("processor unregistered",
				"processor", e.name, "priority", e.priority)
			continue
		}
		kept = append(kept, e)
	}
	p.entries = kept
}

// snapshot returns the registered entries sorted by ascending priority,
// ties broken by registration order.
func (p *Pipeline) snapshot() []entry {
	p.mu.RLock()
	entries := make([]entry, len(p.entries))
	copy(entries, p.entries)
	p.mu.RUnlock()

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].priority != entries[j].priority {
			return entries[i].priority < entries[j].priority
		}
		return entries[i].seq < entries[j].seq
	})
	return entries
}

// Process runs one message through the chain. It never returns an error:
// all effects are side effects of processors or the reply dispatch, and
// every failure is contained and logged. The caller does not block on
// persistence or broadcast success beyond this call completing.
func (p *Pipeline) Process(ctx context.Context, msg message.ChatMessage, accountID string) {
	pc := p.buildContext(ctx, msg, accountID)
	entries := p.snapshot()

	if p.metrics != nil {
		p.metrics.runs.Inc()
	}

	cur := msg
	for _, e := range entries {
		// Cancellation is honored between steps, never mid-processor.
		if err := ctx.Err(); err != nil {
			p.logger.Info("pipeline run aborted by cancellation",
				"account", accountID, "next_processor", e.name)
			if p.metrics != nil {
				p.metrics.aborted.Inc()
			}
			return
		}

		start := time.Now()
		result, panicked := p.invoke(ctx, e, cur, pc)
		if p.metrics != nil {
			p.metrics.duration.WithLabelValues(e.name).Observe(time.Since(start).Seconds())
		}

		if panicked {
			// Contained crash: proceed with message and context unchanged.
			continue
		}

		if !result.OK {
			p.logger.Warn("processor reported failure",
				"processor", e.name, "account", accountID, "error", result.Err)
			if p.metrics != nil {
				p.metrics.failures.WithLabelValues(e.name).Inc()
			}
			// Robustness over strictness: continue-flag, replacement and
			// reply are still honored below.
		}

		if result.Replacement != nil {
			cur = *result.Replacement
		}

		if result.Reply != "" {
			p.dispatchReply(ctx, pc, cur, result.Reply, e.name)
		}

		if !result.Next {
			p.logger.Debug("pipeline short-circuited",
				"processor", e.name, "account", accountID)
			if p.metrics != nil {
				p.metrics.shortCircuits.WithLabelValues(e.name).Inc()
			}
			return
		}
	}
}

// buildContext resolves the account's connection and recent history.
// Collaborator failures here are logged and the run proceeds with a nil
// connection or empty history; context construction never aborts a run.
func (p *Pipeline) buildContext(ctx context.Context, msg message.ChatMessage, accountID string) *Context {
	pc := &Context{AccountID: accountID}

	if p.connections != nil {
		pc.Conn = p.connections.Connection(accountID)
	}

	if p.history != nil {
		history, err := p.history.RecentHistory(ctx, accountID, msg.SessionID, p.historyLimit)
		if err != nil {
			p.logger.Warn("history lookup failed, continuing with empty history",
				"account", accountID, "session", msg.SessionID, "error", err)
		} else {
			pc.History = history
		}
	}

	return pc
}

// invoke runs a single processor, containing any panic.
func (p *Pipeline) invoke(ctx context.Context, e entry, msg message.ChatMessage, pc *Context) (result Result, panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			p.logger.Error("processor panicked, continuing pipeline",
				"processor", e.name, "account", pc.AccountID, "panic", r)
			if p.metrics != nil {
				p.metrics.panics.WithLabelValues(e.name).Inc()
			}
		}
	}()
	return e.proc.Process(ctx, msg, pc), false
}

// dispatchReply sends reply text through the account's live connection,
// choosing IM or local chat delivery from the current message's channel
// classification. Dispatch failures are logged, never raised.
func (p *Pipeline) dispatchReply(ctx context.Context, pc *Context, cur message.ChatMessage, reply, processorName string) {
	if pc.Conn == nil || !pc.Conn.Connected() {
		p.logger.Debug("dropping reply, no live connection",
			"processor", processorName, "account", pc.AccountID)
		return
	}

	var err error
	if cur.Channel == message.ChannelIM {
		err = pc.Conn.SendIM(ctx, reply, cur.FromID)
	} else {
		err = pc.Conn.SendChat(ctx, reply)
	}
	if err != nil {
		p.logger.Warn("reply dispatch failed",
			"processor", processorName, "account", pc.AccountID,
			"channel", cur.Channel, "error", err)
		return
	}
	if p.metrics != nil {
		p.metrics.replies.WithLabelValues(string(cur.Channel)).Inc()
	}
}
