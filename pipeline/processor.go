package pipeline

import (
	"context"

	"github.com/JaraLowell/RadeWeb-sub002/message"
)

// Processor is one unit of work in the chain.
//
// Contract:
//   - Expected failure modes are reported via Result.Fail, never by panic.
//   - A panic escaping Process is contained by the pipeline, logged, and
//     treated as continue; it never aborts the run.
//   - Setting Result.Next=false is a definitive short-circuit: no later
//     processor runs, and no reply is sent unless this Result carries one.
type Processor interface {
	// Name returns a stable human-readable name used in logs and metrics.
	Name() string

	// DefaultPriority returns the priority used at self-registration time.
	// It is not re-consulted afterward; the registration table owns the
	// effective priority.
	DefaultPriority() int

	// Process observes the current message and the shared run context and
	// returns the outcome of this step.
	Process(ctx context.Context, msg message.ChatMessage, pc *Context) Result
}

// Result is the outcome of one processor invocation.
type Result struct {
	// OK is false when an expected failure occurred; Err carries the cause.
	OK  bool
	Err error

	// Replacement, when non-nil, becomes the current message for all
	// subsequent processors.
	Replacement *message.ChatMessage

	// Reply is outbound text dispatched through the account's connection.
	// The reply channel is implicit: derived from the current message's
	// classification at dispatch time.
	Reply string

	// Next reports whether the pipeline should proceed to the next
	// processor.
	Next bool
}

// Continue returns a successful result that lets the chain proceed.
func Continue() Result {
	return Result{OK: true, Next: true}
}

// Stop returns a successful result that short-circuits the chain.
func Stop() Result {
	return Result{OK: true, Next: false}
}

// Fail reports an expected failure. The chain proceeds; the pipeline logs
// a warning with the processor's name.
func Fail(err error) Result {
	return Result{OK: false, Err: err, Next: true}
}

// Replace returns a copy of the result carrying a replacement message.
func (r Result) Replace(msg message.ChatMessage) Result {
	r.Replacement = &msg
	return r
}

// WithReply returns a copy of the result carrying reply text.
func (r Result) WithReply(text string) Result {
	r.Reply = text
	return r
}
