// Package processorregistry wires the built-in processors into a pipeline
// at their default priorities. Default ordering (ascending): ignore-filter,
// link-rewrite, relay, persist, broadcast, command, auto-reply. Filtering
// runs first so ignored traffic never reaches persistence or broadcast;
// persist before broadcast is a convention that keeps stored and shown
// state consistent.
package processorregistry

import (
	"log/slog"

	"github.com/JaraLowell/RadeWeb-sub002/collab"
	"github.com/JaraLowell/RadeWeb-sub002/errors"
	"github.com/JaraLowell/RadeWeb-sub002/metric"
	"github.com/JaraLowell/RadeWeb-sub002/pipeline"
	"github.com/JaraLowell/RadeWeb-sub002/processor/autoreply"
	"github.com/JaraLowell/RadeWeb-sub002/processor/broadcast"
	"github.com/JaraLowell/RadeWeb-sub002/processor/command"
	"github.com/JaraLowell/RadeWeb-sub002/processor/ignorefilter"
	"github.com/JaraLowell/RadeWeb-sub002/processor/linkrewrite"
	"github.com/JaraLowell/RadeWeb-sub002/processor/persist"
	"github.com/JaraLowell/RadeWeb-sub002/processor/relay"
)

// Deps carries the collaborators the built-in processors consume.
// Any collaborator may be nil; the corresponding processor then registers
// as a pass-through.
type Deps struct {
	GroupPolicy   collab.GroupPolicy
	LinkRewriter  collab.LinkRewriter
	Directory     collab.AccountDirectory
	Store         collab.MessageStore
	Broadcaster   collab.Broadcaster
	Commander     collab.Commander
	AutoResponder collab.AutoResponder

	Logger  *slog.Logger            // May be nil, defaults to slog.Default()
	Metrics *metric.MetricsRegistry // May be nil, disables metrics
}

// RegisterBuiltins constructs the seven built-in processors and registers
// each at its default priority.
func RegisterBuiltins(p *pipeline.Pipeline, deps Deps) error {
	if p == nil {
		return errors.WrapFatal(errors.ErrInvalidConfig,
			"ProcessorRegistry", "RegisterBuiltins", "pipeline validation")
	}

	procs := []pipeline.Processor{
		ignorefilter.New(deps.GroupPolicy, deps.Logger),
		linkrewrite.New(deps.LinkRewriter, deps.Logger),
		relay.New(deps.Directory, deps.Metrics, deps.Logger),
		persist.New(deps.Store, deps.Metrics, deps.Logger),
		broadcast.New(deps.Broadcaster, deps.Metrics, deps.Logger),
		command.New(deps.Commander, deps.Logger),
		autoreply.New(deps.AutoResponder, deps.Logger),
	}

	for _, proc := range procs {
		p.Register(proc, proc.DefaultPriority())
	}
	return nil
}
