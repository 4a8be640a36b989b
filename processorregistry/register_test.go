package processorregistry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaraLowell/RadeWeb-sub002/pipeline"
	"github.com/JaraLowell/RadeWeb-sub002/processor/autoreply"
	"github.com/JaraLowell/RadeWeb-sub002/processor/broadcast"
	"github.com/JaraLowell/RadeWeb-sub002/processor/command"
	"github.com/JaraLowell/RadeWeb-sub002/processor/ignorefilter"
	"github.com/JaraLowell/RadeWeb-sub002/processor/linkrewrite"
	"github.com/JaraLowell/RadeWeb-sub002/processor/persist"
	"github.com/JaraLowell/RadeWeb-sub002/processor/relay"
)

func TestRegisterBuiltinsRequiresPipeline(t *testing.T) {
	err := RegisterBuiltins(nil, Deps{})
	require.Error(t, err)
}

func TestRegisterBuiltinsAcceptsEmptyDeps(t *testing.T) {
	p := pipeline.New(pipeline.Config{})
	require.NoError(t, RegisterBuiltins(p, Deps{}))
}

// The default priorities are the documented conventions: filtering first so
// ignored traffic never reaches fan-out, persist before broadcast so stored
// and shown state stay consistent.
func TestDefaultPriorityConventions(t *testing.T) {
	assert.Less(t, ignorefilter.DefaultPriority, linkrewrite.DefaultPriority)
	assert.Less(t, linkrewrite.DefaultPriority, relay.DefaultPriority)
	assert.Less(t, relay.DefaultPriority, persist.DefaultPriority)
	assert.Less(t, persist.DefaultPriority, broadcast.DefaultPriority)
	assert.Less(t, broadcast.DefaultPriority, command.DefaultPriority)
	assert.Less(t, command.DefaultPriority, autoreply.DefaultPriority)
}
