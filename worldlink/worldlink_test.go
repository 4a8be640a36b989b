package worldlink

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rewrite(t *testing.T, text string) string {
	t.Helper()
	out, err := New().Rewrite(context.Background(), text, "acct-1")
	require.NoError(t, err)
	return out
}

func TestTeleportURIBecomesMapLink(t *testing.T) {
	out := rewrite(t, "meet me at secondlife://Hippo%20Hollow/128/64/23 later")

	assert.Contains(t, out, `href="http://maps.secondlife.com/secondlife/Hippo%20Hollow/128/64/23"`)
	assert.Contains(t, out, "Hippo Hollow (128,64,23)")
	assert.Contains(t, out, "meet me at ")
	assert.Contains(t, out, " later")
}

func TestMapURLIsNormalized(t *testing.T) {
	out := rewrite(t, "https://maps.secondlife.com/secondlife/Sandbox/10/20/30")

	assert.Contains(t, out, `class="map-link"`)
	assert.Contains(t, out, "Sandbox (10,20,30)")
}

func TestMissingAltitudeDefaultsToZero(t *testing.T) {
	out := rewrite(t, "secondlife://Sandbox/10/20")

	assert.Contains(t, out, "/Sandbox/10/20/0")
	assert.Contains(t, out, "(10,20,0)")
}

func TestAgentURIBecomesAgentLink(t *testing.T) {
	out := rewrite(t, "ask secondlife:///app/agent/0f16c0e1-384e-4b5f-b7ce-886dda3bce41/about for help")

	assert.Contains(t, out, `class="agent-link"`)
	assert.Contains(t, out, `href="secondlife:///app/agent/0f16c0e1-384e-4b5f-b7ce-886dda3bce41/about"`)
}

func TestPlainTextPassesThrough(t *testing.T) {
	text := "nothing to see here, not even a URL"
	assert.Equal(t, text, rewrite(t, text))
}

func TestMalformedLinksStayIntact(t *testing.T) {
	tests := []string{
		"secondlife://",
		"secondlife:///app/agent/not-a-uuid/about",
		"http://maps.secondlife.com/elsewhere/Sandbox/1/2/3",
	}
	for _, text := range tests {
		assert.Equal(t, text, rewrite(t, text))
	}
}
