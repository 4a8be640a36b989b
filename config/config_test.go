package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	config := DefaultConfig()
	assert.NoError(t, config.Validate())
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"nats": {"url": "nats://broker:4222"},
		"storage": {"mode": "kv"},
		"log_level": "debug"
	}`)

	config, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "nats://broker:4222", config.NATS.URL)
	assert.Equal(t, "kv", config.Storage.Mode)
	assert.Equal(t, "debug", config.LogLevel)
	assert.Equal(t, ":8080", config.Gateway.Addr, "untouched fields keep defaults")
	assert.Equal(t, 20, config.Pipeline.HistoryLimit)
}

func TestLoadEmptyObjectYieldsDefaults(t *testing.T) {
	config, err := Load(writeConfig(t, `{}`))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), config)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestLoadMalformedJSON(t *testing.T) {
	_, err := Load(writeConfig(t, `{"nats":`))
	assert.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty nats url", func(c *Config) { c.NATS.URL = "" }},
		{"unknown storage mode", func(c *Config) { c.Storage.Mode = "postgres" }},
		{"zero history limit", func(c *Config) { c.Storage.HistoryLimit = 0 }},
		{"zero pipeline history", func(c *Config) { c.Pipeline.HistoryLimit = 0 }},
		{"empty gateway addr", func(c *Config) { c.Gateway.Addr = "" }},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }},
		{"account without id", func(c *Config) { c.Accounts = []AccountConfig{{DisplayName: "Rade"}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(&config)
			assert.Error(t, config.Validate())
		})
	}
}
