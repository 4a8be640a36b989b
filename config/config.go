// Package config loads and validates the gateway configuration from a
// JSON file. Every field has a working default so a minimal deployment
// can start from an empty object.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Config is the top-level application configuration.
type Config struct {
	NATS     NATSConfig      `json:"nats"`
	Storage  StorageConfig   `json:"storage"`
	Gateway  GatewayConfig   `json:"gateway"`
	Metrics  MetricsConfig   `json:"metrics"`
	OpenAI   OpenAIConfig    `json:"openai"`
	Commands CommandsConfig  `json:"commands"`
	Pipeline PipelineConfig  `json:"pipeline"`
	Accounts []AccountConfig `json:"accounts"`
	LogLevel string          `json:"log_level"` // debug, info, warn, error
}

// NATSConfig configures the messaging connection.
type NATSConfig struct {
	URL            string `json:"url"`
	Name           string `json:"name"`
	ConnectTimeout int    `json:"connect_timeout_seconds"`
}

// StorageConfig configures the chat history store.
type StorageConfig struct {
	Mode         string `json:"mode"` // memory or kv
	Bucket       string `json:"bucket"`
	HistoryLimit int    `json:"history_limit"`
	CacheSize    int    `json:"cache_size"`
}

// GatewayConfig configures the browser push gateway.
type GatewayConfig struct {
	Addr string `json:"addr"`
	Path string `json:"path"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`
}

// OpenAIConfig configures the auto responder. An empty API key leaves
// the responder disabled.
type OpenAIConfig struct {
	APIKey       string `json:"api_key"`
	Model        string `json:"model"`
	SystemPrompt string `json:"system_prompt"`
	MaxHistory   int    `json:"max_history"`
}

// CommandsConfig configures owner command handling.
type CommandsConfig struct {
	Prefix string `json:"prefix"`
}

// PipelineConfig configures message processing.
type PipelineConfig struct {
	HistoryLimit int `json:"history_limit"`
}

// AccountConfig describes one relayed account. UUID fields are parsed at
// startup; empty strings mean the nil UUID.
type AccountConfig struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	SelfID      string `json:"self_id"`
	OwnerID     string `json:"owner_id"`
	RelayTarget string `json:"relay_target"`
}

// DefaultConfig returns a configuration suitable for local development.
func DefaultConfig() Config {
	return Config{
		NATS: NATSConfig{
			URL:            "nats://localhost:4222",
			Name:           "radeweb",
			ConnectTimeout: 10,
		},
		Storage: StorageConfig{
			Mode:         "memory",
			Bucket:       "chat-history",
			HistoryLimit: 20,
			CacheSize:    256,
		},
		Gateway: GatewayConfig{
			Addr: ":8080",
			Path: "/ws",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9090",
		},
		OpenAI: OpenAIConfig{
			MaxHistory: 10,
		},
		Commands: CommandsConfig{
			Prefix: "!",
		},
		Pipeline: PipelineConfig{
			HistoryLimit: 20,
		},
		LogLevel: "info",
	}
}

// Load reads a JSON config file and merges it over the defaults.
func Load(path string) (Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return config, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate checks field values that defaults cannot repair.
func (c *Config) Validate() error {
	if c.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if c.Storage.Mode != "memory" && c.Storage.Mode != "kv" {
		return fmt.Errorf("storage.mode must be memory or kv, got %q", c.Storage.Mode)
	}
	if c.Storage.HistoryLimit <= 0 {
		return errors.New("storage.history_limit must be positive")
	}
	if c.Pipeline.HistoryLimit <= 0 {
		return errors.New("pipeline.history_limit must be positive")
	}
	if c.Gateway.Addr == "" {
		return errors.New("gateway.addr is required")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn or error, got %q", c.LogLevel)
	}
	for i, account := range c.Accounts {
		if account.ID == "" {
			return fmt.Errorf("accounts[%d].id is required", i)
		}
	}
	return nil
}
