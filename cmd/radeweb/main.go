// Package main implements the entry point for the RadeWeb chat relay.
// RadeWeb bridges virtual world chat into web clients: inbound messages
// run through the processing pipeline, which filters, rewrites, relays,
// persists and broadcasts them, and the websocket gateway pushes the
// broadcast stream to browsers.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/JaraLowell/RadeWeb-sub002/airesponder"
	"github.com/JaraLowell/RadeWeb-sub002/chatcommands"
	"github.com/JaraLowell/RadeWeb-sub002/collab"
	"github.com/JaraLowell/RadeWeb-sub002/config"
	wsgateway "github.com/JaraLowell/RadeWeb-sub002/gateway/websocket"
	"github.com/JaraLowell/RadeWeb-sub002/message"
	"github.com/JaraLowell/RadeWeb-sub002/metric"
	"github.com/JaraLowell/RadeWeb-sub002/natsclient"
	"github.com/JaraLowell/RadeWeb-sub002/pipeline"
	"github.com/JaraLowell/RadeWeb-sub002/processorregistry"
	"github.com/JaraLowell/RadeWeb-sub002/storage/chatstore"
	"github.com/JaraLowell/RadeWeb-sub002/transport/natsbroadcast"
	"github.com/JaraLowell/RadeWeb-sub002/worldlink"
)

const (
	Version = "0.1.0"
	appName = "radeweb"

	// inboundPrefix is the subject space world-side feeders publish
	// ChatMessage JSON to, one token per account.
	inboundPrefix = "chat.inbound."

	shutdownTimeout = 10 * time.Second
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.json", "path to the JSON configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := setupLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	slog.Info("Starting RadeWeb chat relay",
		"version", Version,
		"config_path", *configPath,
		"storage_mode", cfg.Storage.Mode,
		"accounts", len(cfg.Accounts))

	signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	metricsRegistry, metricsServer, metricsErr := setupMetrics(cfg)
	natsClient, natsUp := connectNATS(cfg, logger)
	defer natsClient.Close()

	p, err := buildPipeline(signalCtx, cfg, natsClient, natsUp, logger, metricsRegistry)
	if err != nil {
		return err
	}

	gateway, err := startGateway(cfg, natsClient, natsUp, logger)
	if err != nil {
		return err
	}

	if natsUp {
		if err := startIngest(signalCtx, natsClient, p, logger); err != nil {
			return fmt.Errorf("subscribe inbound: %w", err)
		}
	}

	slog.Info("RadeWeb started", "gateway_addr", cfg.Gateway.Addr, "nats_connected", natsUp)

	select {
	case <-signalCtx.Done():
		slog.Info("Received shutdown signal")
	case err := <-metricsErr:
		if err != nil {
			slog.Error("Metrics server failed", "error", err)
		}
	}

	return shutdown(gateway, metricsServer)
}

// loadConfig reads the config file, falling back to defaults when the
// file does not exist.
func loadConfig(path string) (config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		slog.Info("Config file not found, using defaults", "path", path)
		return config.DefaultConfig(), nil
	}
	return config.Load(path)
}

func setupLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// setupMetrics creates the registry and endpoint when enabled. The error
// channel never fires when metrics are disabled.
func setupMetrics(cfg config.Config) (*metric.MetricsRegistry, *metric.Server, <-chan error) {
	if !cfg.Metrics.Enabled {
		return nil, nil, make(chan error)
	}

	registry := metric.NewMetricsRegistry()
	server := metric.NewServer(cfg.Metrics.Addr, "/metrics", registry)
	return registry, server, server.Start()
}

// connectNATS attempts the broker connection. The relay degrades to
// memory-only, broadcast-less operation when the broker is unreachable.
func connectNATS(cfg config.Config, logger *slog.Logger) (*natsclient.Client, bool) {
	client := natsclient.New(cfg.NATS.URL,
		natsclient.WithName(cfg.NATS.Name),
		natsclient.WithConnectTimeout(time.Duration(cfg.NATS.ConnectTimeout)*time.Second),
		natsclient.WithLogger(logger),
	)
	if err := client.Connect(); err != nil {
		slog.Warn("NATS unavailable, continuing without broadcast and gateway",
			"url", cfg.NATS.URL, "error", err)
		return client, false
	}
	return client, true
}

func buildPipeline(
	ctx context.Context,
	cfg config.Config,
	natsClient *natsclient.Client,
	natsUp bool,
	logger *slog.Logger,
	metricsRegistry *metric.MetricsRegistry,
) (*pipeline.Pipeline, error) {
	store, err := buildStore(ctx, cfg, natsClient, natsUp, logger)
	if err != nil {
		return nil, err
	}

	directory := buildDirectory(cfg.Accounts, logger)

	var broadcaster collab.Broadcaster
	if natsUp {
		broadcaster = natsbroadcast.New(natsClient, metricsRegistry, logger)
	}

	p := pipeline.New(pipeline.Config{
		History:      store,
		HistoryLimit: cfg.Pipeline.HistoryLimit,
		Logger:       logger,
		Metrics:      metricsRegistry,
	})

	err = processorregistry.RegisterBuiltins(p, processorregistry.Deps{
		LinkRewriter:  worldlink.New(),
		Directory:     directory,
		Store:         store,
		Broadcaster:   broadcaster,
		Commander:     chatcommands.New(cfg.Commands.Prefix, directory, logger),
		AutoResponder: buildResponder(cfg, logger),
		Logger:        logger,
		Metrics:       metricsRegistry,
	})
	if err != nil {
		return nil, fmt.Errorf("register processors: %w", err)
	}
	return p, nil
}

func buildStore(
	ctx context.Context,
	cfg config.Config,
	natsClient *natsclient.Client,
	natsUp bool,
	logger *slog.Logger,
) (*chatstore.Store, error) {
	storeCfg := chatstore.Config{
		Mode:         cfg.Storage.Mode,
		HistoryLimit: cfg.Storage.HistoryLimit,
		CacheSize:    cfg.Storage.CacheSize,
	}

	if cfg.Storage.Mode == chatstore.ModeKV {
		if !natsUp {
			return nil, fmt.Errorf("storage mode kv requires a NATS connection")
		}
		kv, err := natsClient.KeyValue(ctx, cfg.Storage.Bucket)
		if err != nil {
			return nil, fmt.Errorf("open history bucket %q: %w", cfg.Storage.Bucket, err)
		}
		return chatstore.New(storeCfg, kv, logger)
	}

	return chatstore.New(storeCfg, nil, logger)
}

func buildResponder(cfg config.Config, logger *slog.Logger) *airesponder.Responder {
	return airesponder.New(airesponder.Config{
		APIKey:       cfg.OpenAI.APIKey,
		Model:        cfg.OpenAI.Model,
		SystemPrompt: cfg.OpenAI.SystemPrompt,
		MaxHistory:   cfg.OpenAI.MaxHistory,
	}, logger)
}

func startGateway(
	cfg config.Config,
	natsClient *natsclient.Client,
	natsUp bool,
	logger *slog.Logger,
) (*wsgateway.Gateway, error) {
	if !natsUp {
		return nil, nil
	}

	gateway := wsgateway.New(wsgateway.Config{
		Addr: cfg.Gateway.Addr,
		Path: cfg.Gateway.Path,
	}, natsClient, logger)
	if err := gateway.Start(); err != nil {
		return nil, fmt.Errorf("start gateway: %w", err)
	}
	return gateway, nil
}

// startIngest subscribes the inbound subject space and feeds each decoded
// message through the pipeline. The account ID is the subject suffix; a
// mismatched body AccountID is overridden by the subject.
func startIngest(ctx context.Context, natsClient *natsclient.Client, p *pipeline.Pipeline, logger *slog.Logger) error {
	_, err := natsClient.Subscribe(inboundPrefix+">", func(m *nats.Msg) {
		accountID := strings.TrimPrefix(m.Subject, inboundPrefix)
		if accountID == "" || strings.Contains(accountID, ".") {
			logger.Warn("dropping inbound message with bad subject", "subject", m.Subject)
			return
		}

		var msg message.ChatMessage
		if err := json.Unmarshal(m.Data, &msg); err != nil {
			logger.Warn("dropping undecodable inbound message",
				"subject", m.Subject, "error", err)
			return
		}
		msg.AccountID = accountID

		p.Process(ctx, msg, accountID)
	})
	return err
}

// buildDirectory indexes the configured accounts for lookup by ID.
func buildDirectory(accounts []config.AccountConfig, logger *slog.Logger) collab.AccountDirectory {
	dir := staticDirectory{accounts: make(map[string]*collab.Account, len(accounts))}
	for _, ac := range accounts {
		dir.accounts[ac.ID] = &collab.Account{
			ID:          ac.ID,
			DisplayName: ac.DisplayName,
			SelfID:      parseUUID(ac.SelfID, "self_id", ac.ID, logger),
			OwnerID:     parseUUID(ac.OwnerID, "owner_id", ac.ID, logger),
			RelayTarget: parseUUID(ac.RelayTarget, "relay_target", ac.ID, logger),
		}
	}
	return dir
}

func parseUUID(value, field, accountID string, logger *slog.Logger) uuid.UUID {
	if value == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		logger.Warn("invalid UUID in account config, treating as unset",
			"account", accountID, "field", field, "value", value)
		return uuid.Nil
	}
	return id
}

// staticDirectory serves the accounts fixed in the config file.
type staticDirectory struct {
	accounts map[string]*collab.Account
}

func (d staticDirectory) Account(_ context.Context, accountID string) (*collab.Account, error) {
	return d.accounts[accountID], nil
}

func shutdown(gateway *wsgateway.Gateway, metricsServer *metric.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if gateway != nil {
		if err := gateway.Stop(shutdownTimeout); err != nil {
			slog.Error("Error stopping gateway", "error", err)
		}
	}
	if metricsServer != nil {
		if err := metricsServer.Stop(shutdownCtx); err != nil {
			slog.Error("Error stopping metrics server", "error", err)
		}
	}

	slog.Info("RadeWeb shutdown complete")
	return nil
}
