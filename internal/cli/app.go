// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jeranaias/rigrun-recall/internal/analytics"
	"github.com/jeranaias/rigrun-recall/internal/config"
	"github.com/jeranaias/rigrun-recall/internal/ollama"
	"github.com/jeranaias/rigrun-recall/internal/orchestrator"
	"github.com/jeranaias/rigrun-recall/internal/plugins"
	"github.com/jeranaias/rigrun-recall/internal/retrieval"
	"github.com/jeranaias/rigrun-recall/internal/storage"
)

// LogFileName is the log file inside the data directory.
const LogFileName = "recall.log"

// =============================================================================
// CONFIGURATION
// =============================================================================

// LoadConfig reads the config file named by args (or the default one) and
// applies command-line overrides on top.
func LoadConfig(args Args) (*config.Config, string, error) {
	path, err := resolveConfigPath(args)
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.LoadFromPath(path)
	if err != nil {
		return nil, path, err
	}
	ApplyFlags(cfg, args)
	if err := cfg.Validate(); err != nil {
		return nil, path, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, path, nil
}

// resolveConfigPath returns --config expanded, or the default path.
func resolveConfigPath(args Args) (string, error) {
	if args.ConfigPath == "" {
		return config.ConfigPath()
	}
	return config.ExpandPath(args.ConfigPath)
}

// ApplyFlags copies command-line overrides into cfg.
func ApplyFlags(cfg *config.Config, args Args) {
	if args.Model != "" {
		cfg.Server.Model = args.Model
	}
	if args.Endpoint != "" {
		cfg.Server.Endpoint = args.Endpoint
	}
	if args.DataDir != "" {
		cfg.Storage.DataDir = args.DataDir
	}
	if args.NoRAG {
		cfg.Retrieval.Enabled = false
	}
}

// Settings maps the configuration onto orchestrator tunables.
func Settings(cfg *config.Config) orchestrator.Settings {
	return orchestrator.Settings{
		Model:             cfg.Server.Model,
		Endpoint:          cfg.Server.Endpoint,
		RetrievalEnabled:  cfg.Retrieval.Enabled,
		SuggestionLimit:   cfg.Retrieval.Limit,
		ContextEntries:    cfg.Retrieval.ContextEntries,
		MinQueryLength:    cfg.Retrieval.MinQueryLength,
		DebounceEvery:     cfg.Retrieval.DebounceEvery,
		RequestTimeout:    cfg.Orchestrator.RequestTimeout.Duration,
		BackgroundTimeout: cfg.Orchestrator.BackgroundTimeout.Duration,
		MaxWorkers:        cfg.Orchestrator.MaxWorkers,
	}
}

// =============================================================================
// LOGGING
// =============================================================================

// ParseLevel maps a config level name to slog.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetupLogging points the default slog logger at <dataDir>/recall.log. The
// returned closer closes the file.
func SetupLogging(dataDir, level string) (io.Closer, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dataDir, LogFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	handler := slog.NewTextHandler(f, &slog.HandlerOptions{Level: ParseLevel(level)})
	slog.SetDefault(slog.New(handler))
	return f, nil
}

// =============================================================================
// APP
// =============================================================================

// App is the wired set of components a command works with.
type App struct {
	Config     *config.Config
	ConfigPath string
	DataDir    string

	Store     *storage.ConversationStore
	Client    *ollama.Client
	Engine    *retrieval.Engine
	Analytics *analytics.Aggregator
	Plugins   *plugins.Registry

	logger  *slog.Logger
	logFile io.Closer
	session *orchestrator.Orchestrator

	mu sync.Mutex // guards Config after a live reload
}

// OpenApp loads configuration, starts logging and opens the conversation
// log.
func OpenApp(args Args) (*App, error) {
	cfg, path, err := LoadConfig(args)
	if err != nil {
		return nil, err
	}
	return NewApp(cfg, path)
}

// NewApp wires components for cfg.
func NewApp(cfg *config.Config, configPath string) (*App, error) {
	dataDir, err := cfg.DataDir()
	if err != nil {
		return nil, err
	}
	logFile, err := SetupLogging(dataDir, cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("component", "cli")

	store, err := storage.Open(dataDir, storage.WithLogger(slog.Default().With("component", "storage")))
	if err != nil {
		logFile.Close()
		return nil, err
	}

	reg, err := plugins.FromNames(cfg.Plugins.Enabled, cfg.Plugins.TranslatorLanguage, cfg.Plugins.SummarizerMaxLength)
	if err != nil {
		logFile.Close()
		return nil, err
	}

	client := ollama.NewClientWithConfig(&ollama.ClientConfig{
		Endpoint:          cfg.Server.Endpoint,
		RequestsPerSecond: cfg.Server.RequestsPerSecond,
	})

	logger.Debug("app opened", "data_dir", dataDir, "config", configPath, "model", cfg.Server.Model)
	return &App{
		Config:     cfg,
		ConfigPath: configPath,
		DataDir:    dataDir,
		Store:      store,
		Client:     client,
		Engine:     retrieval.NewEngine(store),
		Analytics:  analytics.NewAggregator(store),
		Plugins:    reg,
		logger:     logger,
		logFile:    logFile,
	}, nil
}

// Session returns the orchestrator, creating it on first use.
func (a *App) Session() (*orchestrator.Orchestrator, error) {
	if a.session != nil {
		return a.session, nil
	}
	orch, err := orchestrator.New(orchestrator.Options{
		Generator: a.Client,
		Store:     a.Store,
		Finder:    a.Engine,
		Refresher: a.Analytics,
		Plugins:   a.Plugins,
		Settings:  Settings(a.Config),
		Logger:    slog.Default().With("component", "orchestrator"),
	})
	if err != nil {
		return nil, err
	}
	a.session = orch
	return orch, nil
}

// ApplyConfig pushes a reloaded config into the running session. Only
// settings that can change live are applied.
func (a *App) ApplyConfig(cfg *config.Config) {
	a.mu.Lock()
	a.Config = cfg
	a.mu.Unlock()
	if a.session == nil {
		return
	}
	a.session.SetModel(cfg.Server.Model)
	a.session.SetEndpoint(cfg.Server.Endpoint)
	a.session.SetRetrievalEnabled(cfg.Retrieval.Enabled)

	if reg, err := plugins.FromNames(cfg.Plugins.Enabled, cfg.Plugins.TranslatorLanguage, cfg.Plugins.SummarizerMaxLength); err == nil {
		for _, name := range reg.Names() {
			p, _ := reg.Get(name)
			a.Plugins.Register(p)
		}
	}
	a.logger.Info("config applied", "model", cfg.Server.Model, "endpoint", cfg.Server.Endpoint)
}

// WatchConfig reloads the config file when it changes on disk. Flags from
// args are reapplied on every reload so they keep winning. notify receives a
// one-line status for the user.
func (a *App) WatchConfig(args Args, notify func(text string, isErr bool)) (*config.Watcher, error) {
	if a.ConfigPath == "" {
		return nil, nil
	}
	return config.Watch(context.Background(), a.ConfigPath, func(cfg *config.Config, err error) {
		if err != nil {
			notify("Config reload failed: "+err.Error(), true)
			return
		}
		ApplyFlags(cfg, args)
		if err := cfg.Validate(); err != nil {
			notify("Config reload failed: "+err.Error(), true)
			return
		}
		a.ApplyConfig(cfg)
		notify("Config reloaded.", false)
	})
}

// CurrentConfig returns the latest applied config.
func (a *App) CurrentConfig() *config.Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Config
}

// Close stops the session and closes the log file.
func (a *App) Close() {
	if a.session != nil {
		a.session.Close()
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
}
