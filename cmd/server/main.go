// Package main is the entry point for the dashboard server.
//
// main stays minimal: load configuration, build the logger, make sure the
// database directory exists, start the server. Everything else lives in
// internal/.
package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sakif/pulse-dashboard/internal/config"
	"github.com/sakif/pulse-dashboard/internal/server"
)

func main() {
	// === 1. CONFIGURATION ===
	// .env (if present) seeds the environment; real variables win.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. LOGGING ===
	logger := cfg.Log.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	if missing := cfg.Providers.MissingKeys(); len(missing) > 0 {
		logger.Warn("provider API keys not set, those panels will show errors",
			slog.String("missing", strings.Join(missing, ",")),
		)
	}
	if cfg.Providers.GitHubToken == "" {
		logger.Info("GITHUB_TOKEN not set, GitHub requests are anonymous (60/hour)")
	}

	// === 3. DATABASE DIRECTORY ===
	dbDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", dbDir),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// === 4. START ===
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT/SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
