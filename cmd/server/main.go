// Package main implements the entry point for the QAForge API server,
// a multi-tenant test management service: workspaces, projects, test
// trees, runs with executions, issues, webhooks and schedules.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/qaforge/qaforge/internal/config"
	"github.com/qaforge/qaforge/internal/platform/logger"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

// run loads configuration, prepares the database and starts the server.
// It is split out of main so every failure path flows through one error
// return instead of scattered os.Exit calls.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	slog.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel)

	db, err := openDatabase(cfg, appLogger)
	if err != nil {
		return err
	}

	if err := runMigrations(db, appLogger); err != nil {
		return err
	}

	ctx := context.Background()
	app, err := newApplication(ctx, cfg, appLogger, db)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return app.Run(ctx)
}
