package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/qaforge/qaforge/internal/config"
	"github.com/qaforge/qaforge/internal/platform/postgres"
	"github.com/qaforge/qaforge/internal/service"
	"github.com/qaforge/qaforge/internal/service/auth"
	"github.com/qaforge/qaforge/internal/store"
	"github.com/qaforge/qaforge/internal/task"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Stores (using interfaces for proper abstraction)
	userStore         store.UserStore
	settingsStore     store.UserSettingsStore
	configStore       store.SystemConfigStore
	workspaceStore    store.WorkspaceStore
	projectStore      store.ProjectStore
	pageStore         store.PageStore
	testStore         store.TestStore
	runStore          store.RunStore
	executionStore    store.ExecutionStore
	issueStore        store.IssueStore
	knowledgeStore    store.KnowledgeStore
	webhookStore      store.WebhookStore
	scheduleStore     store.ScheduleStore
	notificationStore store.NotificationStore

	// Services
	sessionService auth.SessionService
	passwordHasher auth.PasswordHasher
	runLauncher    *service.RunLauncher

	// Execution job processing
	jobQueue   *task.Queue
	workerPool *task.WorkerPool
}

// newApplication creates a new application instance with all dependencies
// initialized. It accepts core dependencies like configuration, logger, and
// database connection that must be established before application
// initialization.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.sessionService, err = auth.NewSessionService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session service: %w", err)
	}
	logger.Info("session service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	app.passwordHasher = auth.NewBcryptHasher()

	app.userStore = postgres.NewUserStore(db, logger)
	app.settingsStore = postgres.NewSettingsStore(db, logger)
	app.configStore = postgres.NewConfigStore(db, logger)
	app.workspaceStore = postgres.NewWorkspaceStore(db, logger)
	app.projectStore = postgres.NewProjectStore(db, logger)
	app.pageStore = postgres.NewPageStore(db, logger)
	app.testStore = postgres.NewTestStore(db, logger)
	app.runStore = postgres.NewRunStore(db, logger)
	app.executionStore = postgres.NewExecutionStore(db, logger)
	app.issueStore = postgres.NewIssueStore(db, logger)
	app.knowledgeStore = postgres.NewKnowledgeStore(db, logger)
	app.webhookStore = postgres.NewWebhookStore(db, logger)
	app.scheduleStore = postgres.NewScheduleStore(db, logger)
	app.notificationStore = postgres.NewNotificationStore(db, logger)

	app.jobQueue = task.NewQueue(cfg.Task.QueueSize, logger)
	app.workerPool = task.NewWorkerPool(
		app.jobQueue,
		task.NewNoopRunner(logger),
		cfg.Task.WorkerCount,
		logger,
	)
	app.workerPool.Start(ctx)

	app.runLauncher = service.NewRunLauncher(app.runStore, app.testStore, app.jobQueue, logger)

	logger.Info("application initialized")
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// sessionCookieTTL derives the cookie lifetime from the token lifetime so
// browser sessions and token expiry stay in lockstep.
func (app *application) sessionCookieTTL() time.Duration {
	return time.Duration(app.config.Auth.TokenLifetimeMinutes) * time.Minute
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.jobQueue != nil {
		app.jobQueue.Close()
	}
	if app.workerPool != nil {
		app.workerPool.Stop()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}

	app.logger.Info("application shutdown completed")
}
