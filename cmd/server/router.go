package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/qaforge/qaforge/internal/api"
	apimiddleware "github.com/qaforge/qaforge/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware. The API surface splits into a public group (auth entry
// points, webhook ingestion, health), a session-guarded group for everything
// else, and an admin subtree that additionally checks the persisted role.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(apimiddleware.NewTraceMiddleware(app.logger))

	guard := api.NewMemberGuard(app.workspaceStore, app.projectStore)

	authHandler := api.NewAuthHandler(
		app.userStore,
		app.settingsStore,
		app.sessionService,
		app.passwordHasher,
		app.sessionCookieTTL(),
	)
	workspaceHandler := api.NewWorkspaceHandler(app.workspaceStore, guard)
	projectHandler := api.NewProjectHandler(app.projectStore, guard)
	pageHandler := api.NewPageHandler(app.pageStore, guard)
	testHandler := api.NewTestHandler(app.testStore, guard)
	runHandler := api.NewRunHandler(app.runStore, app.executionStore, app.runLauncher, guard)
	executionHandler := api.NewExecutionHandler(app.executionStore, app.runStore, app.issueStore, guard)
	issueHandler := api.NewIssueHandler(app.issueStore, guard)
	knowledgeHandler := api.NewKnowledgeHandler(app.knowledgeStore, app.userStore)
	webhookHandler := api.NewWebhookHandler(app.webhookStore, app.runLauncher, guard)
	scheduleHandler := api.NewScheduleHandler(app.scheduleStore, guard)
	notificationHandler := api.NewNotificationHandler(app.notificationStore)
	adminHandler := api.NewAdminHandler(app.userStore, app.configStore, app.passwordHasher)
	healthHandler := api.NewHealthHandler(app.db)

	authMiddleware := apimiddleware.NewAuthMiddleware(app.sessionService)
	adminMiddleware := apimiddleware.NewAdminMiddleware(app.userStore)

	r.Route("/api", func(r chi.Router) {
		// Public endpoints
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/webhooks/ingest/{token}", webhookHandler.Ingest)
		r.Get("/health", healthHandler.Check)

		// Session-guarded endpoints
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Post("/auth/logout", authHandler.Logout)
			r.Get("/auth/me", authHandler.Me)
			r.Get("/auth/settings", authHandler.GetSettings)
			r.Put("/auth/settings", authHandler.UpdateSettings)

			r.Route("/workspaces", func(r chi.Router) {
				r.Get("/", workspaceHandler.List)
				r.Post("/", workspaceHandler.Create)
				r.Get("/{id}", workspaceHandler.Get)
				r.Put("/{id}", workspaceHandler.Update)
				r.Delete("/{id}", workspaceHandler.Delete)
				r.Get("/{id}/members", workspaceHandler.ListMembers)
				r.Post("/{id}/members", workspaceHandler.AddMember)
				r.Put("/{id}/members/{userId}", workspaceHandler.UpdateMemberRole)
				r.Delete("/{id}/members/{userId}", workspaceHandler.RemoveMember)
				r.Get("/{id}/projects", projectHandler.ListByWorkspace)
				r.Post("/{id}/projects", projectHandler.Create)
			})

			r.Route("/projects", func(r chi.Router) {
				r.Get("/{id}", projectHandler.Get)
				r.Put("/{id}", projectHandler.Update)
				r.Delete("/{id}", projectHandler.Delete)
				r.Get("/{id}/pages", pageHandler.ListByProject)
				r.Post("/{id}/pages", pageHandler.Create)
			})

			r.Route("/pages", func(r chi.Router) {
				r.Get("/{id}", pageHandler.Get)
				r.Put("/{id}", pageHandler.Update)
				r.Delete("/{id}", pageHandler.Delete)
			})

			r.Route("/tests", func(r chi.Router) {
				r.Get("/", testHandler.List)
				r.Post("/", testHandler.Create)
				r.Get("/{id}", testHandler.Get)
				r.Put("/{id}", testHandler.Update)
				r.Delete("/{id}", testHandler.Delete)
			})

			r.Route("/runs", func(r chi.Router) {
				r.Get("/", runHandler.List)
				r.Post("/", runHandler.Create)
				r.Get("/{id}", runHandler.Get)
				r.Patch("/{id}", runHandler.UpdateStatus)
				r.Delete("/{id}", runHandler.Delete)
				r.Get("/{id}/export", runHandler.Export)
			})

			r.Route("/executions", func(r chi.Router) {
				r.Get("/{id}", executionHandler.Get)
				r.Put("/{id}", executionHandler.Update)
				r.Post("/{id}/issues", executionHandler.CreateIssue)
			})

			r.Route("/issues", func(r chi.Router) {
				r.Get("/", issueHandler.List)
				r.Post("/", issueHandler.Create)
				r.Get("/{id}", issueHandler.Get)
				r.Put("/{id}", issueHandler.Update)
				r.Patch("/{id}/status", issueHandler.UpdateStatus)
				r.Delete("/{id}", issueHandler.Delete)
			})

			r.Route("/knowledge", func(r chi.Router) {
				r.Get("/", knowledgeHandler.List)
				r.Post("/", knowledgeHandler.Create)
				r.Get("/{id}", knowledgeHandler.Get)
				r.Put("/{id}", knowledgeHandler.Update)
				r.Delete("/{id}", knowledgeHandler.Delete)
			})

			r.Route("/webhooks", func(r chi.Router) {
				r.Get("/", webhookHandler.ListByProject)
				r.Post("/", webhookHandler.Create)
				r.Get("/{id}", webhookHandler.Get)
				r.Put("/{id}", webhookHandler.Update)
				r.Delete("/{id}", webhookHandler.Delete)
				r.Get("/{id}/deliveries", webhookHandler.ListDeliveries)
			})

			r.Route("/schedules", func(r chi.Router) {
				r.Get("/", scheduleHandler.ListByProject)
				r.Post("/", scheduleHandler.Create)
				r.Get("/{id}", scheduleHandler.Get)
				r.Put("/{id}", scheduleHandler.Update)
				r.Delete("/{id}", scheduleHandler.Delete)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", notificationHandler.List)
				r.Patch("/{id}/read", notificationHandler.MarkRead)
				r.Post("/read-all", notificationHandler.MarkAllRead)
				r.Delete("/{id}", notificationHandler.Delete)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(adminMiddleware.RequireAdmin)

				r.Get("/users", adminHandler.ListUsers)
				r.Post("/users", adminHandler.CreateUser)
				r.Get("/users/{id}", adminHandler.GetUser)
				r.Put("/users/{id}", adminHandler.UpdateUser)
				r.Delete("/users/{id}", adminHandler.DeleteUser)
				r.Get("/config", adminHandler.ListConfig)
				r.Put("/config", adminHandler.UpsertConfig)
			})
		})
	})

	return r
}
