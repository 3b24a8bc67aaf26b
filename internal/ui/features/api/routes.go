// Package api serves the JSON and form endpoints behind the dashboard.
package api

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"

	"github.com/leapstack-labs/deployhook/internal/ui/notifier"
	"github.com/leapstack-labs/deployhook/pkg/core"
)

// AppLister lists the controller's apps.
type AppLister interface {
	AppList(ctx context.Context) ([]core.App, error)
}

// SetupRoutes registers the repo and app endpoints.
func SetupRoutes(
	router chi.Router,
	store core.Store,
	apps AppLister,
	sessionStore sessions.Store,
	notify *notifier.Notifier,
	logger *slog.Logger,
) error {
	handlers := NewHandlers(store, apps, sessionStore, notify, logger)

	router.Get("/repos.json", handlers.ListRepos)
	router.Post("/repos", handlers.CreateRepo)
	router.Get("/apps.json", handlers.ListApps)

	return nil
}
