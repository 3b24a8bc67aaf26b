// Package home serves the repos dashboard page and its SSE endpoints.
package home

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"

	"github.com/leapstack-labs/deployhook/internal/dashboard"
	"github.com/leapstack-labs/deployhook/internal/metrics"
	"github.com/leapstack-labs/deployhook/internal/ui/features/home/components"
	"github.com/leapstack-labs/deployhook/internal/ui/notifier"
)

// Deps holds what the dashboard handlers need.
type Deps struct {
	View         *dashboard.View
	SessionStore sessions.Store
	Notifier     *notifier.Notifier
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
	IsDev        bool
}

// SetupRoutes configures routes for the dashboard feature.
func SetupRoutes(router chi.Router, deps Deps) error {
	handlers := NewHandlers(deps)

	router.Group(func(r chi.Router) {
		r.Use(dashboard.Origin)

		r.Get("/", handlers.Page)
		r.Get(components.ReposStreamPath, handlers.ReposSSE)
		r.Get(components.AppsStreamPath, handlers.AppsSSE)
		r.Get(components.UpdatesStreamPath, handlers.UpdatesSSE)
	})

	return nil
}
