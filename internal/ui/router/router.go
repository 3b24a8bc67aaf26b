// Package router sets up HTTP routes for the UI server.
package router

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/deployhook/internal/dashboard"
	"github.com/leapstack-labs/deployhook/internal/metrics"
	apiFeature "github.com/leapstack-labs/deployhook/internal/ui/features/api"
	homeFeature "github.com/leapstack-labs/deployhook/internal/ui/features/home"
	"github.com/leapstack-labs/deployhook/internal/ui/notifier"
	"github.com/leapstack-labs/deployhook/internal/ui/resources"
	"github.com/leapstack-labs/deployhook/pkg/core"
)

// Deps holds everything the routes are built from.
type Deps struct {
	Store        core.Store
	Apps         apiFeature.AppLister
	Webhook      http.Handler
	SessionStore sessions.Store
	Notifier     *notifier.Notifier
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
	// APIURL points the dashboard at a remote deployhook; empty reads in-process.
	APIURL       string
	AppSelector  bool
	ClearOptions bool
	IsDev        bool
}

// SetupRoutes configures all routes for the server.
func SetupRoutes(router chi.Router, deps Deps) error {
	// Hot reload endpoint for dev mode
	if deps.IsDev {
		setupReload(router)
	}

	// Static assets
	router.Handle("/static/*", resources.Handler())

	if deps.Metrics != nil {
		router.Handle("/metrics", deps.Metrics.Handler())
	}

	if deps.Webhook != nil {
		router.Method(http.MethodPost, "/", deps.Webhook)
	}

	if err := apiFeature.SetupRoutes(router, deps.Store, deps.Apps, deps.SessionStore, deps.Notifier, deps.Logger); err != nil {
		return err
	}

	// in-process reads go back through the router itself
	source, err := dashboardSource(deps.APIURL, router)
	if err != nil {
		return err
	}
	view := dashboard.New(dashboard.Config{
		Source:       source,
		Logger:       deps.Logger,
		ClearOptions: deps.ClearOptions,
		AppSelector:  deps.AppSelector,
	})

	return homeFeature.SetupRoutes(router, homeFeature.Deps{
		View:         view,
		SessionStore: deps.SessionStore,
		Notifier:     deps.Notifier,
		Metrics:      deps.Metrics,
		Logger:       deps.Logger,
		IsDev:        deps.IsDev,
	})
}

func dashboardSource(apiURL string, h http.Handler) (dashboard.Source, error) {
	if apiURL == "" {
		return dashboard.NewHandlerSource(h), nil
	}
	return dashboard.NewHTTPSource(apiURL, nil)
}

func setupReload(router chi.Router) {
	reloadChan := make(chan struct{}, 1)
	var hotReloadOnce sync.Once

	router.Get("/reload", func(w http.ResponseWriter, r *http.Request) {
		sse := datastar.NewSSE(w, r)
		reload := func() { _ = sse.ExecuteScript("window.location.reload()") }
		hotReloadOnce.Do(reload)
		select {
		case <-reloadChan:
			reload()
		case <-r.Context().Done():
		}
	})

	router.Get("/hotreload", func(w http.ResponseWriter, _ *http.Request) {
		select {
		case reloadChan <- struct{}{}:
		default:
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}
