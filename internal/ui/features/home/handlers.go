package home

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/deployhook/internal/dashboard"
	"github.com/leapstack-labs/deployhook/internal/metrics"
	"github.com/leapstack-labs/deployhook/internal/ui/features/common"
	"github.com/leapstack-labs/deployhook/internal/ui/features/home/components"
	"github.com/leapstack-labs/deployhook/internal/ui/notifier"
)

// rowsSelector is where repo rows are appended.
const rowsSelector = "table tbody"

// Handlers provides HTTP handlers for the dashboard feature.
type Handlers struct {
	view         *dashboard.View
	sessionStore sessions.Store
	notifier     *notifier.Notifier
	metrics      *metrics.Metrics
	logger       *slog.Logger
	isDev        bool
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps Deps) *Handlers {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{
		view:         deps.View,
		sessionStore: deps.SessionStore,
		notifier:     deps.Notifier,
		metrics:      deps.Metrics,
		logger:       logger,
		isDev:        deps.IsDev,
	}
}

// Page renders the dashboard. Rows are loaded by the page itself over SSE.
func (h *Handlers) Page(w http.ResponseWriter, r *http.Request) {
	flash := common.PopFlash(h.sessionStore, w, r)

	data := components.PageData{
		Title:       "Dashboard",
		IsDev:       h.isDev,
		Flash:       flash.Message,
		FlashError:  flash.IsError,
		AppSelector: h.view.AppSelector(),
	}
	if err := components.Page(data).Render(r.Context(), w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// ReposSSE appends one row per repo to the table body, in response order.
func (h *Handlers) ReposSSE(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	repos, err := h.viewFor(sse).LoadRepos(r.Context())
	if err != nil {
		return
	}

	for _, repo := range repos {
		if err := sse.PatchElementTempl(components.RepoRow(repo),
			datastar.WithSelector(rowsSelector),
			datastar.WithModeAppend(),
		); err != nil {
			h.logger.Debug("repos stream closed", slog.String("error", err.Error()))
			return
		}
	}
}

// AppsSSE opens the add dialog and, with the app selector enabled, fills it
// with every non-system app. The dialog opens whatever the fetch outcome.
func (h *Handlers) AppsSSE(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	if err := sse.MarshalAndPatchSignals(map[string]any{"modalOpen": true}); err != nil {
		return
	}

	if !h.view.AppSelector() {
		return
	}

	apps, err := h.viewFor(sse).LoadApps(r.Context())
	if err != nil {
		return
	}

	if h.view.ClearOptions() {
		if err := sse.PatchElementTempl(components.AppPlaceholder(),
			datastar.WithSelectorID(components.AppSelectID),
			datastar.WithModeInner(),
		); err != nil {
			return
		}
	}

	for _, app := range apps {
		if err := sse.PatchElementTempl(components.AppOption(app),
			datastar.WithSelectorID(components.AppSelectID),
			datastar.WithModeAppend(),
		); err != nil {
			return
		}
	}
}

// UpdatesSSE is the long-lived SSE endpoint for the dashboard page.
// It re-renders the repo table body whenever the repo list changes.
func (h *Handlers) UpdatesSSE(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	updates := h.notifier.Subscribe()
	defer h.notifier.Unsubscribe(updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			repos, err := h.viewFor(sse).LoadRepos(ctx)
			if err != nil {
				// alert already shown; keep waiting for the next update
				continue
			}
			if err := sse.PatchElementTempl(components.ReposBody(repos)); err != nil {
				_ = sse.ConsoleError(err)
			}
		}
	}
}

// viewFor routes the view's failures to the alert on this stream.
func (h *Handlers) viewFor(sse *datastar.ServerSentEventGenerator) *dashboard.View {
	return h.view.WithFailure(func(ctx context.Context, reqErr *dashboard.RequestError) {
		h.logger.WarnContext(ctx, "dashboard request failed",
			slog.String("method", reqErr.Method),
			slog.String("url", reqErr.URL),
			slog.String("error", reqErr.Error()))
		h.metrics.DashboardFailure(reqErr.URL)

		if err := sse.PatchElementTempl(components.Alert(reqErr.Message())); err != nil {
			h.logger.Debug("failed to patch alert", slog.String("error", err.Error()))
		}
	})
}
