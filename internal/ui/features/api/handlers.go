package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/leapstack-labs/deployhook/internal/ui/features/common"
	"github.com/leapstack-labs/deployhook/internal/ui/notifier"
	"github.com/leapstack-labs/deployhook/pkg/core"
)

// Handlers provides HTTP handlers for the api feature.
type Handlers struct {
	store        core.Store
	apps         AppLister
	sessionStore sessions.Store
	notifier     *notifier.Notifier
	logger       *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(store core.Store, apps AppLister, sessionStore sessions.Store, notify *notifier.Notifier, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{
		store:        store,
		apps:         apps,
		sessionStore: sessionStore,
		notifier:     notify,
		logger:       logger,
	}
}

// ListRepos returns every configured repo as a JSON array.
func (h *Handlers) ListRepos(w http.ResponseWriter, r *http.Request) {
	repos, err := h.store.ListRepos(r.Context())
	if err != nil {
		h.logger.Error("error getting repos", slog.String("error", err.Error()))
		http.Error(w, "error getting repos", http.StatusInternalServerError)
		return
	}
	if repos == nil {
		repos = []core.Repo{}
	}
	writeJSON(w, repos)
}

// CreateRepo adds a repo from a form post and redirects to the dashboard.
func (h *Handlers) CreateRepo(w http.ResponseWriter, r *http.Request) {
	repo := &core.Repo{
		Name:   r.FormValue("name"),
		Branch: r.FormValue("branch"),
		App:    r.FormValue("app"),
	}
	repo.Normalize()
	if err := repo.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err := h.store.CreateRepo(r.Context(), repo)
	switch {
	case errors.Is(err, core.ErrRepoExists):
		http.Error(w, "repo already exists", http.StatusConflict)
		return
	case errors.Is(err, core.ErrInvalidRepo):
		http.Error(w, core.ErrInvalidRepo.Error(), http.StatusBadRequest)
		return
	case err != nil:
		h.logger.Error("error adding repo to db", slog.String("error", err.Error()))
		http.Error(w, "error adding repo", http.StatusInternalServerError)
		return
	}

	h.logger.Info("repo added",
		slog.String("name", repo.Name),
		slog.String("branch", repo.Branch),
		slog.String("app", repo.App))

	if h.sessionStore != nil {
		msg := "Added " + repo.Name + " (" + repo.Branch + ") for app " + repo.App
		if err := common.AddFlash(h.sessionStore, w, r, common.Flash{Message: msg}); err != nil {
			h.logger.Warn("failed to save flash", slog.String("error", err.Error()))
		}
	}
	if h.notifier != nil {
		h.notifier.Broadcast()
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

// ListApps proxies the controller's app list.
func (h *Handlers) ListApps(w http.ResponseWriter, r *http.Request) {
	if h.apps == nil {
		h.logger.Error("error getting apps", slog.String("error", "no controller configured"))
		http.Error(w, "error getting apps", http.StatusInternalServerError)
		return
	}
	apps, err := h.apps.AppList(r.Context())
	if err != nil {
		h.logger.Error("error getting apps", slog.String("error", err.Error()))
		http.Error(w, "error getting apps", http.StatusInternalServerError)
		return
	}
	if apps == nil {
		apps = []core.App{}
	}
	writeJSON(w, apps)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
