// Package webhook receives GitHub push webhooks and turns them into deployments.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/leapstack-labs/deployhook/internal/metrics"
	"github.com/leapstack-labs/deployhook/pkg/core"
)

// maxBodyBytes bounds the size of a webhook payload.
const maxBodyBytes = 25 << 20

// RepoFinder resolves a pushed repository branch to its binding.
type RepoFinder interface {
	GetRepo(ctx context.Context, name, branch string) (*core.Repo, error)
}

// Enqueuer accepts deployments for asynchronous processing.
type Enqueuer interface {
	Enqueue(dep Deployment) error
}

// HandlerConfig configures a Handler.
type HandlerConfig struct {
	Secret  []byte
	Repos   RepoFinder
	Queue   Enqueuer
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Handler verifies and dispatches GitHub webhook deliveries.
type Handler struct {
	secret  []byte
	repos   RepoFinder
	queue   Enqueuer
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler creates a webhook handler.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{
		secret:  cfg.Secret,
		repos:   cfg.Repos,
		queue:   cfg.Queue,
		logger:  logger,
		metrics: cfg.Metrics,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	defer func() { _ = req.Body.Close() }()

	eventHeader := req.Header.Get("X-Github-Event")
	if eventHeader == "" {
		h.reject(w, "missing X-Github-Event header")
		return
	}

	sigHeader := req.Header.Get("X-Hub-Signature")
	if sigHeader == "" {
		h.reject(w, "missing X-Hub-Signature header")
		return
	}

	// read the body while computing its signature
	var body bytes.Buffer
	mac := NewMAC(h.secret)
	if _, err := io.Copy(io.MultiWriter(&body, mac), http.MaxBytesReader(w, req.Body, maxBodyBytes)); err != nil {
		h.logger.Error("error reading request body", slog.String("error", err.Error()))
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if err := VerifyMAC(mac, sigHeader); err != nil {
		h.reject(w, err.Error())
		return
	}

	h.metrics.WebhookEvent(eventHeader)

	switch eventHeader {
	case EventPing:
		h.logger.Info("received ping event")
		_, _ = fmt.Fprintln(w, "pong")
		return
	case EventPush:
		h.logger.Info("received push event")
	default:
		h.reject(w, "unknown X-Github-Event: "+eventHeader)
		return
	}

	var event PushEvent
	if err := json.NewDecoder(&body).Decode(&event); err != nil {
		h.logger.Warn("error decoding JSON", slog.String("error", err.Error()))
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}

	h.push(req.Context(), w, event)
}

func (h *Handler) push(ctx context.Context, w http.ResponseWriter, event PushEvent) {
	if event.Deleted {
		h.logger.Info("skipping deleted branch", slog.String("ref", event.Ref))
		return
	}

	branch := event.Branch()
	repo, err := h.repos.GetRepo(ctx, event.Repository.FullName, branch)
	if err != nil {
		level := slog.LevelError
		if errors.Is(err, core.ErrRepoNotFound) {
			level = slog.LevelInfo
		}
		h.logger.Log(ctx, level, "error loading repo",
			slog.String("repo", event.Repository.FullName),
			slog.String("branch", branch),
			slog.String("error", err.Error()))
		return
	}

	dep := NewDeployment(repo.App, event.Repository.CloneURL, branch, event.HeadCommit.ID)
	if err := h.queue.Enqueue(dep); err != nil {
		h.logger.Error("error queueing deployment", slog.String("app", repo.App), slog.String("error", err.Error()))
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusAccepted)
	_, _ = fmt.Fprintln(w, dep.ID)
}

func (h *Handler) reject(w http.ResponseWriter, msg string) {
	h.logger.Warn("rejected webhook", slog.String("reason", msg))
	http.Error(w, msg, http.StatusBadRequest)
}
