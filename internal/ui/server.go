// Package ui serves the deployhook HTTP surface: the GitHub webhook, the
// repo JSON API and the dashboard.
package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/deployhook/internal/controller"
	"github.com/leapstack-labs/deployhook/internal/metrics"
	"github.com/leapstack-labs/deployhook/internal/ui/notifier"
	"github.com/leapstack-labs/deployhook/internal/ui/resources"
	"github.com/leapstack-labs/deployhook/internal/ui/router"
	"github.com/leapstack-labs/deployhook/internal/webhook"
	"github.com/leapstack-labs/deployhook/pkg/core"
)

// Server is the main HTTP server.
type Server struct {
	store        core.Store
	controller   *controller.Client
	deployer     *webhook.Deployer
	webhook      *webhook.Handler
	sessionStore *sessions.CookieStore
	port         int
	logger       *slog.Logger
	notifier     *notifier.Notifier
	metrics      *metrics.Metrics

	apiURL       string
	appSelector  bool
	clearOptions bool
}

// DeployConfig configures the deploy workers.
type DeployConfig struct {
	App          string
	Workers      int
	QueueSize    int
	Timeout      time.Duration
	PollInterval time.Duration
}

// Config holds configuration for the server.
type Config struct {
	Store         core.Store
	Controller    *controller.Client
	Port          int
	SecretToken   string
	SessionSecret string
	Deploy        DeployConfig
	Logger        *slog.Logger
	Metrics       *metrics.Metrics

	APIURL       string
	AppSelector  bool
	ClearOptions bool
}

// NewServer creates a new server instance.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.MaxAge(86400 * 30) // 30 days
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	var runner webhook.JobRunner
	if cfg.Controller != nil {
		runner = cfg.Controller
	}
	deployer := webhook.NewDeployer(webhook.DeployerConfig{
		Controller:   runner,
		BuilderApp:   cfg.Deploy.App,
		Workers:      cfg.Deploy.Workers,
		QueueSize:    cfg.Deploy.QueueSize,
		Timeout:      cfg.Deploy.Timeout,
		PollInterval: cfg.Deploy.PollInterval,
		Logger:       logger.With(slog.String("component", "deployer")),
		Metrics:      cfg.Metrics,
	})

	hook := webhook.NewHandler(webhook.HandlerConfig{
		Secret:  []byte(cfg.SecretToken),
		Repos:   cfg.Store,
		Queue:   deployer,
		Logger:  logger.With(slog.String("component", "webhook")),
		Metrics: cfg.Metrics,
	})

	notify := notifier.New()
	cfg.Metrics.ObserveStreams(notify.Count)

	return &Server{
		store:        cfg.Store,
		controller:   cfg.Controller,
		deployer:     deployer,
		webhook:      hook,
		sessionStore: sessionStore,
		port:         cfg.Port,
		logger:       logger,
		notifier:     notify,
		metrics:      cfg.Metrics,
		apiURL:       cfg.APIURL,
		appSelector:  cfg.AppSelector,
		clearOptions: cfg.ClearOptions,
	}
}

// Handler builds the routed HTTP handler.
func (s *Server) Handler() (http.Handler, error) {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	deps := router.Deps{
		Store:        s.store,
		Webhook:      s.webhook,
		SessionStore: s.sessionStore,
		Notifier:     s.notifier,
		Metrics:      s.metrics,
		Logger:       s.logger,
		APIURL:       s.apiURL,
		AppSelector:  s.appSelector,
		ClearOptions: s.clearOptions,
		IsDev:        s.IsDev(),
	}
	if s.controller != nil {
		deps.Apps = s.controller
	}

	if err := router.SetupRoutes(r, deps); err != nil {
		return nil, fmt.Errorf("failed to setup routes: %w", err)
	}
	return r, nil
}

// Serve starts the server and deploy workers and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting server", "addr", fmt.Sprintf("http://localhost:%d", s.port))

	eg, egctx := errgroup.WithContext(ctx)

	handler, err := s.Handler()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Deploy workers
	eg.Go(func() error {
		return s.deployer.Run(egctx)
	})

	// Start HTTP server
	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// IsDev reports whether the binary was built with the dev tag.
func (s *Server) IsDev() bool {
	return resources.IsDev
}
