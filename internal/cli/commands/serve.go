package commands

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/deployhook/internal/controller"
	"github.com/leapstack-labs/deployhook/internal/metrics"
	"github.com/leapstack-labs/deployhook/internal/ui"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook receiver and dashboard",
		Long: `Start the HTTP server.

The server provides:
- POST /           GitHub webhook receiver (ping and push events)
- GET  /           Repos dashboard
- GET  /repos.json Configured repos
- POST /repos      Add a repo
- GET  /apps.json  Controller apps
- GET  /metrics    Prometheus metrics`,
		Example: `  # Serve with a config file
  deployhook serve --config deployhook.yaml

  # Serve on a custom port against Postgres
  DEPLOYHOOK_SECRET_TOKEN=s3cret deployhook serve --port 8080 \
    --db-driver postgres --db postgres://localhost/deployhook \
    --controller http://controller.example.com`,
		RunE: runServe,
	}

	cmd.Flags().Int("port", 0, "Port to serve on (default: 5000)")
	cmd.Flags().String("secret", "", "GitHub webhook secret")
	cmd.Flags().String("controller", "", "Cluster controller URL")
	cmd.Flags().String("deploy-app", "", "App whose release runs deploy jobs (default: taffy)")
	cmd.Flags().Int("workers", 0, "Number of deploy workers")
	cmd.Flags().Int("queue-size", 0, "Deploy queue size")
	cmd.Flags().String("api-url", "", "Read dashboard data from another deployhook")
	cmd.Flags().Bool("no-selector", false, "Open the add dialog without the app selector")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cc := NewCommandContext(cmd)
	cfg := cc.Cfg
	if err := cfg.ValidateServe(); err != nil {
		return err
	}

	ctx := cmd.Context()

	store, err := cc.OpenStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	client, err := controller.New(controller.Config{
		URL:     cfg.Controller.URL,
		Key:     cfg.Controller.Key,
		Timeout: cfg.Controller.Timeout,
		Logger:  cc.Logger.With("component", "controller"),
	})
	if err != nil {
		return err
	}

	sessionSecret := cfg.UI.SessionSecret
	if sessionSecret == "" {
		sessionSecret, err = randomSecret()
		if err != nil {
			return err
		}
		cc.Logger.Warn("ui.session_secret not set, flash messages will not survive a restart")
	}

	server := ui.NewServer(ui.Config{
		Store:         store,
		Controller:    client,
		Port:          cfg.Port,
		SecretToken:   cfg.SecretToken,
		SessionSecret: sessionSecret,
		Deploy: ui.DeployConfig{
			App:          cfg.Deploy.App,
			Workers:      cfg.Deploy.Workers,
			QueueSize:    cfg.Deploy.QueueSize,
			Timeout:      cfg.Deploy.Timeout,
			PollInterval: cfg.Deploy.PollInterval,
		},
		Logger:       cc.Logger,
		Metrics:      metrics.New(),
		APIURL:       cfg.UI.APIURL,
		AppSelector:  cfg.UI.AppSelector,
		ClearOptions: cfg.UI.ClearOptions,
	})

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://localhost:%d\n", cfg.Port)
	return server.Serve(ctx)
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
