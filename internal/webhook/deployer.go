package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/deployhook/internal/metrics"
	"github.com/leapstack-labs/deployhook/pkg/core"
)

var (
	// ErrQueueFull is returned by Enqueue when no more deployments can be buffered.
	ErrQueueFull = errors.New("deploy queue is full")
	// ErrJobFailed is returned when the deploy job ends in any state but a clean exit.
	ErrJobFailed = errors.New("deploy job failed")
)

// DefaultPollInterval is how often a running deploy job is checked.
const DefaultPollInterval = 2 * time.Second

// JobRunner is the part of the controller API a deploy needs.
type JobRunner interface {
	GetAppRelease(ctx context.Context, app string) (*core.Release, error)
	RunJob(ctx context.Context, app string, job *core.NewJob) (*core.Job, error)
	GetJob(ctx context.Context, app, id string) (*core.Job, error)
}

// Deployment is one queued deploy of an app at a commit.
type Deployment struct {
	ID       string
	App      string
	CloneURL string
	Branch   string
	Commit   string
}

// NewDeployment returns a deployment with a fresh ID.
func NewDeployment(app, cloneURL, branch, commit string) Deployment {
	return Deployment{
		ID:       uuid.NewString(),
		App:      app,
		CloneURL: cloneURL,
		Branch:   branch,
		Commit:   commit,
	}
}

// DeployerConfig configures a Deployer.
type DeployerConfig struct {
	Controller JobRunner
	// BuilderApp is the app whose release runs the deploy job.
	BuilderApp string
	Workers    int
	QueueSize  int
	// Timeout bounds a whole deploy, including waiting for the job to finish.
	Timeout      time.Duration
	PollInterval time.Duration
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
}

// Deployer runs deployments on a fixed pool of workers.
type Deployer struct {
	controller   JobRunner
	builderApp   string
	workers      int
	timeout      time.Duration
	pollInterval time.Duration
	queue        chan Deployment
	logger       *slog.Logger
	metrics      *metrics.Metrics

	// completed is called after each deployment; tests use it to observe workers.
	completed func(Deployment, error)
}

// NewDeployer creates a Deployer. Call Run to start its workers.
func NewDeployer(cfg DeployerConfig) *Deployer {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	if cfg.BuilderApp == "" {
		cfg.BuilderApp = "taffy"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	return &Deployer{
		controller:   cfg.Controller,
		builderApp:   cfg.BuilderApp,
		workers:      cfg.Workers,
		timeout:      cfg.Timeout,
		pollInterval: cfg.PollInterval,
		queue:        make(chan Deployment, cfg.QueueSize),
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
	}
}

// Enqueue buffers a deployment without blocking.
func (d *Deployer) Enqueue(dep Deployment) error {
	select {
	case d.queue <- dep:
		d.logger.Info("deployment queued",
			slog.String("id", dep.ID),
			slog.String("app", dep.App),
			slog.String("branch", dep.Branch),
			slog.String("commit", dep.Commit))
		return nil
	default:
		d.metrics.Deploy(metrics.DeployDropped)
		return ErrQueueFull
	}
}

// Run processes queued deployments until ctx is cancelled.
func (d *Deployer) Run(ctx context.Context) error {
	eg, egctx := errgroup.WithContext(ctx)
	for i := 0; i < d.workers; i++ {
		eg.Go(func() error {
			d.work(egctx)
			return nil
		})
	}
	return eg.Wait()
}

func (d *Deployer) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case dep := <-d.queue:
			err := d.Deploy(ctx, dep)
			if d.completed != nil {
				d.completed(dep, err)
			}
		}
	}
}

// Deploy runs a single deployment synchronously and waits for its job to
// finish. Only a job that stops cleanly counts as succeeded.
func (d *Deployer) Deploy(ctx context.Context, dep Deployment) error {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	logger := d.logger.With(slog.String("id", dep.ID), slog.String("app", dep.App))
	logger.Info("deploying",
		slog.String("url", dep.CloneURL),
		slog.String("branch", dep.Branch),
		slog.String("commit", dep.Commit))

	err := d.deploy(ctx, logger, dep)
	switch {
	case errors.Is(err, ErrJobFailed):
		logger.Error("unexpected exit status", slog.String("error", err.Error()))
	case err != nil:
		logger.Error("deploy failed", slog.String("error", err.Error()))
	}
	if err != nil {
		d.metrics.Deploy(metrics.DeployFailed)
		return err
	}

	logger.Info("deploy complete")
	d.metrics.Deploy(metrics.DeploySucceeded)
	return nil
}

func (d *Deployer) deploy(ctx context.Context, logger *slog.Logger, dep Deployment) error {
	if d.controller == nil {
		return fmt.Errorf("no controller configured")
	}

	release, err := d.controller.GetAppRelease(ctx, d.builderApp)
	if err != nil {
		return fmt.Errorf("failed to get %s release: %w", d.builderApp, err)
	}

	job, err := d.controller.RunJob(ctx, d.builderApp, &core.NewJob{
		ReleaseID:  release.ID,
		ReleaseEnv: true,
		Args:       []string{"/bin/" + d.builderApp, dep.App, dep.CloneURL, dep.Branch, dep.Commit},
	})
	if err != nil {
		return fmt.Errorf("failed to run %s job: %w", d.builderApp, err)
	}
	logger.Debug("deploy job created", slog.String("job", job.ID))

	job, err = d.wait(ctx, job)
	if err != nil {
		return fmt.Errorf("failed waiting for %s job: %w", d.builderApp, err)
	}
	if !job.Succeeded() {
		if job.ExitStatus != nil {
			return fmt.Errorf("%w: job %s %s with exit status %d", ErrJobFailed, job.ID, job.State, *job.ExitStatus)
		}
		return fmt.Errorf("%w: job %s %s", ErrJobFailed, job.ID, job.State)
	}
	return nil
}

// wait polls the job until it reaches a terminal state or ctx is done.
func (d *Deployer) wait(ctx context.Context, job *core.Job) (*core.Job, error) {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for !job.Done() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		next, err := d.controller.GetJob(ctx, d.builderApp, job.ID)
		if err != nil {
			return nil, err
		}
		job = next
	}
	return job, nil
}
