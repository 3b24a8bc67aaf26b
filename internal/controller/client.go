// Package controller is a small HTTP client for the cluster controller API.
package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/leapstack-labs/deployhook/pkg/core"
)

// maxErrorBody caps how much of a failed response body is kept in StatusError.
const maxErrorBody = 4 << 10

// Client talks to the controller using its key as the basic auth password.
type Client struct {
	baseURL    *url.URL
	key        string
	httpClient *http.Client
	logger     *slog.Logger
}

// Config configures a Client.
type Config struct {
	URL        string
	Key        string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// StatusError is returned for non-2xx controller responses.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("controller: %s %s: unexpected status %d", e.Method, e.Path, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// New creates a controller client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("controller url is required")
	}
	u, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid controller url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid controller url %q: scheme and host are required", cfg.URL)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Client{baseURL: u, key: cfg.Key, httpClient: hc, logger: logger}, nil
}

// AppList returns every app known to the controller.
func (c *Client) AppList(ctx context.Context) ([]core.App, error) {
	var apps []core.App
	if err := c.do(ctx, http.MethodGet, "/apps", nil, &apps); err != nil {
		return nil, err
	}
	if apps == nil {
		apps = []core.App{}
	}
	return apps, nil
}

// GetAppRelease returns the current release of an app.
func (c *Client) GetAppRelease(ctx context.Context, app string) (*core.Release, error) {
	var release core.Release
	if err := c.do(ctx, http.MethodGet, "/apps/"+url.PathEscape(app)+"/release", nil, &release); err != nil {
		return nil, err
	}
	return &release, nil
}

// RunJob starts a one-off job for app.
func (c *Client) RunJob(ctx context.Context, app string, job *core.NewJob) (*core.Job, error) {
	var created core.Job
	if err := c.do(ctx, http.MethodPost, "/apps/"+url.PathEscape(app)+"/jobs", job, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// GetJob returns the current state of a job started for app.
func (c *Client) GetJob(ctx context.Context, app, id string) (*core.Job, error) {
	var job core.Job
	if err := c.do(ctx, http.MethodGet, "/apps/"+url.PathEscape(app)+"/jobs/"+url.PathEscape(id), nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("controller: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return fmt.Errorf("controller: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.key != "" {
		req.SetBasicAuth("", c.key)
	}

	c.logger.Debug("controller request", slog.String("method", method), slog.String("path", path))

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("controller: %s %s: %w", method, path, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: res.StatusCode,
			Body:       strings.TrimSpace(string(msg)),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("controller: decode %s %s: %w", method, path, err)
	}
	return nil
}
