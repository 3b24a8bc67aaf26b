// Package dashboard loads the data behind the repos dashboard.
//
// A View fetches /repos.json and /apps.json from a Source. Every failed
// request is reported once to the view's FailureFunc and returned to the
// caller as a *RequestError.
package dashboard

import (
	"context"
	"log/slog"
	"net/http"
)

// Dashboard data endpoints.
const (
	ReposPath = "/repos.json"
	AppsPath  = "/apps.json"
)

// Config configures a View.
type Config struct {
	Source Source
	Logger *slog.Logger
	// OnFailure receives every failed request. Defaults to logging.
	OnFailure FailureFunc
	// ClearOptions empties the app selector before it is repopulated.
	ClearOptions bool
	// AppSelector enables fetching apps when the add dialog opens.
	AppSelector bool
}

// View loads dashboard records.
type View struct {
	source       Source
	logger       *slog.Logger
	onFailure    FailureFunc
	clearOptions bool
	appSelector  bool
}

// New creates a View.
func New(cfg Config) *View {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	onFailure := cfg.OnFailure
	if onFailure == nil {
		onFailure = LogFailures(logger)
	}
	return &View{
		source:       cfg.Source,
		logger:       logger,
		onFailure:    onFailure,
		clearOptions: cfg.ClearOptions,
		appSelector:  cfg.AppSelector,
	}
}

// AppSelector reports whether the add dialog is populated with apps.
func (v *View) AppSelector() bool {
	return v.appSelector
}

// ClearOptions reports whether existing options are removed before apps are appended.
func (v *View) ClearOptions() bool {
	return v.clearOptions
}

// WithFailure returns a copy of the view reporting failures to fn.
func (v *View) WithFailure(fn FailureFunc) *View {
	cp := *v
	cp.onFailure = fn
	return &cp
}

// LoadRepos fetches the repo list in response order.
func (v *View) LoadRepos(ctx context.Context) ([]RepoRecord, error) {
	var repos []RepoRecord
	if err := v.get(ctx, ReposPath, &repos); err != nil {
		return nil, err
	}
	for _, r := range repos {
		if r.CreatedAtRaw != "" && !r.HasCreatedAt() {
			v.logger.Debug("unparsed repo timestamp", slog.String("repo", r.Name), slog.String("created_at", r.CreatedAtRaw))
		}
	}
	return repos, nil
}

// LoadApps fetches the apps offered in the selector, skipping system apps.
func (v *View) LoadApps(ctx context.Context) ([]AppRecord, error) {
	var apps []AppRecord
	if err := v.get(ctx, AppsPath, &apps); err != nil {
		return nil, err
	}
	return FilterSystemApps(apps), nil
}

// FilterSystemApps drops system apps, preserving order.
func FilterSystemApps(apps []AppRecord) []AppRecord {
	out := make([]AppRecord, 0, len(apps))
	for _, a := range apps {
		if a.IsSystemApp() {
			continue
		}
		out = append(out, a)
	}
	return out
}

func (v *View) get(ctx context.Context, path string, dst any) error {
	if err := v.source.GetJSON(ctx, path, dst); err != nil {
		reqErr := newRequestError(http.MethodGet, path, err)
		v.onFailure(ctx, reqErr)
		return reqErr
	}
	return nil
}
