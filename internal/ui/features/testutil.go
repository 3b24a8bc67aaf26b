// Package features provides shared test utilities for UI feature tests.
package features

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/deployhook/internal/dashboard"
	"github.com/leapstack-labs/deployhook/internal/metrics"
	"github.com/leapstack-labs/deployhook/internal/state"
	"github.com/leapstack-labs/deployhook/internal/testutil"
	"github.com/leapstack-labs/deployhook/internal/ui/notifier"
	"github.com/leapstack-labs/deployhook/pkg/core"
)

// FakeController serves a fixed app list.
type FakeController struct {
	mu    sync.Mutex
	Apps  []core.App
	Err   error
	calls int
}

// AppList returns the configured apps or error.
func (c *FakeController) AppList(_ context.Context) ([]core.App, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.Err != nil {
		return nil, c.Err
	}
	return c.Apps, nil
}

// Calls reports how many times AppList ran.
func (c *FakeController) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// TestFixture holds all dependencies needed for UI handler tests.
type TestFixture struct {
	Store        *state.SQLStore
	Controller   *FakeController
	Notifier     *notifier.Notifier
	SessionStore *sessions.CookieStore
	Metrics      *metrics.Metrics
}

// SetupTestFixture creates an in-memory store seeded with repos.
func SetupTestFixture(t *testing.T, repos ...core.Repo) *TestFixture {
	t.Helper()

	store, err := state.Open(context.Background(), state.Config{
		Driver: state.DriverSQLite,
		DSN:    ":memory:",
		Logger: testutil.NewTestLogger(t),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close()
	})

	for i := range repos {
		require.NoError(t, store.CreateRepo(context.Background(), &repos[i]))
	}

	return &TestFixture{
		Store:        store,
		Controller:   &FakeController{},
		Notifier:     notifier.New(),
		SessionStore: NewTestSessionStore(),
		Metrics:      metrics.New(),
	}
}

// View returns a dashboard view that reads through api, an in-process handler.
func (f *TestFixture) View(t *testing.T, api http.Handler, clearOptions bool) *dashboard.View {
	t.Helper()
	return dashboard.New(dashboard.Config{
		Source:       dashboard.NewHandlerSource(api),
		Logger:       testutil.NewTestLogger(t),
		ClearOptions: clearOptions,
		AppSelector:  true,
	})
}

// NewTestSessionStore creates a session store for testing.
func NewTestSessionStore() *sessions.CookieStore {
	return sessions.NewCookieStore([]byte("test-secret-key-32-bytes-long!!"))
}
