package ui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/deployhook/internal/controller"
	"github.com/leapstack-labs/deployhook/internal/metrics"
	"github.com/leapstack-labs/deployhook/internal/state"
	"github.com/leapstack-labs/deployhook/internal/testutil"
	"github.com/leapstack-labs/deployhook/internal/webhook"
	"github.com/leapstack-labs/deployhook/pkg/core"
)

const testSecret = "s3cret"

type controllerStub struct {
	mu   sync.Mutex
	jobs []core.NewJob
}

func (c *controllerStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/apps":
		_, _ = w.Write([]byte(`[
			{"id":"1","name":"router","meta":{"flynn-system-app":"true"}},
			{"id":"2","name":"blog"}
		]`))
	case r.Method == http.MethodGet && r.URL.Path == "/apps/taffy/release":
		_, _ = w.Write([]byte(`{"id":"release-1"}`))
	case r.Method == http.MethodPost && r.URL.Path == "/apps/taffy/jobs":
		var job core.NewJob
		_ = json.NewDecoder(r.Body).Decode(&job)
		c.mu.Lock()
		c.jobs = append(c.jobs, job)
		c.mu.Unlock()
		_, _ = w.Write([]byte(`{"id":"job-1","state":"starting"}`))
	case r.Method == http.MethodGet && r.URL.Path == "/apps/taffy/jobs/job-1":
		_, _ = w.Write([]byte(`{"id":"job-1","state":"down","exit_status":0}`))
	default:
		http.NotFound(w, r)
	}
}

func setupServer(t *testing.T) (*Server, http.Handler, *controllerStub) {
	t.Helper()
	logger := testutil.NewTestLogger(t)

	store, err := state.Open(context.Background(), state.Config{Driver: state.DriverSQLite, DSN: ":memory:", Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	stub := &controllerStub{}
	ctrlSrv := httptest.NewServer(stub)
	t.Cleanup(ctrlSrv.Close)

	client, err := controller.New(controller.Config{URL: ctrlSrv.URL, Key: "key", Logger: logger})
	require.NoError(t, err)

	srv := NewServer(Config{
		Store:         store,
		Controller:    client,
		SecretToken:   testSecret,
		SessionSecret: "test-secret-key-32-bytes-long!!",
		Deploy:        DeployConfig{Workers: 1, QueueSize: 4, PollInterval: time.Millisecond},
		Logger:        logger,
		Metrics:       metrics.New(),
		AppSelector:   true,
		ClearOptions:  true,
	})
	handler, err := srv.Handler()
	require.NoError(t, err)
	return srv, handler, stub
}

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_RepoFlow(t *testing.T) {
	_, h, _ := setupServer(t)

	rec := do(h, httptest.NewRequest(http.MethodGet, "/repos.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	form := url.Values{"name": {"lmars/blog"}, "app": {"blog"}}
	req := httptest.NewRequest(http.MethodPost, "/repos", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = do(h, req)
	require.Equal(t, http.StatusFound, rec.Code)

	page := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		page.AddCookie(c)
	}
	rec = do(h, page)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Added lmars/blog")

	rec = do(h, httptest.NewRequest(http.MethodGet, "/dashboard/repos", nil))
	assert.Contains(t, rec.Body.String(), "lmars/blog")
}

func TestServer_DashboardApps(t *testing.T) {
	_, h, _ := setupServer(t)

	rec := do(h, httptest.NewRequest(http.MethodGet, "/apps.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "router", "the JSON API does not filter")

	rec = do(h, httptest.NewRequest(http.MethodGet, "/dashboard/apps", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `"modalOpen":true`)
	assert.Contains(t, body, `<option value="blog">`)
	assert.NotContains(t, body, `<option value="router">`)
}

func TestServer_WebhookDeploys(t *testing.T) {
	srv, h, stub := setupServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = srv.deployer.Run(ctx) }()

	require.NoError(t, srv.store.CreateRepo(ctx, &core.Repo{Name: "lmars/blog", App: "blog"}))

	payload := `{"ref":"refs/heads/master","head_commit":{"id":"abc"},"repository":{"full_name":"lmars/blog","clone_url":"https://github.com/lmars/blog.git"}}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
	req.Header.Set("X-Github-Event", webhook.EventPush)
	req.Header.Set("X-Hub-Signature", webhook.Sign([]byte(testSecret), []byte(payload)))

	rec := do(h, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool {
		stub.mu.Lock()
		defer stub.mu.Unlock()
		return len(stub.jobs) == 1
	}, 2*time.Second, 10*time.Millisecond)

	stub.mu.Lock()
	job := stub.jobs[0]
	stub.mu.Unlock()
	assert.Equal(t, "release-1", job.ReleaseID)
	assert.Equal(t, []string{"/bin/taffy", "blog", "https://github.com/lmars/blog.git", "master", "abc"}, job.Args)

	rec = do(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `deployhook_webhook_events_total{event="push"} 1`)

	require.Eventually(t, func() bool {
		rec := do(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		return strings.Contains(rec.Body.String(), `deployhook_deploys_total{result="succeeded"} 1`)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServer_ServeStopsOnCancel(t *testing.T) {
	srv, _, _ := setupServer(t)
	srv.port = 0

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(6 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
