package router

import (
	"bytes"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/deployhook/internal/testutil"
	"github.com/leapstack-labs/deployhook/internal/ui/features"
	"github.com/leapstack-labs/deployhook/pkg/core"
)

func testDeps(t *testing.T) Deps {
	t.Helper()
	f := features.SetupTestFixture(t, core.Repo{Name: "lmars/blog", App: "blog"})
	f.Controller.Apps = []core.App{{ID: "2", Name: "blog"}}

	return Deps{
		Store:        f.Store,
		Apps:         f.Controller,
		SessionStore: f.SessionStore,
		Notifier:     f.Notifier,
		Metrics:      f.Metrics,
		Logger:       testutil.NewTestLogger(t),
		AppSelector:  true,
		ClearOptions: true,
	}
}

// newRouter mirrors the server's middleware stack with the request log
// captured in logs.
func newRouter(t *testing.T, deps Deps, logs *bytes.Buffer) http.Handler {
	t.Helper()
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: log.New(logs, "", 0), NoColor: true}),
	)
	require.NoError(t, SetupRoutes(r, deps))
	return r
}

func TestSetupRoutes(t *testing.T) {
	deps := testDeps(t)
	deps.Webhook = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	h := newRouter(t, deps, &bytes.Buffer{})

	tests := []struct {
		method string
		path   string
		status int
		body   string
	}{
		{method: http.MethodGet, path: "/", status: http.StatusOK, body: "<!doctype html>"},
		{method: http.MethodGet, path: "/repos.json", status: http.StatusOK, body: "lmars/blog"},
		{method: http.MethodGet, path: "/apps.json", status: http.StatusOK, body: "blog"},
		{method: http.MethodGet, path: "/dashboard/repos", status: http.StatusOK, body: `<tr id="repo-`},
		{method: http.MethodGet, path: "/dashboard/apps", status: http.StatusOK, body: `<option value="blog">blog</option>`},
		{method: http.MethodGet, path: "/metrics", status: http.StatusOK, body: "go_goroutines"},
		{method: http.MethodPost, path: "/", status: http.StatusAccepted},
		{method: http.MethodGet, path: "/reload", status: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, tt.status, rec.Code)
			if tt.body != "" {
				assert.Contains(t, rec.Body.String(), tt.body)
			}
		})
	}
}

func TestSetupRoutes_NoWebhook(t *testing.T) {
	h := newRouter(t, testDeps(t), &bytes.Buffer{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSetupRoutes_InProcessReadsLogOrigin(t *testing.T) {
	var logs bytes.Buffer
	h := newRouter(t, testDeps(t), &logs)

	req := httptest.NewRequest(http.MethodGet, "http://dash.example/dashboard/repos", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	out := logs.String()
	assert.Contains(t, out, `"GET http://dash.example/repos.json HTTP/1.1" from 10.1.2.3:5555`)
	assert.Contains(t, out, `"GET http://dash.example/dashboard/repos HTTP/1.1" from 10.1.2.3:5555`)
	assert.NotContains(t, out, "http:///")

	// the inner read and the page request share one request id
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	inner, _, _ := strings.Cut(lines[0], " ")
	outer, _, _ := strings.Cut(lines[1], " ")
	assert.Equal(t, outer, inner)
	assert.True(t, strings.HasPrefix(inner, "["), lines[0])
}

func TestSetupRoutes_RemoteAPI(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos.json" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`[{"id":9,"name":"remote/site","branch":"main","app":"site"}]`))
	}))
	t.Cleanup(remote.Close)

	deps := testDeps(t)
	deps.APIURL = remote.URL
	h := newRouter(t, deps, &bytes.Buffer{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard/repos", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "remote/site")
	assert.NotContains(t, rec.Body.String(), "lmars/blog")
}

func TestSetupRoutes_InvalidAPIURL(t *testing.T) {
	deps := testDeps(t)
	deps.APIURL = "ftp://example.com"

	err := SetupRoutes(chi.NewMux(), deps)
	assert.ErrorContains(t, err, "invalid api url")
}
