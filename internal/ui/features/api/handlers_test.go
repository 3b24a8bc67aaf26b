package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/deployhook/internal/testutil"
	"github.com/leapstack-labs/deployhook/internal/ui/features"
	"github.com/leapstack-labs/deployhook/pkg/core"
)

func setupRouter(t *testing.T, repos ...core.Repo) (chi.Router, *features.TestFixture) {
	t.Helper()

	fixture := features.SetupTestFixture(t, repos...)
	r := chi.NewRouter()
	require.NoError(t, SetupRoutes(r, fixture.Store, fixture.Controller, fixture.SessionStore, fixture.Notifier, testutil.NewTestLogger(t)))
	return r, fixture
}

func postForm(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/repos", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestListRepos(t *testing.T) {
	t.Run("empty store returns empty array", func(t *testing.T) {
		r, _ := setupRouter(t)
		rec := httptest.NewRecorder()

		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/repos.json", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.JSONEq(t, "[]", rec.Body.String())
	})

	t.Run("repos in insertion order", func(t *testing.T) {
		r, _ := setupRouter(t,
			core.Repo{Name: "lmars/blog", App: "blog"},
			core.Repo{Name: "lmars/api", Branch: "dev", App: "api"},
		)
		rec := httptest.NewRecorder()

		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/repos.json", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var got []map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.Len(t, got, 2)
		assert.Equal(t, "lmars/blog", got[0]["name"])
		assert.Equal(t, "master", got[0]["branch"])
		assert.Equal(t, "dev", got[1]["branch"])

		created, ok := got[0]["created_at"].(string)
		require.True(t, ok)
		_, err := time.Parse(time.RFC3339Nano, created)
		assert.NoError(t, err)
	})
}

func TestCreateRepo(t *testing.T) {
	tests := []struct {
		name     string
		form     url.Values
		wantCode int
		wantBody string
	}{
		{
			name:     "missing app",
			form:     url.Values{"name": {"lmars/blog"}},
			wantCode: http.StatusBadRequest,
			wantBody: "both name and app are required",
		},
		{
			name:     "blank name",
			form:     url.Values{"name": {"  "}, "app": {"blog"}},
			wantCode: http.StatusBadRequest,
			wantBody: "both name and app are required",
		},
		{
			name:     "duplicate",
			form:     url.Values{"name": {"lmars/existing"}, "app": {"other"}},
			wantCode: http.StatusConflict,
			wantBody: "repo already exists",
		},
		{
			name:     "created",
			form:     url.Values{"name": {"lmars/blog"}, "app": {"blog"}},
			wantCode: http.StatusFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, fixture := setupRouter(t, core.Repo{Name: "lmars/existing", App: "existing"})
			rec := httptest.NewRecorder()

			r.ServeHTTP(rec, postForm(tt.form))

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			}

			repos, err := fixture.Store.ListRepos(t.Context())
			require.NoError(t, err)
			if tt.wantCode == http.StatusFound {
				assert.Equal(t, "/", rec.Header().Get("Location"))
				assert.NotEmpty(t, rec.Result().Cookies(), "flash should be stored in the session")
				require.Len(t, repos, 2)
				assert.Equal(t, "lmars/blog", repos[1].Name)
				assert.Equal(t, core.DefaultBranch, repos[1].Branch)
			} else {
				assert.Len(t, repos, 1)
			}
		})
	}
}

func TestCreateRepo_Broadcasts(t *testing.T) {
	r, fixture := setupRouter(t)
	updates := fixture.Notifier.Subscribe()
	defer fixture.Notifier.Unsubscribe(updates)

	r.ServeHTTP(httptest.NewRecorder(), postForm(url.Values{"name": {"lmars/blog"}, "app": {"blog"}}))

	select {
	case <-updates:
	case <-time.After(time.Second):
		t.Fatal("expected a broadcast after creating a repo")
	}
}

func TestListApps(t *testing.T) {
	t.Run("passes apps through unfiltered", func(t *testing.T) {
		r, fixture := setupRouter(t)
		fixture.Controller.Apps = []core.App{
			{ID: "1", Name: "router", Meta: map[string]string{core.SystemAppMetaKey: "true"}},
			{ID: "2", Name: "blog"},
		}
		rec := httptest.NewRecorder()

		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/apps.json", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var got []core.App
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, fixture.Controller.Apps, got)
	})

	t.Run("nil list is empty array", func(t *testing.T) {
		r, _ := setupRouter(t)
		rec := httptest.NewRecorder()

		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/apps.json", nil))

		assert.JSONEq(t, "[]", rec.Body.String())
	})

	t.Run("controller failure", func(t *testing.T) {
		r, fixture := setupRouter(t)
		fixture.Controller.Err = errors.New("connection refused")
		rec := httptest.NewRecorder()

		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/apps.json", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "error getting apps\n", rec.Body.String())
	})
}
