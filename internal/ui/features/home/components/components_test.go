package components

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/deployhook/internal/dashboard"
	"github.com/leapstack-labs/deployhook/pkg/core"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func TestRepoRow(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	html := render(t, RepoRow(dashboard.RepoRecord{
		ID:        "1",
		Name:      "lmars/<script>",
		Branch:    "master",
		App:       "blog",
		CreatedAt: created,
	}))

	assert.Contains(t, html, `<tr id="repo-1">`)
	assert.Contains(t, html, "lmars/&lt;script&gt;")
	assert.Contains(t, html, `datetime="2024-01-01T00:00:00Z"`)
	assert.Contains(t, html, "Jan 1, 2024 00:00")
}

func TestRepoRow_UnparsedTimestamp(t *testing.T) {
	html := render(t, RepoRow(dashboard.RepoRecord{Name: "a", CreatedAtRaw: "yesterday"}))

	assert.Contains(t, html, "<tr><td>a</td>")
	assert.Contains(t, html, "<td>yesterday</td>")
	assert.NotContains(t, html, "<time")
}

func TestAlert(t *testing.T) {
	hidden := render(t, Alert(""))
	assert.Contains(t, hidden, `id="alert"`)
	assert.Contains(t, hidden, `class="alert alert-error hide"`)
	assert.Contains(t, hidden, "<p></p>")

	shown := render(t, Alert("GET /repos.json Error!"))
	assert.Contains(t, shown, `class="alert alert-error"`)
	assert.Contains(t, shown, "<p>GET /repos.json Error!</p>")
}

func TestAppOption(t *testing.T) {
	html := render(t, AppOption(dashboard.AppRecord{App: core.App{ID: "2", Name: "blog"}}))
	assert.Equal(t, `<option value="blog">blog</option>`, html)

	html = render(t, AppOption(dashboard.AppRecord{App: core.App{ID: "2"}}))
	assert.Equal(t, `<option value="2">2</option>`, html)
}

func TestPage(t *testing.T) {
	html := render(t, Page(PageData{Title: "Dashboard", AppSelector: true, Flash: "added lmars/blog"}))

	for _, want := range []string{
		"<!doctype html>",
		"<title>Dashboard - deployhook</title>",
		`id="add-btn"`,
		`id="add-modal" class="modal hide"`,
		`<select id="repo-app"`,
		`<tbody id="repos" data-init="@get('/dashboard/repos')">`,
		"/dashboard/updates",
		`id="alert"`,
		"added lmars/blog",
		`class="flash flash-success"`,
		`href="/static/dashboard.css`,
	} {
		assert.Contains(t, html, want)
	}
	assert.NotContains(t, html, "/reload")

	for _, path := range []string{ReposStreamPath, AppsStreamPath, UpdatesStreamPath} {
		assert.Contains(t, html, "@get('"+path+"'")
	}
}

func TestFlash(t *testing.T) {
	assert.Empty(t, render(t, Flash("", false)))
	assert.Equal(t, `<div id="flash" class="flash flash-error">boom</div>`, render(t, Flash("boom", true)))
}

func TestReposBody(t *testing.T) {
	html := render(t, ReposBody([]dashboard.RepoRecord{
		{ID: "1", Name: "lmars/blog"},
		{ID: "2", Name: "lmars/site"},
	}))

	assert.True(t, strings.HasPrefix(html, `<tbody id="repos">`))
	assert.NotContains(t, html, "data-init")
	assert.Contains(t, html, `<tr id="repo-1">`)
	assert.Contains(t, html, `<tr id="repo-2">`)
	assert.True(t, strings.HasSuffix(html, "</tbody>"))
}

func TestPage_WithoutSelector(t *testing.T) {
	html := render(t, Page(PageData{Title: "Dashboard", IsDev: true}))

	assert.Contains(t, html, `<input id="repo-app"`)
	assert.NotContains(t, html, "<select")
	assert.Contains(t, html, "/reload")
	assert.NotContains(t, html, `id="flash"`)
}

func TestTimeAgo(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{30 * time.Second, "just now"},
		{time.Minute, "1 minute ago"},
		{5 * time.Minute, "5 minutes ago"},
		{time.Hour, "1 hour ago"},
		{3 * time.Hour, "3 hours ago"},
		{48 * time.Hour, "May 30, 2024 12:00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TimeAgo(now, now.Add(-tt.ago)))
	}
}
