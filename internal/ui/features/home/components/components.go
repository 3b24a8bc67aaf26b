// Package components holds the dashboard's templ components.
//
// The *_templ.go files are generated from the .templ sources.
package components

//go:generate templ generate

import (
	"fmt"
	"time"
)

// datastarScript is the client bundle driving data-* attributes.
const datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.6/bundles/datastar.js"

// Element ids patched by the dashboard streams.
const (
	AlertID     = "alert"
	AppSelectID = "repo-app"
	ReposBodyID = "repos"
)

// Dashboard SSE endpoints referenced from the page.
const (
	ReposStreamPath   = "/dashboard/repos"
	AppsStreamPath    = "/dashboard/apps"
	UpdatesStreamPath = "/dashboard/updates"
)

// PageData is everything the dashboard page needs at first render.
type PageData struct {
	Title       string
	IsDev       bool
	Flash       string
	FlashError  bool
	AppSelector bool
}

// TimeAgo formats t relative to now.
func TimeAgo(now, t time.Time) string {
	diff := now.Sub(t)

	if diff < time.Minute {
		return "just now"
	}
	if diff < time.Hour {
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	}
	if diff < 24*time.Hour {
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	}
	return t.Format("Jan 2, 2006 15:04")
}
