//go:build !dev

package resources

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static/*
var staticFS embed.FS

// IsDev is true in binaries built with the dev tag.
const IsDev = false

func embedded() fs.FS {
	fsys, _ := fs.Sub(staticFS, "static")
	return fsys
}

// Handler serves the embedded assets with a long-lived cache.
func Handler() http.Handler {
	return fileServer(embedded(), "public, max-age=31536000, immutable")
}

func assetVersion(name string) string {
	return hashAsset(embedded(), name)
}
