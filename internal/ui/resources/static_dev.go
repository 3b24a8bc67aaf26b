//go:build dev

package resources

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
)

// IsDev is true in binaries built with the dev tag.
const IsDev = true

// staticDir locates static/ next to this source file so edits show up
// without rebuilding, wherever the binary runs from.
func staticDir() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return StaticDirectoryPath
	}
	return filepath.Join(filepath.Dir(filename), "static")
}

// Handler serves assets from disk and asks the browser to revalidate.
func Handler() http.Handler {
	dir := staticDir()
	slog.Info("static assets served from filesystem", "path", dir)
	return fileServer(os.DirFS(dir), "no-cache")
}

// Assets change on disk, so dev URLs are never versioned.
func assetVersion(string) string { return "" }
