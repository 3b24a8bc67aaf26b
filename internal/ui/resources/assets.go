// Package resources serves the dashboard's static assets.
package resources

import (
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"net/http"
	"sync"
)

// StaticDirectoryPath is the path to static assets from the project root.
const StaticDirectoryPath = "internal/ui/resources/static"

// StaticPath returns the URL for a static asset. Embedded assets carry a
// content hash so they can be cached forever.
func StaticPath(name string) string {
	if v := assetVersion(name); v != "" {
		return "/static/" + name + "?v=" + v
	}
	return "/static/" + name
}

var (
	versionsMu sync.Mutex
	versions   = map[string]string{}
)

// hashAsset returns the first 12 hex digits of name's sha256 in fsys.
func hashAsset(fsys fs.FS, name string) string {
	versionsMu.Lock()
	defer versionsMu.Unlock()

	if v, ok := versions[name]; ok {
		return v
	}
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	v := hex.EncodeToString(sum[:])[:12]
	versions[name] = v
	return v
}

func fileServer(fsys fs.FS, cacheControl string) http.Handler {
	files := http.StripPrefix("/static/", http.FileServer(http.FS(fsys)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", cacheControl)
		files.ServeHTTP(w, r)
	})
}
