package dashboard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seenRequest struct {
	host       string
	remoteAddr string
	requestID  string
	uri        string
}

func recordingAPI(seen *seenRequest) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen = seenRequest{
			host:       r.Host,
			remoteAddr: r.RemoteAddr,
			requestID:  r.Header.Get(middleware.RequestIDHeader),
			uri:        r.RequestURI,
		}
		_, _ = w.Write([]byte("[]"))
	})
}

func TestHandlerSource_InheritsOrigin(t *testing.T) {
	var seen seenRequest
	src := NewHandlerSource(recordingAPI(&seen))

	outer := httptest.NewRequest(http.MethodGet, "http://dash.example/dashboard/repos", nil)
	outer.RemoteAddr = "10.1.2.3:5555"
	outer = outer.WithContext(context.WithValue(outer.Context(), middleware.RequestIDKey, "req-7"))

	var got []RepoRecord
	require.NoError(t, src.GetJSON(WithOrigin(outer.Context(), outer), ReposPath, &got))

	assert.Equal(t, seenRequest{
		host:       "dash.example",
		remoteAddr: "10.1.2.3:5555",
		requestID:  "req-7",
		uri:        ReposPath,
	}, seen)
}

func TestHandlerSource_WithoutOrigin(t *testing.T) {
	var seen seenRequest
	src := NewHandlerSource(recordingAPI(&seen))

	var got []RepoRecord
	require.NoError(t, src.GetJSON(context.Background(), ReposPath, &got))

	assert.Equal(t, inProcessHost, seen.host)
	assert.Equal(t, inProcessRemoteAddr, seen.remoteAddr)
	assert.Empty(t, seen.requestID)
}

func TestOriginMiddleware(t *testing.T) {
	var seen seenRequest
	src := NewHandlerSource(recordingAPI(&seen))

	page := Origin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var got []AppRecord
		require.NoError(t, src.GetJSON(r.Context(), AppsPath, &got))
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "http://dash.example/dashboard/apps", nil)
	req.RemoteAddr = "192.0.2.9:4000"
	rec := httptest.NewRecorder()
	page.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "dash.example", seen.host)
	assert.Equal(t, "192.0.2.9:4000", seen.remoteAddr)
	assert.Equal(t, AppsPath, seen.uri)
}
