package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// Defaults for in-process reads that have no originating request.
const (
	inProcessHost       = "localhost"
	inProcessRemoteAddr = "in-process"
)

// maxErrorBody bounds how much of a failed response body is kept.
const maxErrorBody = 512

// Source fetches JSON documents by path.
type Source interface {
	GetJSON(ctx context.Context, path string, v any) error
}

// StatusError is returned by sources for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// HTTPSource fetches from a remote deployhook over HTTP.
type HTTPSource struct {
	base   *url.URL
	client *http.Client
}

// NewHTTPSource returns a source rooted at baseURL. A nil client uses
// http.DefaultClient.
func NewHTTPSource(baseURL string, client *http.Client) (*HTTPSource, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid api url %q: scheme must be http or https", baseURL)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSource{base: u, client: client}, nil
}

// GetJSON issues a GET for path and decodes the response into v.
func (s *HTTPSource) GetJSON(ctx context.Context, path string, v any) error {
	target := s.base.JoinPath(path).String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	res, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()

	return decodeResponse(res.StatusCode, res.Body, v)
}

type originKey struct{}

// origin is the part of a browser request that in-process reads inherit.
type origin struct {
	host       string
	remoteAddr string
	requestID  string
}

// WithOrigin records r as the request dashboard reads on ctx are made for.
func WithOrigin(ctx context.Context, r *http.Request) context.Context {
	return context.WithValue(ctx, originKey{}, origin{
		host:       r.Host,
		remoteAddr: r.RemoteAddr,
		requestID:  middleware.GetReqID(r.Context()),
	})
}

// Origin is middleware applying WithOrigin to each request.
func Origin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithOrigin(r.Context(), r)))
	})
}

// HandlerSource serves requests from an in-process handler.
type HandlerSource struct {
	handler http.Handler
}

// NewHandlerSource returns a source that dispatches to h.
func NewHandlerSource(h http.Handler) *HandlerSource {
	return &HandlerSource{handler: h}
}

// GetJSON runs a GET for path through the handler and decodes the captured
// body. The request takes its host, remote address and request ID from the
// origin recorded on ctx.
func (s *HandlerSource) GetJSON(ctx context.Context, path string, v any) error {
	// Route state stored in the caller's context must not reach the handler,
	// so the request gets a fresh context that only shares cancellation.
	reqCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	req.RequestURI = path
	req.Header.Set("Accept", "application/json")

	req.Host, req.RemoteAddr = inProcessHost, inProcessRemoteAddr
	if o, ok := ctx.Value(originKey{}).(origin); ok {
		req.Host, req.RemoteAddr = o.host, o.remoteAddr
		if o.requestID != "" {
			req.Header.Set(middleware.RequestIDHeader, o.requestID)
		}
	}

	buf := newResponseBuffer()
	s.handler.ServeHTTP(buf, req)
	return decodeResponse(buf.statusCode, &buf.body, v)
}

func decodeResponse(status int, body io.Reader, v any) error {
	if status < 200 || status > 299 {
		b, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
		return &StatusError{StatusCode: status, Body: strings.TrimSpace(string(b))}
	}
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// responseBuffer captures a handler's response.
type responseBuffer struct {
	header      http.Header
	statusCode  int
	body        bytes.Buffer
	headerWrote bool
}

func newResponseBuffer() *responseBuffer {
	return &responseBuffer{
		header:     make(http.Header),
		statusCode: http.StatusOK,
	}
}

func (w *responseBuffer) Header() http.Header {
	return w.header
}

func (w *responseBuffer) WriteHeader(status int) {
	if w.headerWrote {
		return
	}
	w.headerWrote = true
	w.statusCode = status
}

func (w *responseBuffer) Write(b []byte) (int, error) {
	w.headerWrote = true
	return w.body.Write(b)
}
