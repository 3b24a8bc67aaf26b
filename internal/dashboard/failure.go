package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// RequestError describes a failed dashboard data request.
type RequestError struct {
	Method string
	// URL is the path as it was requested, e.g. /repos.json.
	URL string
	// StatusCode is zero for transport failures.
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Method, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Message is the user-facing alert text.
func (e *RequestError) Message() string {
	return e.Method + " " + e.URL + " Error!"
}

// FailureFunc receives every failed request of a view.
type FailureFunc func(ctx context.Context, err *RequestError)

func newRequestError(method, url string, err error) *RequestError {
	re := &RequestError{Method: method, URL: url, Err: err}
	var se *StatusError
	if errors.As(err, &se) {
		re.StatusCode = se.StatusCode
	}
	return re
}

// LogFailures returns a FailureFunc that only logs.
func LogFailures(logger *slog.Logger) FailureFunc {
	return func(ctx context.Context, err *RequestError) {
		logger.WarnContext(ctx, "dashboard request failed",
			slog.String("method", err.Method),
			slog.String("url", err.URL),
			slog.Int("status", err.StatusCode),
			slog.String("error", err.Err.Error()))
	}
}
