package relay

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError is a non-2xx relay response. Status code and body are kept
// verbatim for diagnostics.
type HTTPError struct {
	Op         string // "register-vk", "submit-proof", "job-status"
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("relay %s: HTTP %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("relay %s: HTTP %d: %s", e.Op, e.StatusCode, e.Body)
}

// Retryable reports whether the failure is transient service
// unavailability.
func (e *HTTPError) Retryable() bool {
	return e.StatusCode == http.StatusServiceUnavailable
}

// IsRetryable returns true if err is or wraps a retryable HTTPError.
func IsRetryable(err error) bool {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Retryable()
	}
	return false
}

// StatusCode extracts the HTTP status from err, or 0 if err is not an
// HTTPError.
func StatusCode(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode
	}
	return 0
}

// ShapeError reports a 2xx response whose body matches none of the known
// response shapes.
type ShapeError struct {
	Op   string
	Body string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("relay %s: unrecognised response shape: %s", e.Op, e.Body)
}
