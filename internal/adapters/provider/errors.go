package provider

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel error kinds for this package.
var (
	ErrFetch  = errors.New("history fetch failed")
	ErrDecode = errors.New("history decode failed")
)

// StatusError reports a non-200 upstream response.
type StatusError struct {
	StatusCode int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}
