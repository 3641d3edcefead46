package errors

import (
	stdErrors "errors"
	"fmt"
)

// UpstreamError represents a non-success answer from an external catalog.
type UpstreamError struct {
	Source     string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s: unexpected status %d: %s", e.Source, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: unexpected status %d", e.Source, e.StatusCode)
}

// NewUpstreamError creates an UpstreamError for the given source and status.
func NewUpstreamError(source string, statusCode int, body string) *UpstreamError {
	return &UpstreamError{Source: source, StatusCode: statusCode, Body: body}
}

// IsUpstreamError checks if err is an UpstreamError
func IsUpstreamError(err error) bool {
	var upErr *UpstreamError
	return stdErrors.As(err, &upErr)
}

// AsUpstreamError unwraps err into an UpstreamError when possible.
func AsUpstreamError(err error) (*UpstreamError, bool) {
	var upErr *UpstreamError
	if stdErrors.As(err, &upErr) {
		return upErr, true
	}
	return nil, false
}
