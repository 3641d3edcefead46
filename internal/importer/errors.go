package importer

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned for unknown or expired preview sessions.
	ErrSessionNotFound = errors.New("import session not found")
	// ErrRowNotFound is returned when a row index is outside the session.
	ErrRowNotFound = errors.New("import row not found")
	// ErrInvalidTransition is returned when an edit does not apply to the row's state.
	ErrInvalidTransition = errors.New("invalid row transition")
)

// UnresolvedRowsError rejects a confirm while rows still need attention.
type UnresolvedRowsError struct {
	Count int
}

func (e *UnresolvedRowsError) Error() string {
	return fmt.Sprintf("%d row(s) are not found or failed; resolve or delete them before importing", e.Count)
}

// ValidationError reports bad caller input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
