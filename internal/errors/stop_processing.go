package errors

import "errors"

// StopProcessingError is returned when the user ends an interactive run early.
// Work committed before the stop is kept; nothing after it runs.
type StopProcessingError struct {
	Reason string
}

func (e *StopProcessingError) Error() string {
	if e.Reason == "" {
		return "processing stopped"
	}
	return e.Reason
}

func NewStopProcessingError(reason string) *StopProcessingError {
	return &StopProcessingError{Reason: reason}
}

// IsStopProcessingError reports whether err, or anything it wraps, is a StopProcessingError.
func IsStopProcessingError(err error) bool {
	var stop *StopProcessingError
	return errors.As(err, &stop)
}
