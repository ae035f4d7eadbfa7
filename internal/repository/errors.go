package repository

import (
	"errors"
	"fmt"
)

// Common repository errors
var (
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrBackendRejected    = errors.New("backend rejected the request")
	ErrDataSourceNotFound = errors.New("data source not found")

	// ErrMalformedPayload marks an accepted answer whose body has none of
	// the expected shapes.
	ErrMalformedPayload = errors.New("malformed backend payload")
)

// BackendError describes a failed backend call. Kind is one of
// ErrBackendUnavailable or ErrBackendRejected and is matched with errors.Is.
type BackendError struct {
	Kind     error
	Endpoint string
	Status   int
	Message  string
	Cause    error
}

func (e *BackendError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Endpoint, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *BackendError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// ServerMessage is the message the backend gave, or the error text when it
// gave none.
func (e *BackendError) ServerMessage() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return e.Kind.Error()
}
