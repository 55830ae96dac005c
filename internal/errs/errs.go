// Package errs holds the error taxonomy shared by the server, the transport
// client and the conversation engine.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks input rejected locally. It never reaches the network.
	ErrValidation = errors.New("validation failed")
	// ErrNetwork marks a transport failure or an unexpected backend response.
	ErrNetwork = errors.New("network error")
	// ErrNotFound marks an unknown chatbot, action, share token or key.
	ErrNotFound = errors.New("not found")
	// ErrForbidden marks a resource that exists but may not be used, such as an
	// inactive chatbot behind a share token.
	ErrForbidden = errors.New("forbidden")
	// ErrBusy is returned when a send is attempted while another is in flight.
	ErrBusy = errors.New("busy")
	// ErrStale is returned when a session was torn down underneath a call.
	ErrStale = errors.New("stale session")
	// ErrNotConfirmed is returned when a destructive call lacks confirmation.
	ErrNotConfirmed = errors.New("not confirmed")
	// ErrProvider marks a failure of the upstream LLM provider.
	ErrProvider = errors.New("llm provider error")
)

// ValidationError names the offending field. It matches ErrValidation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid builds a ValidationError.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// StatusError carries an HTTP status and message from the backend.
type StatusError struct {
	Status  int
	Message string
	kind    error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend responded %d: %s", e.Status, e.Message)
}

func (e *StatusError) Unwrap() error { return e.kind }

// FromStatus classifies a non-2xx HTTP status into the taxonomy.
func FromStatus(status int, message string) error {
	var kind error
	switch {
	case status == 404:
		kind = ErrNotFound
	case status == 403:
		kind = ErrForbidden
	case status == 400 || status == 422:
		kind = ErrValidation
	default:
		kind = ErrNetwork
	}
	return &StatusError{Status: status, Message: message, kind: kind}
}
