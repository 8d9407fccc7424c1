package internal

import (
	"errors"
	"fmt"
)

var (
	// ErrQuotaExceeded is returned when a guest has used all free requests
	ErrQuotaExceeded = errors.New("guest quota exceeded")
	// ErrSubmissionInFlight is returned when a submit arrives while a reply is awaited
	ErrSubmissionInFlight = errors.New("a message is already awaiting a reply")
	// ErrUnauthorized marks a credential rejected by the remote endpoint
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotAuthenticated is returned by operations that need a credential
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrNotFound is returned by stores for missing keys
	ErrNotFound = errors.New("not found")
)

// ValidationError represents input rejected before any state change
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// StorageError represents errors accessing the local store
type StorageError struct {
	Path string
	Op   string // "open", "read", "write", "delete"
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// TransportError represents a failed call to a remote endpoint.
// Status is zero when no HTTP response was received.
type TransportError struct {
	Op      string // "chat", "login", "profile", ...
	Status  int
	Message string // error text reported by the endpoint, if any
	Err     error
}

func (e *TransportError) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("transport error [%s] status %d: %s", e.Op, e.Status, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("transport error [%s] status %d: %v", e.Op, e.Status, e.Err)
	default:
		return fmt.Sprintf("transport error [%s]: %v", e.Op, e.Err)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Network reports whether the endpoint could not be reached at all
func (e *TransportError) Network() bool {
	return e.Status == 0
}

// Malformed reports whether the endpoint answered with success but an unreadable body
func (e *TransportError) Malformed() bool {
	return e.Status >= 200 && e.Status < 300
}

// ExportError represents errors during export
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [%s] %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}
