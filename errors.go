package svclaunch

import (
	"errors"
	"fmt"
)

// Common errors returned by launcher operations
var (
	// ErrServicesRoot indicates the services root is missing or not a directory
	ErrServicesRoot = errors.New("svclaunch: services root unavailable")

	// ErrUnknownAccount indicates a run-as account could not be resolved
	ErrUnknownAccount = errors.New("svclaunch: unknown account")

	// ErrNotPrivileged indicates the launcher cannot switch to the run-as account
	ErrNotPrivileged = errors.New("svclaunch: insufficient privilege to change user")

	// ErrInvalidName indicates a service name that cannot be used as a directory
	ErrInvalidName = errors.New("svclaunch: invalid service name")
)

// OpError represents an error from a launcher operation
type OpError struct {
	// Op is the operation that failed
	Op Operation
	// Path is the file path involved in the operation
	Path string
	// Err is the underlying error
	Err error
}

// Error returns a formatted error message
func (e *OpError) Error() string {
	return fmt.Sprintf("svclaunch %s %q: %v", e.Op.String(), e.Path, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *OpError) Unwrap() error {
	return e.Err
}

// MultiError aggregates per-service errors from a launcher run
type MultiError struct {
	// Errors contains all accumulated errors
	Errors []error
}

// Error returns a summary of the accumulated errors
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors occurred", len(m.Errors))
}

// Add appends an error to the collection if it's not nil
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// Unwrap exposes the accumulated errors to errors.Is and errors.As
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Err returns nil if no errors occurred, otherwise returns the MultiError itself
func (m *MultiError) Err() error {
	if len(m.Errors) == 0 {
		return nil
	}
	return m
}
