package bridge

import (
	"fmt"
	"net/http"
)

// APIError is the error type surfaced by every bridge operation. Name and
// Code drive the uniform {error, code, name} JSON error body.
type APIError struct {
	// Name identifies the error kind, e.g. "OperationNotFound".
	Name string
	// Code is the HTTP status the error maps to.
	Code int

	msg string
	err error
}

func (e *APIError) Error() string { return e.msg }
func (e *APIError) Unwrap() error { return e.err }

// ErrFileNotFound is returned by getfile for unknown file ids.
var ErrFileNotFound = &APIError{
	Name: "FileNotFound",
	Code: http.StatusBadRequest,
	msg:  "File not found",
}

// ErrInvalidCount rejects zero-count address index bumps.
var ErrInvalidCount = &APIError{
	Name: "InvalidCount",
	Code: http.StatusBadRequest,
	msg:  "Invalid count: must be greater than 0",
}

// ErrOperationNotFound is returned when an operation idx does not exist.
var ErrOperationNotFound = &APIError{
	Name: "OperationNotFound",
	Code: http.StatusBadRequest,
	msg:  "Operation not found",
}

// ErrCannotMarkOperationProcessed rejects an invalid mark-processed attempt.
func ErrCannotMarkOperationProcessed(reason string) *APIError {
	return &APIError{
		Name: "CannotMarkOperationProcessed",
		Code: http.StatusForbidden,
		msg:  fmt.Sprintf("Cannot mark operation as processed: %s", reason),
	}
}

// ErrCannotPostNewOperation rejects a post violating the posting rules.
func ErrCannotPostNewOperation(reason string) *APIError {
	return &APIError{
		Name: "CannotPostNewOperation",
		Code: http.StatusForbidden,
		msg:  fmt.Sprintf("Cannot post new operation: %s", reason),
	}
}

// ErrCannotRespondToOperation rejects a response violating the response
// rules.
func ErrCannotRespondToOperation(reason string) *APIError {
	return &APIError{
		Name: "CannotRespondToOperation",
		Code: http.StatusForbidden,
		msg:  fmt.Sprintf("Cannot respond to operation: %s", reason),
	}
}

// ErrInvalidOperationType rejects unknown operation type bytes.
func ErrInvalidOperationType(value uint8) *APIError {
	return &APIError{
		Name: "InvalidOperationType",
		Code: http.StatusBadRequest,
		msg:  fmt.Sprintf("Invalid operation type: %d", value),
	}
}

// ErrInvalidRequest rejects malformed request bodies.
func ErrInvalidRequest(reason string) *APIError {
	return &APIError{
		Name: "InvalidRequest",
		Code: http.StatusBadRequest,
		msg:  fmt.Sprintf("Invalid request: %s", reason),
	}
}

// ErrDatabase wraps a persistence failure.
func ErrDatabase(err error) *APIError {
	return &APIError{
		Name: "Database",
		Code: http.StatusInternalServerError,
		msg:  fmt.Sprintf("Database error: %v", err),
		err:  err,
	}
}

// ErrIO wraps a filesystem failure.
func ErrIO(err error) *APIError {
	return &APIError{
		Name: "IO",
		Code: http.StatusInternalServerError,
		msg:  fmt.Sprintf("IO error: %v", err),
		err:  err,
	}
}

// ErrUnexpected reports an internal invariant violation.
func ErrUnexpected(reason string) *APIError {
	return &APIError{
		Name: "Unexpected",
		Code: http.StatusInternalServerError,
		msg:  fmt.Sprintf("Unexpected error: %s", reason),
	}
}
