// Package errors provides the coded error taxonomy shared by the catalog, query and sync
// layers. Errors match with errors.Is by code, so a NotFoundf from the store satisfies
// errors.Is(err, ErrNotFound) however it was wrapped on the way up. The API layer maps
// codes to HTTP status.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Is and As forward to the standard library so callers need one import.
var (
	Is = errors.Is
	As = errors.As
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeValidation    Code = "VALIDATION"
	CodeSyncTransport Code = "SYNC_TRANSPORT"
	CodeConsistency   Code = "CONSISTENCY"
	CodeInternal      Code = "INTERNAL"
)

var statusByCode = map[Code]int{
	CodeNotFound:      http.StatusNotFound,
	CodeConflict:      http.StatusConflict,
	CodeValidation:    http.StatusBadRequest,
	CodeSyncTransport: http.StatusBadGateway,
}

// HTTPStatus maps a code to its response status. Consistency and internal failures are
// both 500.
func (c Code) HTTPStatus() int {
	if status, ok := statusByCode[c]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
	// final marks a transport failure the remote will repeat, such as a 4xx.
	final bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a copy of the error carrying details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: details, cause: e.cause, final: e.final}
}

// WithCause returns a copy of the error wrapping err.
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: e.Details, cause: err, final: e.final}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound      = &Error{Code: CodeNotFound, Message: "not found"}
	ErrConflict      = &Error{Code: CodeConflict, Message: "conflict"}
	ErrValidation    = &Error{Code: CodeValidation, Message: "validation error"}
	ErrSyncTransport = &Error{Code: CodeSyncTransport, Message: "sync transport error"}
	ErrConsistency   = &Error{Code: CodeConsistency, Message: "consistency error"}
)

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf is NotFound with a formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflict creates a conflict error.
func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg}
}

// Conflictf creates a conflict error with formatted message.
func Conflictf(format string, args ...any) *Error {
	return &Error{Code: CodeConflict, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// SyncTransportf wraps a remote fetch failure. These are retryable.
func SyncTransportf(err error, format string, args ...any) *Error {
	return &Error{Code: CodeSyncTransport, Message: fmt.Sprintf(format, args...), cause: err}
}

// Consistencyf reports broken referential state that must not be repaired silently.
func Consistencyf(format string, args ...any) *Error {
	return &Error{Code: CodeConsistency, Message: fmt.Sprintf(format, args...)}
}

// SyncRejectedf reports a remote answer that a retry would only repeat: a client error
// status or a body that does not decode. It matches ErrSyncTransport but is not retryable.
func SyncRejectedf(err error, format string, args ...any) *Error {
	return &Error{Code: CodeSyncTransport, Message: fmt.Sprintf(format, args...), cause: err, final: true}
}

// IsRetryable reports whether retrying the failed operation can succeed.
func IsRetryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == CodeSyncTransport && !e.final
}

// CodeOf returns the code of the outermost domain error in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
