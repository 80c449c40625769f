// Package errs provides the unified error type used across datrigen.
//
// Every I/O subsystem (transport, metadata sources, database, filestore,
// server) wraps its native errors into *errs.Error before returning them.
// Callers use the Is* predicates to handle errors without importing
// driver-specific packages. The same kinds travel over HTTP: the server
// renders them with HTTPStatus and the client rebuilds them with
// FromHTTPStatus / ParseKind.
//
// Usage:
//
//	// In a driver — wrap native errors:
//	return errs.Wrap(errs.ErrKindTimeout, "query timed out", pgErr)
//
//	// In a caller — check error kind:
//	if errs.IsNotFound(err) {
//	    fmt.Println("schema does not exist")
//	}
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrKind categorises an error without exposing subsystem-specific codes.
// All backends (Postgres, MySQL, MinIO, the remote API) map their native
// errors to one of these kinds, giving callers a single consistent API.
type ErrKind int

const (
	ErrKindUnknown          ErrKind = iota
	ErrKindNotFound                 // no rows, no schema, no object
	ErrKindConnectionFailed         // cannot reach the backend
	ErrKindTimeout                  // context deadline / cancellation
	ErrKindQueryFailed              // SQL, storage or remote operation error
	ErrKindInvalidInput             // bad arguments from the caller
	ErrKindPermissionDenied         // access denied / auth failure
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindNotFound:
		return "not_found"
	case ErrKindConnectionFailed:
		return "connection_failed"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindQueryFailed:
		return "query_failed"
	case ErrKindInvalidInput:
		return "invalid_input"
	case ErrKindPermissionDenied:
		return "permission_denied"
	default:
		return "unknown"
	}
}

// ParseKind is the inverse of ErrKind.String. Unrecognised names map to
// ErrKindUnknown.
func ParseKind(s string) ErrKind {
	switch s {
	case "not_found":
		return ErrKindNotFound
	case "connection_failed":
		return ErrKindConnectionFailed
	case "timeout":
		return ErrKindTimeout
	case "query_failed":
		return ErrKindQueryFailed
	case "invalid_input":
		return ErrKindInvalidInput
	case "permission_denied":
		return ErrKindPermissionDenied
	default:
		return ErrKindUnknown
	}
}

// Error is the single error type returned by all datrigen I/O subsystems.
// Drivers produce it; callers inspect it via the Is* predicates below.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error // original driver-level error, preserved for logging
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// --- Predicates ---

// IsNotFound reports whether err represents a "not found" result
// (no rows, unknown schema or table, missing object, …).
func IsNotFound(err error) bool {
	return KindOf(err) == ErrKindNotFound
}

// IsTimeout reports whether err was caused by a deadline or context cancellation.
func IsTimeout(err error) bool {
	return KindOf(err) == ErrKindTimeout
}

// IsConnectionFailed reports whether err is a connectivity failure.
func IsConnectionFailed(err error) bool {
	return KindOf(err) == ErrKindConnectionFailed
}

// IsQueryFailed reports whether err is a backend operation failure
// (SQL execution error, storage I/O error, remote 5xx, …).
func IsQueryFailed(err error) bool {
	return KindOf(err) == ErrKindQueryFailed
}

// IsInvalidInput reports whether err was caused by bad input from the caller.
func IsInvalidInput(err error) bool {
	return KindOf(err) == ErrKindInvalidInput
}

// IsPermissionDenied reports whether err is an access control failure.
func IsPermissionDenied(err error) bool {
	return KindOf(err) == ErrKindPermissionDenied
}

// KindOf extracts the ErrKind from any error in the chain.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}

// --- HTTP mapping ---

// HTTPStatus returns the status code a server should answer with for err.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case ErrKindNotFound:
		return http.StatusNotFound
	case ErrKindInvalidInput:
		return http.StatusBadRequest
	case ErrKindPermissionDenied:
		return http.StatusForbidden
	case ErrKindTimeout:
		return http.StatusGatewayTimeout
	case ErrKindConnectionFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// FromHTTPStatus maps a non-2xx response status to an ErrKind.
func FromHTTPStatus(code int) ErrKind {
	switch {
	case code == http.StatusNotFound:
		return ErrKindNotFound
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return ErrKindPermissionDenied
	case code == http.StatusRequestTimeout, code == http.StatusGatewayTimeout:
		return ErrKindTimeout
	case code == http.StatusServiceUnavailable, code == http.StatusBadGateway:
		return ErrKindConnectionFailed
	case code >= 400 && code < 500:
		return ErrKindInvalidInput
	case code >= 500:
		return ErrKindQueryFailed
	default:
		return ErrKindUnknown
	}
}

// Body is the JSON envelope an error travels in over HTTP.
type Body struct {
	Error BodyError `json:"error"`
}

// BodyError is the payload of Body.
type BodyError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ToBody renders err for a response. Only the message of an *Error is
// exposed; causes stay server side.
func ToBody(err error) Body {
	var e *Error
	if errors.As(err, &e) {
		return Body{Error: BodyError{Kind: e.Kind.String(), Message: e.Message}}
	}
	return Body{Error: BodyError{Kind: ErrKindUnknown.String(), Message: "internal error"}}
}

// FromBody rebuilds the error a response carried. An unknown or missing
// kind falls back to FromHTTPStatus(status), a missing message to the
// status text.
func FromBody(status int, b Body, cause error) *Error {
	kind := ParseKind(b.Error.Kind)
	if kind == ErrKindUnknown {
		kind = FromHTTPStatus(status)
	}
	msg := b.Error.Message
	if msg == "" {
		msg = http.StatusText(status)
	}
	if msg == "" {
		msg = fmt.Sprintf("unexpected status %d", status)
	}
	return Wrap(kind, msg, cause)
}
