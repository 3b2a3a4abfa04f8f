// Package apperrors defines the failure kinds shared by the repository,
// service and HTTP layers and maps arbitrary errors onto them.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for HTTP translation.
type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindNotFound
	KindUnauthorized
	KindForbidden
	KindInvalidIdentifier
)

// String returns the kind name used in logs.
func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindInvalidIdentifier:
		return "invalid_identifier"
	default:
		return "internal"
	}
}

// Name is the client-facing error name written in the response body.
// A malformed identifier is reported as a plain Forbidden.
func (k Kind) Name() string {
	switch k {
	case KindBadRequest:
		return "BadRequest"
	case KindNotFound:
		return "NotFound"
	case KindUnauthorized:
		return "Unauthorized"
	case KindForbidden, KindInvalidIdentifier:
		return "Forbidden"
	default:
		return "InternalError"
	}
}

// StatusCode is the HTTP status for the kind.
func (k Kind) StatusCode() int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden, KindInvalidIdentifier:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Error is a typed failure carrying a client-safe message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(k Kind, msg string) *Error { return &Error{Kind: k, Message: msg} }

func BadRequest(msg string) *Error   { return newError(KindBadRequest, msg) }
func NotFound(msg string) *Error     { return newError(KindNotFound, msg) }
func Unauthorized(msg string) *Error { return newError(KindUnauthorized, msg) }
func Forbidden(msg string) *Error    { return newError(KindForbidden, msg) }

// InvalidIdentifier reports an identifier that failed local format validation.
func InvalidIdentifier(msg string) *Error { return newError(KindInvalidIdentifier, msg) }

// Internal wraps an unexpected error. The wrapped error is never shown to clients.
func Internal(err error) *Error { return &Error{Kind: KindInternal, Message: "Something went wrong!", Err: err} }

// Wrap attaches a cause to a typed failure.
func Wrap(k Kind, msg string, err error) *Error { return &Error{Kind: k, Message: msg, Err: err} }

// CastError is returned by the store layer when a filter value cannot be
// converted to the stored identifier type.
type CastError struct {
	Field string
	Value any
}

func (e *CastError) Error() string {
	return fmt.Sprintf("cast to ObjectId failed for value %v at path %q", e.Value, e.Field)
}

// As returns the typed failure in err's chain, if any.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// IsKind reports whether err carries a typed failure of kind k.
func IsKind(err error, k Kind) bool {
	ae, ok := As(err)
	return ok && ae.Kind == k
}
