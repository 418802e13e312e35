// Package apierror centralizes the canonical error-kind vocabulary raised by
// the core components and the HTTP status each kind maps to at the edge.
package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a canonical error identifier shared across components. Components
// never return raw database or transport errors to callers; they wrap them
// into one of these kinds so the HTTP layer (out of scope here) can apply a
// single mapping table.
type Kind string

const (
	InvalidAccessToken     Kind = "invalidAccessToken"
	Forbidden              Kind = "forbidden"
	UnknownResource        Kind = "unknownResource"
	ItemAlreadyExists      Kind = "itemAlreadyExists"
	InvalidOperation       Kind = "invalidOperation"
	InvalidItemID          Kind = "invalidItemId"
	InvalidParametersFormat Kind = "invalidParametersFormat"
	InvalidInvitationToken Kind = "invalidInvitationToken"
	CorruptedData          Kind = "corruptedData"
	UnexpectedError        Kind = "unexpectedError"
)

// httpStatus is the canonical kind -> HTTP status mapping.
var httpStatus = map[Kind]int{
	InvalidAccessToken:      http.StatusUnauthorized,
	Forbidden:               http.StatusForbidden,
	UnknownResource:         http.StatusNotFound,
	ItemAlreadyExists:       http.StatusConflict,
	InvalidOperation:        http.StatusBadRequest,
	InvalidItemID:           http.StatusBadRequest,
	InvalidParametersFormat: http.StatusBadRequest,
	InvalidInvitationToken:  http.StatusBadRequest,
	CorruptedData:           http.StatusBadRequest,
	UnexpectedError:         http.StatusInternalServerError,
}

// Error is the error type every component boundary wraps its failures into.
type Error struct {
	ErrKind Kind
	Message string
	Data    map[string]any
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.ErrKind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.ErrKind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Status returns the HTTP status the kind maps to. Unknown kinds map to 500.
func (e *Error) Status() int {
	if s, ok := httpStatus[e.ErrKind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// New builds an Error of the given kind with no underlying cause.
func New(kind Kind, message string) *Error {
	return &Error{ErrKind: kind, Message: message}
}

// Wrap builds an Error of the given kind around an underlying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{ErrKind: kind, Message: message, Cause: cause}
}

// WithData attaches structured data (e.g. the sanitised colliding fields of
// an itemAlreadyExists error) and returns the same *Error for chaining.
func (e *Error) WithData(data map[string]any) *Error {
	e.Data = data
	return e
}

// Unexpected is a convenience constructor for the catch-all 500 kind, used
// whenever a component can't classify a lower-level failure (e.g. a 5xx from
// the service-register, or a transport error).
func Unexpected(message string, cause error) *Error {
	return Wrap(UnexpectedError, message, cause)
}

// Is reports whether err is (or wraps) an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.ErrKind == kind
	}
	return false
}

// KindOf extracts the Kind of err, defaulting to UnexpectedError when err
// isn't an *Error (or doesn't wrap one).
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.ErrKind
	}
	return UnexpectedError
}
