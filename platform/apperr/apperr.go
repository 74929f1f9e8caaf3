// Package apperr defines the typed errors services return. The HTTP layer
// maps each Kind to a status code, so services never deal with HTTP.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the category of an error.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindValidation
	KindConflict
	KindForbidden
	KindUnauthorized
	KindBadRequest
	KindInternal
	// KindUnprocessable is a well-formed request the current state cannot
	// satisfy, e.g. an assignment with no active agent.
	KindUnprocessable
)

// Error is a domain error with a Kind for HTTP mapping.
type Error struct {
	Kind    Kind
	Message string
	Op      string
	Err     error
	Details any
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the status code for the error kind.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindBadRequest:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindUnprocessable:
		return http.StatusUnprocessableEntity
	case KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithOp sets the failing operation name.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// WithDetails attaches response details.
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

func NotFound(message string) *Error      { return New(KindNotFound, message) }
func Validation(message string) *Error    { return New(KindValidation, message) }
func Conflict(message string) *Error      { return New(KindConflict, message) }
func Forbidden(message string) *Error     { return New(KindForbidden, message) }
func Unauthorized(message string) *Error  { return New(KindUnauthorized, message) }
func BadRequest(message string) *Error    { return New(KindBadRequest, message) }
func Internal(message string) *Error      { return New(KindInternal, message) }
func Unprocessable(message string) *Error { return New(KindUnprocessable, message) }

// GetKind extracts the Kind from anywhere in err's chain.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}
