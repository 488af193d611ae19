// Package apierr defines the error taxonomy shared by services and handlers.
// Services return *Error values; handlers map Kind to an HTTP status and the
// reason code onto the response body.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind buckets an error into one of the taxonomy classes.
type Kind int

const (
	KindBadRequest Kind = iota
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindInternal
)

// Machine reason codes surfaced alongside the HTTP status. 4031 is the
// generic authorizer denial; 4033 is the explicit patient-to-patient rule.
const (
	CodeForbidden        = 4031
	CodePatientToPatient = 4033
	CodeStatusGated      = 4034
	CodeTargetNotFound   = 4041
	CodeConversationGone = 4042
	CodeDuplicatePair    = 4090
)

// Error is a typed service error carrying a taxonomy kind, an optional
// machine code, and a caller-facing message.
type Error struct {
	Kind    Kind
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the kind to its response status.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func BadRequest(msg string) *Error { return &Error{Kind: KindBadRequest, Message: msg} }

func Unauthorized(msg string) *Error { return &Error{Kind: KindUnauthorized, Message: msg} }

func Forbidden(code int, msg string) *Error {
	return &Error{Kind: KindForbidden, Code: code, Message: msg}
}

func NotFound(code int, msg string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: msg}
}

func Conflict(code int, msg string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: msg}
}

// Internal wraps a store or infrastructure failure. The wrapped cause is
// logged, never surfaced to the caller.
func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// From extracts a typed *Error, or wraps unknown errors as Internal so
// handlers always have a status to map.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal("internal error", err)
}
