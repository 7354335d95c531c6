package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an API error. The set is closed: every DAO and
// orchestrator operation returns a success value or exactly one of these.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindAuthorization  Kind = "authorization"
	KindNotFound       Kind = "not_found"
	KindToken          Kind = "token"
	KindExpiredToken   Kind = "expired_token"
	KindConflict       Kind = "conflict"
	KindInfrastructure Kind = "infrastructure"
)

// Violation carries field-level detail for validation errors so a client
// can correct its input.
type Violation struct {
	Field    string `json:"field"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: expected %s, got %s", v.Field, v.Expected, v.Actual)
}

// Error is the single error type surfaced by the persistence core.
type Error struct {
	Kind       Kind        `json:"kind"`
	Message    string      `json:"message"`
	Violations []Violation `json:"violations,omitempty"`
	err        error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.err }

// HTTPStatus maps the error kind to its HTTP equivalent.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindToken, KindExpiredToken:
		return http.StatusUnauthorized
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Public returns the message safe to surface to a client. Infrastructure
// errors must not leak store internals.
func (e *Error) Public() string {
	if e.Kind == KindInfrastructure {
		return "internal error"
	}
	return e.Message
}

func Validation(msg string, violations ...Violation) *Error {
	return &Error{Kind: KindValidation, Message: msg, Violations: violations}
}

func Authorization(msg string) *Error {
	return &Error{Kind: KindAuthorization, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Token(msg string, err error) *Error {
	return &Error{Kind: KindToken, Message: msg, err: err}
}

func ExpiredToken(msg string) *Error {
	return &Error{Kind: KindExpiredToken, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

func Infrastructure(msg string, err error) *Error {
	return &Error{Kind: KindInfrastructure, Message: msg, err: err}
}

// KindOf reports the kind of err, or an empty Kind when err is not an
// *Error from this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
