// Package apperror defines the error taxonomy surfaced at the HTTP boundary.
package apperror

import (
	"errors"
	"net/http"
)

// Kind is a stable, machine-distinguishable error category.
type Kind string

const (
	KindValidation     Kind = "validation"     // 400
	KindConflict       Kind = "conflict"       // 409
	KindAuthentication Kind = "authentication" // 401
	KindNotFound       Kind = "not_found"      // 404
	KindDependency     Kind = "dependency"     // 500
	KindInternal       Kind = "internal"       // 500
)

// Error carries a kind, a client-safe message and optional detail lines.
// The wrapped cause is kept for logging and errors.Is, never rendered.
type Error struct {
	Kind    Kind
	Message string
	Errors  []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Status maps the kind to an HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func Validation(msg string, details ...string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Errors: details}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

func Authentication(msg string) *Error {
	return &Error{Kind: KindAuthentication, Message: msg}
}

// AuthenticationCause is Authentication with the underlying reason attached.
func AuthenticationCause(msg string, err error) *Error {
	return &Error{Kind: KindAuthentication, Message: msg, Err: err}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Dependency(msg string, err error) *Error {
	return &Error{Kind: KindDependency, Message: msg, Err: err}
}

func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// From returns err as an *Error, wrapping anything else as internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal("internal server error", err)
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
