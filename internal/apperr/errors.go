package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error by who can correct it.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindBadRequest
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindBadRequest:
		return "BadRequest"
	default:
		return "InternalError"
	}
}

// Error is a failure carrying a kind and a message meant for the caller.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Kind == KindInternal {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the status code the request layer responds with.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func BadRequest(message string) *Error {
	return &Error{Kind: KindBadRequest, Message: message}
}

// Internal wraps an unexpected failure. The message shown to callers is fixed.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "Internal Server Error", Err: err}
}

// KindOf reports the kind of err. Errors that are not *Error are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// As extracts the *Error from err, wrapping unknown errors as internal.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}
