package registration

import (
	"errors"
	"net/http"
)

// Failure kinds. Every error returned by Service.Register matches exactly one of them with errors.Is.
var (
	ErrValidation  = errors.New("validation error")
	ErrConflict    = errors.New("conflict")
	ErrUpload      = errors.New("upload error")
	ErrPersistence = errors.New("persistence error")
)

// Error is a tagged registration failure. Message is safe to show to clients; Err is the cause.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// StatusCode maps an error to the HTTP status the API answers with.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-facing message of err.
func Message(err error) string {
	var regErr *Error
	if errors.As(err, &regErr) {
		return regErr.Message
	}
	return "Something went wrong while registering user"
}

// Outcome names the result of a Register call for metrics labels.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "created"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrUpload):
		return "upload"
	default:
		return "persistence"
	}
}
