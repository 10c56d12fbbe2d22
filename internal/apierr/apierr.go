// Package apierr defines the error taxonomy shared by the HTTP server and
// any client reading its responses, spec.md §7.
package apierr

import "net/http"

// Code is one tag in the error taxonomy.
type Code string

const (
	Unauthorized      Code = "Unauthorized"
	NotFound          Code = "NotFound"
	BadRequest        Code = "BadRequest"
	Parse             Code = "Parse"
	Storage           Code = "Storage"
	Network           Code = "Network"
	Backend           Code = "Backend"
	NotAuthenticated  Code = "NotAuthenticated"
	AlreadyInProgress Code = "AlreadyInProgress"
	Cancelled         Code = "Cancelled"
	Internal          Code = "Internal"
)

// Error is the wire shape `{error, message}` and a Go error.
type Error struct {
	Code       Code
	Message    string
	StatusHint int // used only by Code == Backend, carries the upstream status
}

func (e *Error) Error() string { return string(e.Code) + ": " + e.Message }

// New builds an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap builds a Storage/Network/Internal-style Error from a lower-level
// error, preserving its text.
func Wrap(code Code, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: err.Error()}
}

// HTTPStatus maps a Code to the HTTP status spec.md §7 pins.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case Unauthorized, NotAuthenticated:
		return http.StatusUnauthorized
	case NotFound:
		return http.StatusNotFound
	case BadRequest, Parse:
		return http.StatusBadRequest
	case Backend:
		if e.StatusHint != 0 {
			return e.StatusHint
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
