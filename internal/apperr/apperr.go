package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Type classifies an error for the caller.
type Type string

const (
	TypeValidation    Type = "validation"
	TypeAuthorization Type = "authorization"
	TypeNotFound      Type = "not_found"
	TypeConflict      Type = "conflict"
	TypeInternal      Type = "internal"
	TypeExternal      Type = "external"
)

// Error is a typed application error. Sentinels are declared as *Error values
// and matched with errors.Is; wrapping with %w keeps the type visible to As.
type Error struct {
	Type     Type
	Message  string
	Internal error
}

func (e *Error) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Internal.Error())
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Internal
}

func (e *Error) StatusCode() int {
	switch e.Type {
	case TypeValidation:
		return http.StatusBadRequest
	case TypeAuthorization:
		return http.StatusForbidden
	case TypeNotFound:
		return http.StatusNotFound
	case TypeConflict:
		return http.StatusConflict
	case TypeExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func Validation(message string) *Error {
	return &Error{Type: TypeValidation, Message: message}
}

func Authorization(message string) *Error {
	return &Error{Type: TypeAuthorization, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Type: TypeNotFound, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Type: TypeConflict, Message: message}
}

func Internal(message string, internal error) *Error {
	return &Error{Type: TypeInternal, Message: message, Internal: internal}
}

func External(message string, internal error) *Error {
	return &Error{Type: TypeExternal, Message: message, Internal: internal}
}

// From returns the first typed error in err's chain, or an internal error
// wrapping err when none is present.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	return Internal("internal error", err)
}

// Is reports whether err carries the given type anywhere in its chain.
func Is(err error, kind Type) bool {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Type == kind
	}
	return false
}
