package api

import (
	"errors"
	"fmt"

	"github.com/medshare/moderation/internal/moderation"
)

// Application error codes, below the JSON-RPC reserved range
const (
	ErrCodeUnauthenticated  = -32001
	ErrCodeForbidden        = -32003
	ErrCodeNotFound         = -32004
	ErrCodeInvalidReference = -32009
	ErrCodeTransaction      = -32010
	ErrCodeServer           = -32000
)

// Error represents an API error
type Error struct {
	Code    int
	Message string
}

// NewError creates a new API error
func NewError(code int, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Code, e.Message)
}

// ErrUnauthenticated is returned by methods that need a bearer token.
var ErrUnauthenticated = NewError(ErrCodeUnauthenticated, "authentication required")

// invalidParams builds an ErrInvalidParams error.
func invalidParams(format string, args ...interface{}) *Error {
	return NewError(ErrInvalidParams, fmt.Sprintf(format, args...))
}

// toRPCError maps handler errors to a JSON-RPC error code and message.
// Internal failures never leak their text.
func toRPCError(err error) (int, string) {
	var apiErr *Error
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Code, apiErr.Message
	case errors.Is(err, moderation.ErrForbidden):
		return ErrCodeForbidden, moderation.ErrForbidden.Error()
	case errors.Is(err, moderation.ErrNotFound):
		return ErrCodeNotFound, moderation.ErrNotFound.Error()
	case errors.Is(err, moderation.ErrInvalidReference):
		return ErrCodeInvalidReference, moderation.ErrInvalidReference.Error()
	case errors.Is(err, moderation.ErrInvalidArgument):
		return ErrInvalidParams, err.Error()
	case errors.Is(err, moderation.ErrTransaction):
		return ErrCodeTransaction, moderation.ErrTransaction.Error()
	default:
		return ErrCodeServer, "Server error"
	}
}
