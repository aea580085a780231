package apperr

import (
	"errors"
	"net/http"
)

// Error codes returned in API responses.
const (
	CodeInvalidRequest        = "INVALID_REQUEST"
	CodeNotFound              = "NOT_FOUND"
	CodeCartNotFound          = "CART_NOT_FOUND"
	CodeInsufficientInventory = "INSUFFICIENT_INVENTORY"
	CodeEmptyCart             = "EMPTY_CART"
	CodeConflict              = "CONFLICT"
	CodeInternalError         = "INTERNAL_ERROR"
)

// Error carries a machine-readable code alongside a client-safe message.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Code + ": " + e.Message }

// New builds an Error with the given code and message.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// HTTPStatus maps an error code to its response status.
func HTTPStatus(code string) int {
	switch code {
	case CodeInvalidRequest, CodeInsufficientInventory, CodeEmptyCart:
		return http.StatusBadRequest
	case CodeNotFound, CodeCartNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Resolve extracts an *Error from err, or wraps unexpected failures as a
// generic INTERNAL_ERROR so internal details never leak to clients.
func Resolve(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return &Error{Code: CodeInternalError, Message: "internal error"}
}
