// Package apperror provides the error types shared by the storefront's
// controllers and handlers. Every error carries an HTTP-ish status code, a
// machine-readable type, and a message that is safe to show to the user.
//
// NEVER show raw transport errors or upstream response bodies to the user.
// Wrap them in an apperror type and keep the cause in Internal for logging.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error type identifiers.
const (
	TypeNotFound           = "not_found"
	TypeBadRequest         = "bad_request"
	TypeUnauthorized       = "unauthorized"
	TypeInvalidCredentials = "invalid_credentials"
	TypeValidation         = "validation_error"
	TypeConnection         = "connection_error"
	TypeInternal           = "internal_error"
)

// AppError is the base error type for all domain errors.
type AppError struct {
	// Code is the HTTP status code (e.g., 404, 400, 500). For errors that
	// came back from the remote API this is the upstream status.
	Code int `json:"-"`

	// Type is a machine-readable error classifier (e.g., "not_found").
	Type string `json:"type"`

	// Message is a human-readable description safe for the user.
	Message string `json:"message"`

	// Fields holds per-field validation messages keyed by form field name
	// (username, password, passwordCheck). Nil for non-validation errors.
	Fields map[string]string `json:"fields,omitempty"`

	// Internal holds the underlying error for logging. Never shown to the user.
	Internal error `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Type, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *AppError) Unwrap() error {
	return e.Internal
}

// HasField reports whether the error carries a message for the given field.
func (e *AppError) HasField(name string) bool {
	_, ok := e.Fields[name]
	return ok
}

// --- Constructors for common error types ---

// NewNotFound creates a 404 Not Found error.
func NewNotFound(message string) *AppError {
	return &AppError{
		Code:    http.StatusNotFound,
		Type:    TypeNotFound,
		Message: message,
	}
}

// NewBadRequest creates a 400 Bad Request error.
func NewBadRequest(message string) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Type:    TypeBadRequest,
		Message: message,
	}
}

// NewUnauthorized creates a 401 Unauthorized error.
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:    http.StatusUnauthorized,
		Type:    TypeUnauthorized,
		Message: message,
	}
}

// NewInvalidCredentials is returned when the remote API rejects a sign-in
// with a 4xx status. The upstream status is kept in Code.
func NewInvalidCredentials(code int, internal error) *AppError {
	return &AppError{
		Code:     code,
		Type:     TypeInvalidCredentials,
		Message:  "Invalid credentials.",
		Internal: internal,
	}
}

// NewValidation creates a validation failure carrying per-field messages.
// code is the upstream status; 422 is used when it is unknown.
func NewValidation(code int, message string, fields map[string]string) *AppError {
	if code == 0 {
		code = http.StatusUnprocessableEntity
	}
	return &AppError{
		Code:    code,
		Type:    TypeValidation,
		Message: message,
		Fields:  fields,
	}
}

// NewConnection wraps a transport failure, timeout or upstream 5xx. The user
// only ever sees the generic message.
func NewConnection(err error) *AppError {
	return &AppError{
		Code:     http.StatusBadGateway,
		Type:     TypeConnection,
		Message:  "Connection error. Please try again later.",
		Internal: err,
	}
}

// NewInternal creates a 500 Internal Server Error. The real error is stored
// in Internal for logging but the user only sees a generic message.
func NewInternal(err error) *AppError {
	return &AppError{
		Code:     http.StatusInternalServerError,
		Type:     TypeInternal,
		Message:  "An unexpected error occurred. Please try again.",
		Internal: err,
	}
}

// As extracts an *AppError from err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType reports whether err is an AppError of the given type.
func IsType(err error, typ string) bool {
	appErr, ok := As(err)
	return ok && appErr.Type == typ
}

// SafeMessage returns the user-safe error message from an error. Any error
// that is not an AppError gets a generic message.
func SafeMessage(err error) string {
	if appErr, ok := As(err); ok {
		return appErr.Message
	}
	return "an unexpected error occurred"
}

// SafeCode returns the status code from an AppError, or 500 for any other
// error type.
func SafeCode(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return http.StatusInternalServerError
}
