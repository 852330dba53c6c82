package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType classifies an application error.
type ErrorType string

const (
	// ErrorTypeNotFound indicates a resource was not found
	ErrorTypeNotFound ErrorType = "NOT_FOUND"
	// ErrorTypeBadRequest indicates malformed or incomplete input
	ErrorTypeBadRequest ErrorType = "BAD_REQUEST"
	// ErrorTypeConflict indicates a conflict
	ErrorTypeConflict ErrorType = "CONFLICT"
	// ErrorTypeUnauthorized indicates the remote source rejected our credentials
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	// ErrorTypeUnavailable indicates a remote source could not be reached
	ErrorTypeUnavailable ErrorType = "UNAVAILABLE"
	// ErrorTypeInternal indicates an internal error
	ErrorTypeInternal ErrorType = "INTERNAL"
)

// AppError carries a type alongside the message and cause.
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new application error
func New(errorType ErrorType, message string) error {
	return &AppError{Type: errorType, Message: message}
}

// Wrap wraps err with a type and message. A nil err yields nil.
func Wrap(errorType ErrorType, message string, err error) error {
	if err == nil {
		return nil
	}
	return &AppError{Type: errorType, Message: message, Err: err}
}

func NotFound(message string) error     { return New(ErrorTypeNotFound, message) }
func BadRequest(message string) error   { return New(ErrorTypeBadRequest, message) }
func Conflict(message string) error     { return New(ErrorTypeConflict, message) }
func Unauthorized(message string) error { return New(ErrorTypeUnauthorized, message) }
func Unavailable(message string) error  { return New(ErrorTypeUnavailable, message) }
func Internal(message string) error     { return New(ErrorTypeInternal, message) }

// TypeOf returns the type of the outermost AppError in err's chain, or ""
// when there is none.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

func IsNotFound(err error) bool     { return TypeOf(err) == ErrorTypeNotFound }
func IsBadRequest(err error) bool   { return TypeOf(err) == ErrorTypeBadRequest }
func IsConflict(err error) bool     { return TypeOf(err) == ErrorTypeConflict }
func IsUnauthorized(err error) bool { return TypeOf(err) == ErrorTypeUnauthorized }
func IsUnavailable(err error) bool  { return TypeOf(err) == ErrorTypeUnavailable }
func IsInternal(err error) bool     { return TypeOf(err) == ErrorTypeInternal }

// IsDuplicateError reports whether err is a unique-constraint violation from
// postgres or sqlite.
func IsDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "duplicate key") ||
		strings.Contains(errStr, "UNIQUE constraint") ||
		strings.Contains(errStr, "duplicate entry")
}

// FromHTTPStatus maps a remote API status code onto an error type.
func FromHTTPStatus(code int, message string) error {
	switch {
	case code == 401 || code == 403:
		return Unauthorized(message)
	case code == 404:
		return NotFound(message)
	case code == 400 || code == 422:
		return BadRequest(message)
	case code >= 500 || code == 429:
		return Unavailable(message)
	default:
		return Internal(message)
	}
}
