package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the different kinds of failure the archiver distinguishes
type ErrorType string

const (
	// ErrorTypeNetwork covers HTTP and navigation failures
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeSession covers a broken or unusable browser session
	ErrorTypeSession ErrorType = "session"
	// ErrorTypeExtraction covers markup that could not be read
	ErrorTypeExtraction ErrorType = "extraction"
	// ErrorTypeResource covers filesystem problems such as output directories
	ErrorTypeResource ErrorType = "resource"
	// ErrorTypeProxy covers malformed or missing proxies
	ErrorTypeProxy ErrorType = "proxy"
	// ErrorTypeConfig covers invalid user input
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeFatal aborts the run
	ErrorTypeFatal ErrorType = "fatal"
)

// ErrNoProxies is returned when a proxy is requested from an empty pool
var ErrNoProxies = &Error{Type: ErrorTypeProxy, Message: "no proxies available"}

// Error is a typed error carrying an optional status code and cause
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Cause   error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error: %s", e.Type, e.Message)
	if e.Code != 0 {
		msg = fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a typed error
func New(t ErrorType, message string) *Error {
	return &Error{Type: t, Message: message}
}

// Wrap creates a typed error around cause
func Wrap(t ErrorType, message string, cause error) *Error {
	return &Error{Type: t, Message: message, Cause: cause}
}

// TypeOf returns the ErrorType of err, or "" when err carries none
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ""
}

// Is reports whether err carries the given type
func Is(err error, t ErrorType) bool {
	return TypeOf(err) == t
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeSession:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0, 408, 429:
		return true
	case 401, 403, 404, 410:
		return false
	default:
		return statusCode >= 500
	}
}
