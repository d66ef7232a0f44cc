package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a Binder error code.
type ErrorCode string

const (
	ErrInvalidRequest     ErrorCode = "INVALID_REQUEST"     // 400
	ErrNotFound           ErrorCode = "NOT_FOUND"           // 404
	ErrSuperseded         ErrorCode = "SUPERSEDED"          // 409
	ErrCorruptStore       ErrorCode = "CORRUPT_STORE"       // 500 (logged, never shown)
	ErrInternal           ErrorCode = "INTERNAL"            // 500
	ErrServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE" // 503
)

// BinderError represents a structured error with code, status, and details.
type BinderError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *BinderError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *BinderError {
	return &BinderError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a query the card service has no match for.
func NewNotFound(query string) *BinderError {
	return &BinderError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("card not found: %s", query),
		Details: map[string]any{"query": query},
	}
}

// NewServiceUnavailable creates a 503 error for transport failures and
// non-success responses from the card service.
func NewServiceUnavailable(query string, cause error) *BinderError {
	details := map[string]any{"query": query}
	if cause != nil {
		details["cause"] = cause.Error()
	}
	return &BinderError{
		Code:    ErrServiceUnavailable,
		Status:  503,
		Message: "card service unavailable",
		Details: details,
	}
}

// NewSuperseded creates a 409 error for a search whose result arrived after
// a newer action replaced it. The result was discarded.
func NewSuperseded(query string) *BinderError {
	return &BinderError{
		Code:    ErrSuperseded,
		Status:  409,
		Message: fmt.Sprintf("search for %q was superseded by a newer action", query),
		Details: map[string]any{"query": query},
	}
}

// NewCorruptStore creates an error describing unreadable persisted content.
// Callers log it and recover with an empty collection.
func NewCorruptStore(key string, cause error) *BinderError {
	msg := "stored collection is unreadable"
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return &BinderError{
		Code:    ErrCorruptStore,
		Status:  500,
		Message: msg,
		Details: map[string]any{"key": key},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *BinderError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &BinderError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is (or wraps) a BinderError with the given code.
func Is(err error, code ErrorCode) bool {
	var bErr *BinderError
	if stderrors.As(err, &bErr) {
		return bErr.Code == code
	}
	return false
}

// IsSearchMiss reports whether err means a search produced no usable result.
// Both "no such card" and "service unreachable" count.
func IsSearchMiss(err error) bool {
	return Is(err, ErrNotFound) || Is(err, ErrServiceUnavailable)
}
