package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrNotFound     ErrorType = "NOT_FOUND"
	ErrRateLimit    ErrorType = "RATE_LIMIT"
	ErrUpstream     ErrorType = "UPSTREAM"
	ErrInvalidInput ErrorType = "INVALID_INPUT"
	ErrInternal     ErrorType = "INTERNAL"
)

// AppError represents an application error
type AppError struct {
	Type      ErrorType
	Message   string
	Cause     error
	Timestamp time.Time
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:      errType,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

func isType(err error, t ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return isType(err, ErrNotFound)
}

// IsRateLimit checks if the error is a rate limit error
func IsRateLimit(err error) bool {
	return isType(err, ErrRateLimit)
}

// IsInvalidInput checks if the error is an invalid input error
func IsInvalidInput(err error) bool {
	return isType(err, ErrInvalidInput)
}

// IsUpstream checks if the error came from an external provider
func IsUpstream(err error) bool {
	return isType(err, ErrUpstream)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, err error) *AppError {
	return New(ErrNotFound, message, err)
}

// NewValidationError creates a new validation error
func NewValidationError(message string, err error) *AppError {
	return New(ErrInvalidInput, message, err)
}

// NewRateLimitError creates a new rate limit error
func NewRateLimitError(message string, err error) *AppError {
	return New(ErrRateLimit, message, err)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return New(ErrInternal, message, err)
}

// NewUpstreamError creates a new upstream provider error
func NewUpstreamError(message string, err error) *AppError {
	return New(ErrUpstream, message, err)
}

// ProviderUnreachableError means a whole-batch precondition failed: the
// trending provider could not be reached at coordination time. Surfaced to
// the HTTP layer as 503.
type ProviderUnreachableError struct {
	Provider string
	Cause    error
}

func (e *ProviderUnreachableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("provider %s unreachable: %v", e.Provider, e.Cause)
	}
	return fmt.Sprintf("provider %s unreachable", e.Provider)
}

func (e *ProviderUnreachableError) Unwrap() error {
	return e.Cause
}

// NewProviderUnreachableError creates a new ProviderUnreachableError
func NewProviderUnreachableError(provider string, cause error) error {
	return &ProviderUnreachableError{Provider: provider, Cause: cause}
}

// IsProviderUnreachable checks if the error is a ProviderUnreachableError
func IsProviderUnreachable(err error) bool {
	var target *ProviderUnreachableError
	return errors.As(err, &target)
}
