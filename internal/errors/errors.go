package errors

import (
	"fmt"
	"time"
)

// ErrCode represents an error code
type ErrCode string

const (
	ErrCodeNotFound     ErrCode = "NOT_FOUND"
	ErrCodeUnauthorized ErrCode = "UNAUTHORIZED"
	ErrCodeRateLimited  ErrCode = "RATE_LIMITED"
	ErrCodeTransient    ErrCode = "TRANSIENT"
	ErrCodeExhausted    ErrCode = "RETRIES_EXHAUSTED"
)

// AppError represents an application error
type AppError struct {
	Code    ErrCode
	Message string
	Err     error

	// ResetAt is set for rate-limited errors and carries the time reported
	// by the X-RateLimit-Reset header.
	ResetAt time.Time
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeUnauthorized,
		Message: message,
	}
}

// NewRateLimitedError creates a new rate limited error with its reset time
func NewRateLimitedError(message string, resetAt time.Time) *AppError {
	return &AppError{
		Code:    ErrCodeRateLimited,
		Message: message,
		ResetAt: resetAt,
	}
}

// NewTransientError creates a new transient (retryable) error
func NewTransientError(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeTransient,
		Message: message,
		Err:     err,
	}
}

// NewExhaustedError creates an error for a call that failed every retry attempt
func NewExhaustedError(operation string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeExhausted,
		Message: fmt.Sprintf("%s failed after all retry attempts", operation),
		Err:     err,
	}
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == ErrCodeNotFound
	}
	return false
}

// IsUnauthorized checks if the error is an unauthorized error
func IsUnauthorized(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == ErrCodeUnauthorized
	}
	return false
}

// IsRateLimited checks if the error is a rate limited error
func IsRateLimited(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == ErrCodeRateLimited
	}
	return false
}

// IsRetryable reports whether the retry executor may attempt the call again.
// Not-found and unauthorized responses never change on retry.
func IsRetryable(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == ErrCodeRateLimited || appErr.Code == ErrCodeTransient
	}
	// Unclassified errors (network faults, decode failures) are retried.
	return err != nil
}
