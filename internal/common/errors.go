package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")

	// ErrValidation marks a bad blueprint or input shape, rejected before any stage runs.
	ErrValidation = errors.New("validation failed")
	// ErrNoUsableContent marks a submission where no file yielded extractable text.
	ErrNoUsableContent = errors.New("no usable content")
	// ErrCoverage marks a generation stage that could not produce a result for every spec.
	ErrCoverage = errors.New("incomplete question coverage")
	// ErrCompileExhausted marks a document whose repair attempts ran out without a clean compile.
	ErrCompileExhausted = errors.New("compile attempts exhausted")
	// ErrCancelled marks a cooperative cancellation observed at a checkpoint.
	ErrCancelled = errors.New("job cancelled")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// ValidationError builds an AppError carrying ErrValidation.
func ValidationError(message string) *AppError {
	return NewAppError("VALIDATION", message, ErrValidation)
}

func ValidationErrorf(format string, args ...interface{}) *AppError {
	return ValidationError(fmt.Sprintf(format, args...))
}
