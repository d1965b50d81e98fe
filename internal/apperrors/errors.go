// Package apperrors provides the unified application error type used across
// the txova-tcc coordinator. Every package-specific error type (tcc.Error,
// store/postgres.Error, lock/redislock.Error) embeds AppError so that
// errors.Is/errors.As work uniformly regardless of which layer raised them.
package apperrors

import (
	"errors"
	"fmt"
)

// Code is a coarse-grained application error code, independent of any
// particular storage or transport error taxonomy.
type Code string

const (
	CodeNotFound           Code = "NOT_FOUND"
	CodeConflict           Code = "CONFLICT"
	CodeValidationError    Code = "VALIDATION_ERROR"
	CodeServiceUnavailable Code = "SERVICE_UNAVAILABLE"
	CodeRateLimited        Code = "RATE_LIMITED"
	CodeInternalError      Code = "INTERNAL_ERROR"
)

// AppError is the base error type embedded by every domain-specific error
// in this module.
type AppError struct {
	code    Code
	message string
	cause   error
}

// New creates a new AppError with the given code and message.
func New(code Code, message string) *AppError {
	return &AppError{code: code, message: message}
}

// Wrap creates a new AppError wrapping an existing cause.
func Wrap(code Code, message string, cause error) *AppError {
	return &AppError{code: code, message: message, cause: cause}
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

// Code returns the error code.
func (e *AppError) Code() Code {
	return e.code
}

// Message returns the human-readable message, without the wrapped cause.
func (e *AppError) Message() string {
	return e.message
}

// Unwrap returns the wrapped cause, if any.
func (e *AppError) Unwrap() error {
	return e.cause
}

// Is reports whether target is an AppError with the same code.
func (e *AppError) Is(target error) bool {
	var other *AppError
	if errors.As(target, &other) {
		return e.code == other.code
	}
	return false
}

// WithMessage returns a copy of e with a different message.
func (e *AppError) WithMessage(message string) *AppError {
	newErr := *e
	newErr.message = message
	return &newErr
}

// WithCause returns a copy of e wrapping a different cause.
func (e *AppError) WithCause(cause error) *AppError {
	newErr := *e
	newErr.cause = cause
	return &newErr
}

// IsNotFound reports whether err is an AppError with CodeNotFound.
func IsNotFound(err error) bool {
	return IsCode(err, CodeNotFound)
}

// IsConflict reports whether err is an AppError with CodeConflict.
func IsConflict(err error) bool {
	return IsCode(err, CodeConflict)
}

// IsServiceUnavailable reports whether err is an AppError with CodeServiceUnavailable.
func IsServiceUnavailable(err error) bool {
	return IsCode(err, CodeServiceUnavailable)
}

// IsCode reports whether err is an AppError with the given code.
func IsCode(err error, code Code) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.code == code
	}
	return false
}
