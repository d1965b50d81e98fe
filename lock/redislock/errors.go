package redislock

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/Dorico-Dynamics/txova-tcc/internal/apperrors"
)

// Code is a redislock-specific error code.
type Code string

const (
	CodeLockFailed  Code = "REDISLOCK_FAILED"
	CodeLockNotHeld Code = "REDISLOCK_NOT_HELD"
	CodeConnection  Code = "REDISLOCK_CONNECTION"
	CodeTimeout     Code = "REDISLOCK_TIMEOUT"
	CodeInternal    Code = "REDISLOCK_INTERNAL"
)

var coreCodeMapping = map[Code]apperrors.Code{
	CodeLockFailed:  apperrors.CodeConflict,
	CodeLockNotHeld: apperrors.CodeConflict,
	CodeConnection:  apperrors.CodeServiceUnavailable,
	CodeTimeout:     apperrors.CodeServiceUnavailable,
	CodeInternal:    apperrors.CodeInternalError,
}

// CoreCode maps Code to apperrors.Code.
func (c Code) CoreCode() apperrors.Code {
	if core, ok := coreCodeMapping[c]; ok {
		return core
	}
	return apperrors.CodeInternalError
}

// Error is the redislock package's error type, embedding apperrors.AppError
// for unified error handling.
type Error struct {
	*apperrors.AppError
	code Code
}

// NewError creates a new Error.
func NewError(code Code, message string) *Error {
	return &Error{AppError: apperrors.New(code.CoreCode(), message), code: code}
}

// Wrap creates a new Error wrapping cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{AppError: apperrors.Wrap(code.CoreCode(), message, cause), code: code}
}

// Code returns the redislock-specific error code.
func (e *Error) Code() Code {
	return e.code
}

// Is implements errors.Is comparison by code.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.code == other.code
	}
	return e.AppError.Is(target)
}

// As allows extraction of the embedded AppError via errors.As.
func (e *Error) As(target any) bool {
	if appErrPtr, ok := target.(**apperrors.AppError); ok {
		*appErrPtr = e.AppError
		return true
	}
	return false
}

// FromRedisError converts a go-redis error into a redislock.Error.
func FromRedisError(err error) *Error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.Nil) {
		return NewError(CodeInternal, "key not found")
	}
	if errors.Is(err, redis.ErrClosed) {
		return Wrap(CodeConnection, "connection closed", err)
	}
	return Wrap(CodeConnection, "redis operation failed", err)
}

// LockFailed creates a CodeLockFailed error.
func LockFailed(message string) *Error {
	return NewError(CodeLockFailed, message)
}

// LockNotHeld creates a CodeLockNotHeld error.
func LockNotHeld(message string) *Error {
	return NewError(CodeLockNotHeld, message)
}

// IsLockFailed reports whether err is a CodeLockFailed Error.
func IsLockFailed(err error) bool {
	var lockErr *Error
	if errors.As(err, &lockErr) {
		return lockErr.code == CodeLockFailed
	}
	return false
}
