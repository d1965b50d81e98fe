// Package tcc — error taxonomy. Grounded on the same pattern txova-go-db
// uses for postgres.Error and redis.Error: a package-specific Code type
// mapped onto apperrors.Code, embedded in an Error that forwards
// errors.Is/As to the embedded AppError so callers can use either the
// fine-grained tcc.Code or the coarse apperrors.Code to classify a
// failure.
package tcc

import (
	"errors"
	"fmt"

	"github.com/Dorico-Dynamics/txova-tcc/internal/apperrors"
)

// Code is a coordinator-specific error code.
type Code string

const (
	// CodeTransactionTimeout: the Try-phase timer expired before all
	// participants responded. Not retryable; terminates that transaction's
	// Try phase.
	CodeTransactionTimeout Code = "TCC_TRANSACTION_TIMEOUT"
	// CodeParticipantExecution: a participant's Try/Confirm/Cancel call
	// failed. Retryability depends on the underlying cause.
	CodeParticipantExecution Code = "TCC_PARTICIPANT_EXECUTION"
	// CodeTransactionNotFound: the store has no record of the given
	// transaction ID. Not retryable.
	CodeTransactionNotFound Code = "TCC_TRANSACTION_NOT_FOUND"
	// CodeDuplicateParticipant: Register was called twice with the same
	// participant ID. Not retryable.
	CodeDuplicateParticipant Code = "TCC_DUPLICATE_PARTICIPANT"
	// CodeInvalidParticipant: Register was called with an invalid
	// participant (e.g. empty ID).
	CodeInvalidParticipant Code = "TCC_INVALID_PARTICIPANT"
	// CodeNoParticipantsRegistered: StartTransaction was called with an
	// empty participant registry. Not retryable.
	CodeNoParticipantsRegistered Code = "TCC_NO_PARTICIPANTS_REGISTERED"
	// CodeStorageError: a transient storage failure. Retryable.
	CodeStorageError Code = "TCC_STORAGE_ERROR"
	// CodeLockAcquisitionError: the distributed lock could not be
	// acquired within the requested window. Retryable by the Monitor only
	// (a skipped tick is not an error condition for the caller).
	CodeLockAcquisitionError Code = "TCC_LOCK_ACQUISITION_ERROR"
	// CodeInvalidTransactionState: an attempted mutation of a terminal
	// transaction, or conflicting TXSubmit values for the same ID.
	CodeInvalidTransactionState Code = "TCC_INVALID_TRANSACTION_STATE"
)

var coreCodeMapping = map[Code]apperrors.Code{
	CodeTransactionTimeout:       apperrors.CodeServiceUnavailable,
	CodeParticipantExecution:     apperrors.CodeInternalError,
	CodeTransactionNotFound:      apperrors.CodeNotFound,
	CodeDuplicateParticipant:     apperrors.CodeConflict,
	CodeInvalidParticipant:       apperrors.CodeValidationError,
	CodeNoParticipantsRegistered: apperrors.CodeValidationError,
	CodeStorageError:             apperrors.CodeServiceUnavailable,
	CodeLockAcquisitionError:     apperrors.CodeServiceUnavailable,
	CodeInvalidTransactionState:  apperrors.CodeConflict,
}

// CoreCode returns the corresponding apperrors.Code for this tcc.Code.
func (c Code) CoreCode() apperrors.Code {
	if core, ok := coreCodeMapping[c]; ok {
		return core
	}
	return apperrors.CodeInternalError
}

// Error is the coordinator's error type. It embeds apperrors.AppError so
// that apperrors.IsNotFound and friends work uniformly across tcc,
// store/postgres, and lock/redislock errors.
type Error struct {
	*apperrors.AppError
	code         Code
	retryable    bool
	retryableSet bool
}

// New creates a new Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{AppError: apperrors.New(code.CoreCode(), message), code: code}
}

// Newf creates a new Error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap creates a new Error wrapping an existing cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{AppError: apperrors.Wrap(code.CoreCode(), message, cause), code: code}
}

// WithRetryable marks the error as retryable or terminal and returns it.
// Used by classifiers that need to override the default retryability of a
// code (e.g. a CodeParticipantExecution wrapping a context.DeadlineExceeded
// is retryable, but one wrapping a business rejection is not).
func (e *Error) WithRetryable(retryable bool) *Error {
	newErr := *e
	newErr.retryable = retryable
	newErr.retryableSet = true
	return &newErr
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.AppError.Unwrap() != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.AppError.Message(), e.AppError.Unwrap())
	}
	return fmt.Sprintf("%s: %s", e.code, e.AppError.Message())
}

// Code returns the coordinator-specific error code.
func (e *Error) Code() Code {
	return e.code
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.AppError.Unwrap()
}

// Is reports whether target matches this error, by tcc.Code first and by
// the embedded AppError's code otherwise.
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

// Retryable reports whether this specific error instance should be
// retried by the RetryExecutor. Defaults to the code's baseline
// retryability unless overridden via WithRetryable.
func (e *Error) Retryable() bool {
	if e.retryableSet {
		return e.retryable
	}
	switch e.code {
	case CodeStorageError, CodeLockAcquisitionError:
		return true
	default:
		return false
	}
}

// IsError reports whether err is a *tcc.Error.
func IsError(err error) bool {
	var tccErr *Error
	return errors.As(err, &tccErr)
}

// AsError extracts a *tcc.Error from err, or returns nil.
func AsError(err error) *Error {
	var tccErr *Error
	if errors.As(err, &tccErr) {
		return tccErr
	}
	return nil
}

// IsCode reports whether err is a *tcc.Error with the given code.
func IsCode(err error, code Code) bool {
	if tccErr := AsError(err); tccErr != nil {
		return tccErr.Code() == code
	}
	return false
}

// IsTransactionNotFound reports whether err is CodeTransactionNotFound.
func IsTransactionNotFound(err error) bool {
	return IsCode(err, CodeTransactionNotFound)
}

// IsDuplicateParticipant reports whether err is CodeDuplicateParticipant.
func IsDuplicateParticipant(err error) bool {
	return IsCode(err, CodeDuplicateParticipant)
}

// IsRetryable reports whether err should be retried by the RetryExecutor.
// Non-tcc errors (e.g. a raw network error surfaced by a participant) are
// treated as retryable by default — only errors explicitly classified as
// terminal (tcc.Error with Retryable() == false) stop the retry loop
// early.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if tccErr := AsError(err); tccErr != nil {
		return tccErr.Retryable()
	}
	return true
}

// NotFound creates a CodeTransactionNotFound error.
func NotFound(message string) *Error {
	return New(CodeTransactionNotFound, message)
}

// NotFoundf creates a CodeTransactionNotFound error with a formatted message.
func NotFoundf(format string, args ...any) *Error {
	return Newf(CodeTransactionNotFound, format, args...)
}

// StorageError creates a retryable CodeStorageError wrapping cause.
func StorageError(message string, cause error) *Error {
	return Wrap(CodeStorageError, message, cause)
}

// LockAcquisitionError creates a retryable CodeLockAcquisitionError.
func LockAcquisitionError(message string, cause error) *Error {
	return Wrap(CodeLockAcquisitionError, message, cause)
}
