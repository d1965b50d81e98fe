// Package postgres implements store.TxStore on PostgreSQL via pgx,
// adapted from the Txova platform's postgres utility package (see
// _examples/Dorico-Dynamics-txova-go-db/postgres): the same
// SQLSTATE-to-domain-code error mapping, the same slow-query-logging pool
// wrapper, and the same WithTx retry-on-serialization-failure pattern,
// narrowed down to the handful of queries a transaction log actually
// needs.
package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Dorico-Dynamics/txova-tcc/internal/apperrors"
)

// Code is a postgres-specific error code.
type Code string

const (
	CodeNotFound      Code = "PG_NOT_FOUND"
	CodeDuplicate     Code = "PG_DUPLICATE"
	CodeConnection    Code = "PG_CONNECTION"
	CodeTimeout       Code = "PG_TIMEOUT"
	CodeSerialization Code = "PG_SERIALIZATION"
	CodeDeadlock      Code = "PG_DEADLOCK"
	CodeInvalidInput  Code = "PG_INVALID_INPUT"
	CodeInternal      Code = "PG_INTERNAL"
)

var coreCodeMapping = map[Code]apperrors.Code{
	CodeNotFound:      apperrors.CodeNotFound,
	CodeDuplicate:     apperrors.CodeConflict,
	CodeConnection:    apperrors.CodeServiceUnavailable,
	CodeTimeout:       apperrors.CodeServiceUnavailable,
	CodeSerialization: apperrors.CodeConflict,
	CodeDeadlock:      apperrors.CodeConflict,
	CodeInvalidInput:  apperrors.CodeValidationError,
	CodeInternal:      apperrors.CodeInternalError,
}

// CoreCode maps Code to apperrors.Code.
func (c Code) CoreCode() apperrors.Code {
	if core, ok := coreCodeMapping[c]; ok {
		return core
	}
	return apperrors.CodeInternalError
}

// Error is the postgres package's error type, embedding apperrors.AppError.
type Error struct {
	*apperrors.AppError
	code     Code
	sqlState string
}

// New creates a new Error.
func New(code Code, message string) *Error {
	return &Error{AppError: apperrors.New(code.CoreCode(), message), code: code}
}

// Wrap creates a new Error wrapping cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{AppError: apperrors.Wrap(code.CoreCode(), message, cause), code: code}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.AppError.Unwrap() != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.AppError.Message(), e.AppError.Unwrap())
	}
	return fmt.Sprintf("%s: %s", e.code, e.AppError.Message())
}

// Code returns the postgres-specific error code.
func (e *Error) Code() Code {
	return e.code
}

// SQLState returns the PostgreSQL SQLSTATE code, if known.
func (e *Error) SQLState() string {
	return e.sqlState
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.AppError.Unwrap()
}

// As allows extraction of the embedded AppError via errors.As.
func (e *Error) As(target any) bool {
	if appErrPtr, ok := target.(**apperrors.AppError); ok {
		*appErrPtr = e.AppError
		return true
	}
	return false
}

// Is compares errors by postgres Code first, falling back to the
// embedded AppError's code.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.code == other.code
	}
	return e.AppError.Is(target)
}

// PostgreSQL SQLSTATE classes/codes relevant to this package.
// https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	sqlStateConnectionExceptionClass = "08"
	sqlStateUniqueViolation          = "23505"
	sqlStateSerializationFailure     = "40001"
	sqlStateDeadlockDetected         = "40P01"
	sqlStateQueryCanceled            = "57014"
)

// FromPgError converts a PostgreSQL error into a domain Error.
func FromPgError(err error) *Error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return Wrap(CodeInternal, "database error", err)
	}

	code := mapSQLState(pgErr.Code)
	e := Wrap(code, pgErr.Message, err)
	e.sqlState = pgErr.Code
	return e
}

func mapSQLState(sqlState string) Code {
	switch sqlState {
	case sqlStateUniqueViolation:
		return CodeDuplicate
	case sqlStateSerializationFailure:
		return CodeSerialization
	case sqlStateDeadlockDetected:
		return CodeDeadlock
	case sqlStateQueryCanceled:
		return CodeTimeout
	}
	if len(sqlState) >= 2 && sqlState[:2] == sqlStateConnectionExceptionClass {
		return CodeConnection
	}
	return CodeInternal
}

// IsRetryable reports whether a postgres Error should be retried by
// store/postgres's internal transaction runner (serialization failures
// and deadlocks only — the same policy as txova-go-db's txManager).
func IsRetryable(err error) bool {
	var pgErr *Error
	if errors.As(err, &pgErr) {
		return pgErr.code == CodeSerialization || pgErr.code == CodeDeadlock
	}
	return false
}

// IsNotFound reports whether err is a CodeNotFound Error.
func IsNotFound(err error) bool {
	var pgErr *Error
	if errors.As(err, &pgErr) {
		return pgErr.code == CodeNotFound
	}
	return false
}
