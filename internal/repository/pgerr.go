package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	codeUniqueViolation   = "23505"
	codeCheckViolation    = "23514"
	codeSerializationFail = "40001"
	codeDeadlockDetected  = "40P01"
	codeLockNotAvailable  = "55P03"
)

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == codeUniqueViolation && (constraint == "" || pgErr.ConstraintName == constraint)
}

func isCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeCheckViolation
}

// isRetryable reports whether the transaction failed on a conflict the caller
// can resolve by resubmitting: deadlock, lock wait timeout or serialization
// failure.
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case codeSerializationFail, codeDeadlockDetected, codeLockNotAvailable:
		return true
	}
	return false
}
