package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"cashpoint/internal/core/apperror"
)

// SQLSTATE codes the repositories react to.
const (
	CodeUniqueViolation      = "23505"
	CodeLockNotAvailable     = "55P03"
	CodeDeadlockDetected     = "40P01"
	CodeSerializationFailure = "40001"
)

func pgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	ok := errors.As(err, &pgErr)
	return pgErr, ok
}

// PgCode returns the SQLSTATE of err, or "" if it is not a server error.
func PgCode(err error) string {
	if pgErr, ok := pgError(err); ok {
		return pgErr.Code
	}
	return ""
}

// IsUniqueViolation reports whether err violates the named unique constraint.
// An empty constraint matches any unique violation.
func IsUniqueViolation(err error, constraint string) bool {
	pgErr, ok := pgError(err)
	return ok && pgErr.Code == CodeUniqueViolation &&
		(constraint == "" || pgErr.ConstraintName == constraint)
}

// mapLockError turns lock contention into a retryable 409 so a busy till
// gets a clear answer instead of a 500.
func mapLockError(err error) error {
	switch PgCode(err) {
	case CodeLockNotAvailable, CodeDeadlockDetected, CodeSerializationFailure:
		return apperror.NewConflict("resource is busy, retry the request").
			WithDetail("sqlstate", PgCode(err))
	}
	return err
}
