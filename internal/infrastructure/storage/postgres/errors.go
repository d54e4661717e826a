package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"almacen/internal/core/apperror"
)

// Postgres error codes the repositories translate into the API taxonomy.
const (
	pgCodeUniqueViolation     = "23505"
	pgCodeForeignKeyViolation = "23503"
	pgCodeCheckViolation      = "23514"
	pgCodeLockNotAvailable    = "55P03"
	pgCodeQueryCanceled       = "57014"
)

// MapError translates low-level postgres errors into AppErrors. Lock
// waits that exceed lock_timeout and canceled statements both surface as
// BUSY so the client can retry; constraint violations become conflicts.
// Errors that are already AppErrors pass through unchanged.
func MapError(err error, entityType string) error {
	if err == nil {
		return nil
	}
	if _, ok := apperror.AsAppError(err); ok {
		return err
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgCodeLockNotAvailable, pgCodeQueryCanceled:
		return apperror.NewBusy("storage is busy, retry the operation").
			WithDetail("entity", entityType)
	case pgCodeUniqueViolation:
		return apperror.NewConflict("record already exists").
			WithDetail("entity", entityType).
			WithDetail("constraint", pgErr.ConstraintName)
	case pgCodeForeignKeyViolation:
		return apperror.NewConflict("referenced record does not exist or is still referenced").
			WithDetail("entity", entityType).
			WithDetail("constraint", pgErr.ConstraintName)
	case pgCodeCheckViolation:
		return apperror.NewInvariantViolation("stored data would violate a balance constraint").
			WithDetail("entity", entityType).
			WithDetail("constraint", pgErr.ConstraintName)
	}

	return err
}
