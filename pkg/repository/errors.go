package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL SQLSTATE codes translated by MapError.
const (
	pgUniqueViolation  = "23505"
	pgCheckViolation   = "23514"
	pgNotNullViolation = "23502"
)

// Errors names the domain errors a repository maps database failures to.
// A nil field leaves that class of failure unmapped.
type Errors struct {
	NotFound  error
	Duplicate error
	Invalid   error
}

// MapError translates database errors to domain errors: sql.ErrNoRows to
// NotFound, unique violations to Duplicate, and check or not-null violations
// to Invalid wrapped with the constraint or column name. Other errors are
// returned unchanged.
func MapError(err error, m Errors) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) && m.NotFound != nil {
		return m.NotFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch {
	case pgErr.Code == pgUniqueViolation && m.Duplicate != nil:
		return m.Duplicate
	case pgErr.Code == pgCheckViolation && m.Invalid != nil:
		return fmt.Errorf("%w: %s", m.Invalid, pgErr.ConstraintName)
	case pgErr.Code == pgNotNullViolation && m.Invalid != nil:
		return fmt.Errorf("%w: %s required", m.Invalid, pgErr.ColumnName)
	}

	return err
}
