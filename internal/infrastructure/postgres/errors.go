package postgres

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oksasatya/go-ddd-fixture-users/internal/domain/repository"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// translate maps driver errors onto repository errors.
func translate(err error, values map[string]string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		field := uniqueField(pgErr.ConstraintName)
		return &repository.UniquenessError{Field: field, Value: values[field]}
	}
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return repository.ErrNotFound
	}
	return err
}

// index names follow index_<table>_on_<column>
func uniqueField(constraint string) string {
	if i := strings.LastIndex(constraint, "_on_"); i >= 0 {
		return constraint[i+len("_on_"):]
	}
	return constraint
}
