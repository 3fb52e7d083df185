package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/KaiavN/Transac/internal/domain"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// wrapErr maps driver errors onto the domain taxonomy and adds msg as context.
func wrapErr(msg string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", msg, domain.ErrNotFound)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", msg, domain.ErrConflict)
	}

	return fmt.Errorf("%s: %w", msg, err)
}

// expectOneRow turns a zero-row update into domain.ErrNotFound.
func expectOneRow(result sql.Result, msg string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", msg, domain.ErrNotFound)
	}
	return nil
}
