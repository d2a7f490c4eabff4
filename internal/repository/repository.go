package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/attendly/attendly-api/internal/tenancy"
)

// uniqueViolation is the Postgres error code raised when an insert loses a
// race against a unique index. Callers translate it to the domain error of
// the violated invariant instead of surfacing a generic failure.
const uniqueViolation = "23505"

// IsUniqueViolation reports whether err is a Postgres unique-index conflict.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// existsAnyTenant probes for a row by id with no tenant predicate. It leaks
// nothing beyond existence and exists solely so scoped lookups can
// distinguish "not found" from "belongs to another tenant"; the caller is
// responsible for raising the audit signal, and must hold the bypass scope.
func existsAnyTenant(ctx context.Context, db *sqlx.DB, table, id string) (bool, error) {
	if err := tenancy.RequireBypass(ctx); err != nil {
		return false, err
	}
	query := fmt.Sprintf("SELECT 1 FROM %s WHERE id = $1 LIMIT 1", table)
	var one int
	if err := db.GetContext(ctx, &one, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("probe %s existence: %w", table, err)
	}
	return true, nil
}
