package store

import (
	"context"
	"database/sql"
)

// DBTX is the subset of database/sql operations the stores run their
// queries through. Both *sql.DB and *sql.Tx satisfy it, so a store works
// the same inside or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
