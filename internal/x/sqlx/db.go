// Package sqlx contains panicking wrappers around database/sql.
//
// Every function in this package panics with a PanicSentinel on failure.
// Callers convert the panic back into an error by deferring Recover().
package sqlx

import (
	"context"
	"database/sql"
	"errors"
)

// DB is the subset of *sql.DB, *sql.Conn and *sql.Tx used to execute
// statements.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

var (
	_ DB = (*sql.DB)(nil)
	_ DB = (*sql.Tx)(nil)
	_ DB = (*sql.Conn)(nil)
)

// Scanner is a *sql.Rows or *sql.Row.
type Scanner interface {
	Scan(...any) error
}

// Begin starts a transaction on db.
func Begin(ctx context.Context, db *sql.DB) *sql.Tx {
	tx, err := db.BeginTx(ctx, nil)
	Must(err)
	return tx
}

// Commit commits tx.
func Commit(tx *sql.Tx) {
	Must(tx.Commit())
}

// Exec executes a statement that does not return rows.
func Exec(ctx context.Context, db DB, query string, args ...any) sql.Result {
	res, err := db.ExecContext(ctx, query, args...)
	Must(err)
	return res
}

// TryExecRow executes a statement that is expected to affect at most one
// row. It returns false if no rows were affected.
func TryExecRow(ctx context.Context, db DB, query string, args ...any) bool {
	n, err := Exec(ctx, db, query, args...).RowsAffected()
	Must(err)
	return n == 1
}

// Query executes a statement that returns rows.
func Query(ctx context.Context, db DB, query string, args ...any) *sql.Rows {
	rows, err := db.QueryContext(ctx, query, args...)
	Must(err)
	return rows
}

// QueryInto executes a query that returns exactly one row with a single
// column, and scans that column into value.
func QueryInto(ctx context.Context, db DB, value any, query string, args ...any) {
	Must(db.QueryRowContext(ctx, query, args...).Scan(value))
}

// TryQueryRow executes a query that returns at most one row and scans that
// row into values. It returns false if there is no row.
func TryQueryRow(ctx context.Context, db DB, query string, args []any, values ...any) bool {
	err := db.QueryRowContext(ctx, query, args...).Scan(values...)
	if errors.Is(err, sql.ErrNoRows) {
		return false
	}

	Must(err)
	return true
}
