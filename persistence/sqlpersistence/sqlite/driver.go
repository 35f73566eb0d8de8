// Package sqlite is the SQLite driver for sqlpersistence.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dogmatiq/eventcore/internal/x/sqlx"
)

// Driver is an implementation of sqlpersistence.Driver for SQLite.
var Driver = driver{}

type driver struct{}

// tables holds the functions that create and drop each group of tables, in
// creation order.
var tables = []struct {
	create, drop func(context.Context, sqlx.DB)
}{
	{createAggregateSchema, dropAggregateSchema},
	{createEventSchema, dropEventSchema},
	{createStreamSchema, dropStreamSchema},
	{createStreamProcessorSchema, dropStreamProcessorSchema},
}

// IsCompatibleWith returns nil if db is an SQLite database that accepts
// ?-style placeholders.
func (driver) IsCompatibleWith(ctx context.Context, db *sql.DB) error {
	var version string
	if err := db.QueryRowContext(
		ctx,
		`SELECT sqlite_version() WHERE ? = 1`,
		1,
	).Scan(&version); err != nil {
		return fmt.Errorf("not an SQLite database: %w", err)
	}

	return nil
}

// Begin starts a transaction.
func (driver) Begin(ctx context.Context, db *sql.DB) (*sql.Tx, error) {
	return db.BeginTx(ctx, nil)
}

// CreateSchema creates every table within a single transaction.
func (driver) CreateSchema(ctx context.Context, db *sql.DB) (err error) {
	defer sqlx.Recover(&err)

	tx := sqlx.Begin(ctx, db)
	defer tx.Rollback() // nolint:errcheck

	for _, t := range tables {
		t.create(ctx, tx)
	}

	sqlx.Commit(tx)

	return nil
}

// DropSchema drops every table in the reverse of creation order.
func (driver) DropSchema(ctx context.Context, db *sql.DB) (err error) {
	defer sqlx.Recover(&err)

	for i := len(tables) - 1; i >= 0; i-- {
		tables[i].drop(ctx, db)
	}

	return nil
}
