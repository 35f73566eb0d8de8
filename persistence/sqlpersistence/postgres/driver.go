package postgres

import (
	"context"
	"database/sql"

	"github.com/dogmatiq/eventcore/internal/x/sqlx"
	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	// Register the PostgreSQL goqu dialect.
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
)

// Driver is an implementation of sqlpersistence.Driver for PostgreSQL.
var Driver errorConverter

type driver struct{}

// dialect builds the queries used by the driver.
var dialect = goqu.Dialect("postgres")

// table returns the identifier of a table within the eventcore schema.
func table(name string) exp.IdentifierExpression {
	return goqu.S("eventcore").Table(name)
}

// builder is an interface for goqu datasets.
type builder interface {
	ToSQL() (string, []interface{}, error)
}

// build renders the SQL and arguments for a query.
//
// It panics with a sqlx.PanicSentinel if the query can not be built.
func build(b builder) (string, []interface{}) {
	query, args, err := b.ToSQL()
	sqlx.Must(err)
	return query, args
}

// columns converts column names to the form accepted by goqu.
func columns(names ...string) []interface{} {
	cols := make([]interface{}, len(names))
	for i, n := range names {
		cols[i] = n
	}
	return cols
}

// IsCompatibleWith returns nil if this driver can be used with db.
func (driver) IsCompatibleWith(ctx context.Context, db *sql.DB) error {
	// Verify that we're using PostgreSQL and that $1-style placeholders are
	// supported.
	var v interface{}
	return db.QueryRowContext(
		ctx,
		`SELECT pg_backend_pid() WHERE 1 = $1`,
		1,
	).Scan(&v)
}

// Begin starts a transaction.
func (driver) Begin(ctx context.Context, db *sql.DB) (*sql.Tx, error) {
	return db.BeginTx(ctx, nil)
}

// CreateSchema creates any SQL schema elements required by the driver.
func (driver) CreateSchema(ctx context.Context, db *sql.DB) (err error) {
	defer sqlx.Recover(&err)

	tx := sqlx.Begin(ctx, db)
	defer tx.Rollback() // nolint:errcheck

	sqlx.Exec(ctx, tx, `CREATE SCHEMA IF NOT EXISTS eventcore`)

	createAggregateSchema(ctx, tx)
	createEventSchema(ctx, tx)
	createStreamSchema(ctx, tx)
	createStreamProcessorSchema(ctx, tx)

	sqlx.Commit(tx)

	return nil
}

// DropSchema removes any SQL schema elements created by CreateSchema().
func (driver) DropSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `DROP SCHEMA IF EXISTS eventcore CASCADE`)
	return err
}
