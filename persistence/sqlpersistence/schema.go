package sqlpersistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dogmatiq/eventcore/persistence/sqlpersistence/postgres"
	"github.com/dogmatiq/eventcore/persistence/sqlpersistence/sqlite"
	"go.uber.org/multierr"
)

// drivers is the set of built-in drivers, in the order they are probed.
var drivers = []Driver{
	sqlite.Driver,
	postgres.Driver,
}

// driverFor returns the first built-in driver that is compatible with db.
func driverFor(ctx context.Context, db *sql.DB) (Driver, error) {
	var causes error

	for _, d := range drivers {
		err := d.IsCompatibleWith(ctx, db)
		if err == nil {
			return d, nil
		}

		causes = multierr.Append(causes, fmt.Errorf("%T: %w", d, err))
	}

	return nil, multierr.Append(
		fmt.Errorf("none of the built-in drivers support %T", db.Driver()),
		causes,
	)
}

// CreateSchema creates the tables used by the built-in driver that matches
// db. It is a no-op for tables that already exist.
func CreateSchema(ctx context.Context, db *sql.DB) error {
	return withDriver(ctx, db, Driver.CreateSchema)
}

// DropSchema removes the tables created by CreateSchema(). It is a no-op for
// tables that do not exist.
func DropSchema(ctx context.Context, db *sql.DB) error {
	return withDriver(ctx, db, Driver.DropSchema)
}

func withDriver(
	ctx context.Context,
	db *sql.DB,
	fn func(Driver, context.Context, *sql.DB) error,
) error {
	d, err := driverFor(ctx, db)
	if err != nil {
		return err
	}

	return fn(d, ctx, db)
}
