package postgres

import (
	"context"
	"database/sql"

	"github.com/dogmatiq/eventcore/event"
	"github.com/dogmatiq/eventcore/internal/x/sqlx"
	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
)

// InsertAggregateRootVersion inserts the version of an aggregate root
// instance.
//
// It returns false if the row already exists.
func (driver) InsertAggregateRootVersion(
	ctx context.Context,
	tx *sql.Tx,
	tk string,
	source event.EventSourceID,
	root uuid.UUID,
	v event.AggregateRootVersion,
) (_ bool, err error) {
	defer sqlx.Recover(&err)

	query, args := build(
		dialect.
			Insert(table("aggregate_version")).
			Rows(goqu.Record{
				"tenant_key":        tk,
				"event_source":      string(source),
				"aggregate_root_id": root.String(),
				"version":           int64(v),
			}).
			OnConflict(goqu.DoNothing()).
			Prepared(true),
	)

	return sqlx.TryExecRow(ctx, tx, query, args...), nil
}

// UpdateAggregateRootVersion updates the version of an aggregate root
// instance.
//
// It returns false if the row does not exist or its version is not equal to
// expected.
func (driver) UpdateAggregateRootVersion(
	ctx context.Context,
	tx *sql.Tx,
	tk string,
	source event.EventSourceID,
	root uuid.UUID,
	expected, next event.AggregateRootVersion,
) (_ bool, err error) {
	defer sqlx.Recover(&err)

	query, args := build(
		dialect.
			Update(table("aggregate_version")).
			Set(goqu.Record{"version": int64(next)}).
			Where(goqu.Ex{
				"tenant_key":        tk,
				"event_source":      string(source),
				"aggregate_root_id": root.String(),
				"version":           int64(expected),
			}).
			Prepared(true),
	)

	return sqlx.TryExecRow(ctx, tx, query, args...), nil
}

// SelectAggregateRootVersion selects the version of an aggregate root
// instance.
func (driver) SelectAggregateRootVersion(
	ctx context.Context,
	db sqlx.DB,
	tk string,
	source event.EventSourceID,
	root uuid.UUID,
) (_ event.AggregateRootVersion, err error) {
	defer sqlx.Recover(&err)

	query, args := build(
		dialect.
			From(table("aggregate_version")).
			Select("version").
			Where(goqu.Ex{
				"tenant_key":        tk,
				"event_source":      string(source),
				"aggregate_root_id": root.String(),
			}).
			Prepared(true),
	)

	var v int64
	sqlx.TryQueryRow(ctx, db, query, args, &v)

	return event.AggregateRootVersion(v), nil
}

// createAggregateSchema creates the schema elements for aggregates.
func createAggregateSchema(ctx context.Context, db sqlx.DB) {
	sqlx.Exec(
		ctx,
		db,
		`CREATE TABLE IF NOT EXISTS eventcore.aggregate_version (
			tenant_key        TEXT NOT NULL,
			event_source      TEXT NOT NULL,
			aggregate_root_id TEXT NOT NULL,
			version           BIGINT NOT NULL,

			PRIMARY KEY (tenant_key, event_source, aggregate_root_id)
		)`,
	)
}
