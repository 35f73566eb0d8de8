package sqlite

import (
	"context"
	"database/sql"

	"github.com/dogmatiq/eventcore/event"
	"github.com/dogmatiq/eventcore/internal/x/sqlx"
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

	return sqlx.TryExecRow(
		ctx,
		tx,
		`INSERT INTO aggregate_version (
			tenant_key,
			event_source,
			aggregate_root_id,
			version
		) VALUES (
			?, ?, ?, ?
		) ON CONFLICT (tenant_key, event_source, aggregate_root_id) DO NOTHING`,
		tk,
		string(source),
		root.String(),
		int64(v),
	), nil
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

	return sqlx.TryExecRow(
		ctx,
		tx,
		`UPDATE aggregate_version SET
			version = ?
		WHERE tenant_key = ?
		AND event_source = ?
		AND aggregate_root_id = ?
		AND version = ?`,
		int64(next),
		tk,
		string(source),
		root.String(),
		int64(expected),
	), nil
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

	var v event.AggregateRootVersion

	sqlx.TryQueryRow(
		ctx,
		db,
		`SELECT version
		FROM aggregate_version
		WHERE tenant_key = ?
		AND event_source = ?
		AND aggregate_root_id = ?`,
		[]interface{}{tk, string(source), root.String()},
		&v,
	)

	return v, nil
}

// createAggregateSchema creates the schema elements for aggregates.
func createAggregateSchema(ctx context.Context, db sqlx.DB) {
	sqlx.Exec(
		ctx,
		db,
		`CREATE TABLE IF NOT EXISTS aggregate_version (
			tenant_key        TEXT NOT NULL,
			event_source      TEXT NOT NULL,
			aggregate_root_id TEXT NOT NULL,
			version           INTEGER NOT NULL,

			PRIMARY KEY (tenant_key, event_source, aggregate_root_id)
		)`,
	)
}

// dropAggregateSchema drops the schema elements for aggregates.
func dropAggregateSchema(ctx context.Context, db sqlx.DB) {
	sqlx.Exec(ctx, db, `DROP TABLE IF EXISTS aggregate_version`)
}
