package postgres

import (
	"context"
	"database/sql"

	"github.com/dogmatiq/eventcore/event"
	"github.com/dogmatiq/eventcore/internal/x/sqlx"
	"github.com/dogmatiq/eventcore/persistence/sqlpersistence/internal/sqlrow"
	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
)

// IncrementNextSequenceNumber increments the next unused sequence number by n
// and returns its previous value.
func (driver) IncrementNextSequenceNumber(
	ctx context.Context,
	tx *sql.Tx,
	tk string,
	n uint64,
) (_ event.SequenceNumber, err error) {
	defer sqlx.Recover(&err)

	query, args := build(
		dialect.
			Insert(table("event_counter")).
			Rows(goqu.Record{
				"tenant_key": tk,
				"next":       int64(n),
			}).
			OnConflict(goqu.DoUpdate(
				"tenant_key",
				goqu.Record{
					"next": goqu.L(`"event_counter"."next" + "excluded"."next"`),
				},
			)).
			Returning("next").
			Prepared(true),
	)

	var next int64
	sqlx.QueryInto(ctx, tx, &next, query, args...)

	return event.SequenceNumber(uint64(next) - n), nil
}

// InsertEvent saves an event at its sequence number.
func (driver) InsertEvent(
	ctx context.Context,
	tx *sql.Tx,
	tk string,
	ev event.CommittedEvent,
) (err error) {
	defer sqlx.Recover(&err)

	query, args := build(
		dialect.
			Insert(table("event")).
			Cols(append(columns("tenant_key"), columns(sqlrow.EventColumns...)...)...).
			Vals(append([]interface{}{tk}, sqlrow.EventValues(ev)...)).
			Prepared(true),
	)

	sqlx.Exec(ctx, tx, query, args...)

	return nil
}

// SelectNextSequenceNumber selects the next unused sequence number.
func (driver) SelectNextSequenceNumber(
	ctx context.Context,
	db sqlx.DB,
	tk string,
) (_ event.SequenceNumber, err error) {
	defer sqlx.Recover(&err)

	query, args := build(
		dialect.
			From(table("event_counter")).
			Select("next").
			Where(goqu.Ex{"tenant_key": tk}).
			Prepared(true),
	)

	var next int64
	sqlx.TryQueryRow(ctx, db, query, args, &next)

	return event.SequenceNumber(next), nil
}

// SelectEvents selects up to limit events, beginning with sequence number n.
func (driver) SelectEvents(
	ctx context.Context,
	db sqlx.DB,
	tk string,
	n event.SequenceNumber,
	limit int,
) (_ []event.CommittedEvent, err error) {
	defer sqlx.Recover(&err)

	query, args := build(
		dialect.
			From(table("event")).
			Select(columns(sqlrow.EventColumns...)...).
			Where(
				goqu.C("tenant_key").Eq(tk),
				goqu.C("sequence_number").Gte(int64(n)),
			).
			Order(goqu.C("sequence_number").Asc()).
			Limit(uint(limit)).
			Prepared(true),
	)

	rows := sqlx.Query(ctx, db, query, args...)

	return sqlrow.ScanEvents(rows), nil
}

// SelectAggregateEvents selects the events committed by an aggregate root
// instance.
func (driver) SelectAggregateEvents(
	ctx context.Context,
	db sqlx.DB,
	tk string,
	source event.EventSourceID,
	root uuid.UUID,
) (_ []event.CommittedEvent, err error) {
	defer sqlx.Recover(&err)

	query, args := build(
		dialect.
			From(table("event")).
			Select(columns(sqlrow.EventColumns...)...).
			Where(goqu.Ex{
				"tenant_key":        tk,
				"event_source":      string(source),
				"aggregate_root_id": root.String(),
			}).
			Order(goqu.C("sequence_number").Asc()).
			Prepared(true),
	)

	rows := sqlx.Query(ctx, db, query, args...)

	return sqlrow.ScanEvents(rows), nil
}

// createEventSchema creates the schema elements for events.
func createEventSchema(ctx context.Context, db sqlx.DB) {
	sqlx.Exec(
		ctx,
		db,
		`CREATE TABLE IF NOT EXISTS eventcore.event_counter (
			tenant_key TEXT NOT NULL PRIMARY KEY,
			next       BIGINT NOT NULL
		)`,
	)

	sqlx.Exec(
		ctx,
		db,
		`CREATE TABLE IF NOT EXISTS eventcore.event (
			tenant_key                TEXT NOT NULL,
			sequence_number           BIGINT NOT NULL,
			occurred                  TEXT,
			event_source              TEXT NOT NULL,
			tenant_id                 TEXT NOT NULL,
			correlation_id            TEXT NOT NULL,
			microservice_id           TEXT NOT NULL,
			environment               TEXT NOT NULL,
			type_id                   TEXT NOT NULL,
			type_generation           BIGINT NOT NULL,
			public                    BOOLEAN NOT NULL,
			content                   BYTEA NOT NULL,
			aggregate_root_id         TEXT NOT NULL,
			aggregate_root_generation BIGINT NOT NULL,
			aggregate_version         BIGINT NOT NULL,

			PRIMARY KEY (tenant_key, sequence_number)
		)`,
	)

	sqlx.Exec(
		ctx,
		db,
		`CREATE INDEX IF NOT EXISTS by_aggregate ON eventcore.event (
			tenant_key,
			event_source,
			aggregate_root_id,
			sequence_number
		)`,
	)
}
