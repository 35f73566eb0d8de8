package postgres

import (
	"context"
	"database/sql"

	"github.com/dogmatiq/eventcore/event"
	"github.com/dogmatiq/eventcore/internal/x/sqlx"
	"github.com/dogmatiq/eventcore/persistence"
	"github.com/doug-martin/goqu/v9"
)

// IncrementNextStreamPosition increments the next unused position of a stream
// and returns its previous value.
func (driver) IncrementNextStreamPosition(
	ctx context.Context,
	tx *sql.Tx,
	tk, streamID string,
) (_ uint64, err error) {
	defer sqlx.Recover(&err)

	query, args := build(
		dialect.
			Insert(table("stream_counter")).
			Rows(goqu.Record{
				"tenant_key": tk,
				"stream_id":  streamID,
				"next":       1,
			}).
			OnConflict(goqu.DoUpdate(
				"tenant_key, stream_id",
				goqu.Record{
					"next": goqu.L(`"stream_counter"."next" + 1`),
				},
			)).
			Returning("next").
			Prepared(true),
	)

	var next int64
	sqlx.QueryInto(ctx, tx, &next, query, args...)

	return uint64(next) - 1, nil
}

// InsertStreamEvent saves an event at its position within a stream.
func (driver) InsertStreamEvent(
	ctx context.Context,
	tx *sql.Tx,
	tk string,
	ev persistence.StreamEvent,
) (err error) {
	defer sqlx.Recover(&err)

	query, args := build(
		dialect.
			Insert(table("stream_event")).
			Rows(goqu.Record{
				"tenant_key":      tk,
				"stream_id":       ev.StreamID,
				"position":        int64(ev.Position),
				"partition_id":    ev.Partition,
				"sequence_number": int64(ev.SequenceNumber),
			}).
			Prepared(true),
	)

	sqlx.Exec(ctx, tx, query, args...)

	return nil
}

// SelectNextStreamPosition selects the next unused position of a stream.
func (driver) SelectNextStreamPosition(
	ctx context.Context,
	db sqlx.DB,
	tk, streamID string,
) (_ uint64, err error) {
	defer sqlx.Recover(&err)

	query, args := build(
		dialect.
			From(table("stream_counter")).
			Select("next").
			Where(goqu.Ex{
				"tenant_key": tk,
				"stream_id":  streamID,
			}).
			Prepared(true),
	)

	var next int64
	sqlx.TryQueryRow(ctx, db, query, args, &next)

	return uint64(next), nil
}

// SelectStreamEvent selects the event at a specific position of a stream.
func (driver) SelectStreamEvent(
	ctx context.Context,
	db sqlx.DB,
	tk, streamID string,
	pos uint64,
) (_ persistence.StreamEvent, _ bool, err error) {
	defer sqlx.Recover(&err)

	query, args := build(
		dialect.
			From(table("stream_event")).
			Select("partition_id", "sequence_number").
			Where(goqu.Ex{
				"tenant_key": tk,
				"stream_id":  streamID,
				"position":   int64(pos),
			}).
			Prepared(true),
	)

	ev := persistence.StreamEvent{
		StreamID: streamID,
		Position: pos,
	}

	var n int64
	ok := sqlx.TryQueryRow(ctx, db, query, args, &ev.Partition, &n)
	ev.SequenceNumber = event.SequenceNumber(n)

	return ev, ok, nil
}

// createStreamSchema creates the schema elements for persisted streams.
func createStreamSchema(ctx context.Context, db sqlx.DB) {
	sqlx.Exec(
		ctx,
		db,
		`CREATE TABLE IF NOT EXISTS eventcore.stream_counter (
			tenant_key TEXT NOT NULL,
			stream_id  TEXT NOT NULL,
			next       BIGINT NOT NULL,

			PRIMARY KEY (tenant_key, stream_id)
		)`,
	)

	sqlx.Exec(
		ctx,
		db,
		`CREATE TABLE IF NOT EXISTS eventcore.stream_event (
			tenant_key      TEXT NOT NULL,
			stream_id       TEXT NOT NULL,
			position        BIGINT NOT NULL,
			partition_id    TEXT NOT NULL,
			sequence_number BIGINT NOT NULL,

			PRIMARY KEY (tenant_key, stream_id, position)
		)`,
	)
}
