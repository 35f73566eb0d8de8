package sqlite

import (
	"context"
	"database/sql"

	"github.com/dogmatiq/eventcore/internal/x/sqlx"
	"github.com/dogmatiq/eventcore/persistence"
)

// IncrementNextStreamPosition increments the next unused position of a stream
// and returns its previous value.
func (driver) IncrementNextStreamPosition(
	ctx context.Context,
	tx *sql.Tx,
	tk, streamID string,
) (_ uint64, err error) {
	defer sqlx.Recover(&err)

	var next uint64

	sqlx.QueryInto(
		ctx,
		tx,
		&next,
		`INSERT INTO stream_counter (
			tenant_key,
			stream_id
		) VALUES (
			?, ?
		) ON CONFLICT (tenant_key, stream_id) DO UPDATE SET
			next = next + 1
		RETURNING next`,
		tk,
		streamID,
	)

	return next - 1, nil
}

// InsertStreamEvent saves an event at its position within a stream.
func (driver) InsertStreamEvent(
	ctx context.Context,
	tx *sql.Tx,
	tk string,
	ev persistence.StreamEvent,
) (err error) {
	defer sqlx.Recover(&err)

	sqlx.Exec(
		ctx,
		tx,
		`INSERT INTO stream_event (
			tenant_key,
			stream_id,
			position,
			partition_id,
			sequence_number
		) VALUES (
			?, ?, ?, ?, ?
		)`,
		tk,
		ev.StreamID,
		int64(ev.Position),
		ev.Partition,
		int64(ev.SequenceNumber),
	)

	return nil
}

// SelectNextStreamPosition selects the next unused position of a stream.
func (driver) SelectNextStreamPosition(
	ctx context.Context,
	db sqlx.DB,
	tk, streamID string,
) (_ uint64, err error) {
	defer sqlx.Recover(&err)

	var next uint64

	sqlx.TryQueryRow(
		ctx,
		db,
		`SELECT next
		FROM stream_counter
		WHERE tenant_key = ?
		AND stream_id = ?`,
		[]interface{}{tk, streamID},
		&next,
	)

	return next, nil
}

// SelectStreamEvent selects the event at a specific position of a stream.
func (driver) SelectStreamEvent(
	ctx context.Context,
	db sqlx.DB,
	tk, streamID string,
	pos uint64,
) (_ persistence.StreamEvent, _ bool, err error) {
	defer sqlx.Recover(&err)

	ev := persistence.StreamEvent{
		StreamID: streamID,
		Position: pos,
	}

	ok := sqlx.TryQueryRow(
		ctx,
		db,
		`SELECT
			partition_id,
			sequence_number
		FROM stream_event
		WHERE tenant_key = ?
		AND stream_id = ?
		AND position = ?`,
		[]interface{}{tk, streamID, int64(pos)},
		&ev.Partition,
		&ev.SequenceNumber,
	)

	return ev, ok, nil
}

// createStreamSchema creates the schema elements for persisted streams.
func createStreamSchema(ctx context.Context, db sqlx.DB) {
	sqlx.Exec(
		ctx,
		db,
		`CREATE TABLE IF NOT EXISTS stream_counter (
			tenant_key TEXT NOT NULL,
			stream_id  TEXT NOT NULL,
			next       INTEGER NOT NULL DEFAULT 1,

			PRIMARY KEY (tenant_key, stream_id)
		)`,
	)

	sqlx.Exec(
		ctx,
		db,
		`CREATE TABLE IF NOT EXISTS stream_event (
			tenant_key      TEXT NOT NULL,
			stream_id       TEXT NOT NULL,
			position        INTEGER NOT NULL,
			partition_id    TEXT NOT NULL,
			sequence_number INTEGER NOT NULL,

			PRIMARY KEY (tenant_key, stream_id, position)
		)`,
	)
}

// dropStreamSchema drops the schema elements for persisted streams.
func dropStreamSchema(ctx context.Context, db sqlx.DB) {
	sqlx.Exec(ctx, db, `DROP TABLE IF EXISTS stream_counter`)
	sqlx.Exec(ctx, db, `DROP TABLE IF EXISTS stream_event`)
}
