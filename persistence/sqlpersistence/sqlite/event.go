package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/dogmatiq/eventcore/event"
	"github.com/dogmatiq/eventcore/internal/x/sqlx"
	"github.com/dogmatiq/eventcore/persistence/sqlpersistence/internal/sqlrow"
	"github.com/google/uuid"
)

// eventColumns is the column list used when selecting events.
var eventColumns = strings.Join(sqlrow.EventColumns, ", ")

// IncrementNextSequenceNumber increments the next unused sequence number by n
// and returns its previous value.
func (driver) IncrementNextSequenceNumber(
	ctx context.Context,
	tx *sql.Tx,
	tk string,
	n uint64,
) (_ event.SequenceNumber, err error) {
	defer sqlx.Recover(&err)

	var next uint64

	sqlx.QueryInto(
		ctx,
		tx,
		&next,
		`INSERT INTO event_counter (
			tenant_key,
			next
		) VALUES (
			?, ?
		) ON CONFLICT (tenant_key) DO UPDATE SET
			next = next + excluded.next
		RETURNING next`,
		tk,
		int64(n),
	)

	return event.SequenceNumber(next - n), nil
}

// InsertEvent saves an event at its sequence number.
func (driver) InsertEvent(
	ctx context.Context,
	tx *sql.Tx,
	tk string,
	ev event.CommittedEvent,
) (err error) {
	defer sqlx.Recover(&err)

	args := append([]interface{}{tk}, sqlrow.EventValues(ev)...)

	sqlx.Exec(
		ctx,
		tx,
		`INSERT INTO event (
			tenant_key, `+eventColumns+`
		) VALUES (
			?`+strings.Repeat(", ?", len(sqlrow.EventColumns))+`
		)`,
		args...,
	)

	return nil
}

// SelectNextSequenceNumber selects the next unused sequence number.
func (driver) SelectNextSequenceNumber(
	ctx context.Context,
	db sqlx.DB,
	tk string,
) (_ event.SequenceNumber, err error) {
	defer sqlx.Recover(&err)

	var next event.SequenceNumber

	sqlx.TryQueryRow(
		ctx,
		db,
		`SELECT next
		FROM event_counter
		WHERE tenant_key = ?`,
		[]interface{}{tk},
		&next,
	)

	return next, nil
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

	rows := sqlx.Query(
		ctx,
		db,
		`SELECT `+eventColumns+`
		FROM event
		WHERE tenant_key = ?
		AND sequence_number >= ?
		ORDER BY sequence_number
		LIMIT ?`,
		tk,
		int64(n),
		limit,
	)

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

	rows := sqlx.Query(
		ctx,
		db,
		`SELECT `+eventColumns+`
		FROM event
		WHERE tenant_key = ?
		AND event_source = ?
		AND aggregate_root_id = ?
		ORDER BY sequence_number`,
		tk,
		string(source),
		root.String(),
	)

	return sqlrow.ScanEvents(rows), nil
}

// createEventSchema creates the schema elements for events.
func createEventSchema(ctx context.Context, db sqlx.DB) {
	sqlx.Exec(
		ctx,
		db,
		`CREATE TABLE IF NOT EXISTS event_counter (
			tenant_key TEXT NOT NULL PRIMARY KEY,
			next       INTEGER NOT NULL
		)`,
	)

	sqlx.Exec(
		ctx,
		db,
		`CREATE TABLE IF NOT EXISTS event (
			tenant_key                TEXT NOT NULL,
			sequence_number           INTEGER NOT NULL,
			occurred                  TEXT,
			event_source              TEXT NOT NULL,
			tenant_id                 TEXT NOT NULL,
			correlation_id            TEXT NOT NULL,
			microservice_id           TEXT NOT NULL,
			environment               TEXT NOT NULL,
			type_id                   TEXT NOT NULL,
			type_generation           INTEGER NOT NULL,
			public                    BOOLEAN NOT NULL,
			content                   BLOB NOT NULL,
			aggregate_root_id         TEXT NOT NULL,
			aggregate_root_generation INTEGER NOT NULL,
			aggregate_version         INTEGER NOT NULL,

			PRIMARY KEY (tenant_key, sequence_number)
		)`,
	)

	sqlx.Exec(
		ctx,
		db,
		`CREATE INDEX IF NOT EXISTS by_aggregate ON event (
			tenant_key,
			event_source,
			aggregate_root_id,
			sequence_number
		)`,
	)
}

// dropEventSchema drops the schema elements for events.
func dropEventSchema(ctx context.Context, db sqlx.DB) {
	sqlx.Exec(ctx, db, `DROP TABLE IF EXISTS event_counter`)
	sqlx.Exec(ctx, db, `DROP TABLE IF EXISTS event`)
}
