package postgres

import (
	"context"
	"database/sql"
	"strings"

	"github.com/dogmatiq/eventcore/event"
	"github.com/dogmatiq/eventcore/internal/x/sqlx"
	"github.com/dogmatiq/eventcore/persistence"
	"github.com/google/uuid"
)

// convertContextErrors converts PostgreSQL "query_canceled" errors into a
// context.Canceled or DeadlineExceeded error.
//
// The driver may return its own error if the context is canceled after a
// query has already started.
func convertContextErrors(ctx context.Context, err error) error {
	if err != nil && ctx.Err() != nil {
		if strings.Contains(err.Error(), "canceling statement due to user request") {
			return ctx.Err()
		}
	}

	return err
}

// errorConverter is an implementation of sqlpersistence.Driver that decorates
// the PostgreSQL driver in order to convert native "query_canceled" errors
// into regular context.Canceled / DeadlineExceeded errors.
//
// The error conversion is implemented this way so that conversions don't get
// missed when new methods are added to the sqlpersistence.Driver interface.
type errorConverter struct {
	d driver
}

func (d errorConverter) IsCompatibleWith(ctx context.Context, db *sql.DB) error {
	err := d.d.IsCompatibleWith(ctx, db)
	return convertContextErrors(ctx, err)
}

func (d errorConverter) Begin(ctx context.Context, db *sql.DB) (*sql.Tx, error) {
	tx, err := d.d.Begin(ctx, db)
	return tx, convertContextErrors(ctx, err)
}

func (d errorConverter) CreateSchema(ctx context.Context, db *sql.DB) error {
	err := d.d.CreateSchema(ctx, db)
	return convertContextErrors(ctx, err)
}

func (d errorConverter) DropSchema(ctx context.Context, db *sql.DB) error {
	err := d.d.DropSchema(ctx, db)
	return convertContextErrors(ctx, err)
}

//
// aggregate
//

func (d errorConverter) InsertAggregateRootVersion(
	ctx context.Context,
	tx *sql.Tx,
	tk string,
	source event.EventSourceID,
	root uuid.UUID,
	v event.AggregateRootVersion,
) (bool, error) {
	ok, err := d.d.InsertAggregateRootVersion(ctx, tx, tk, source, root, v)
	return ok, convertContextErrors(ctx, err)
}

func (d errorConverter) UpdateAggregateRootVersion(
	ctx context.Context,
	tx *sql.Tx,
	tk string,
	source event.EventSourceID,
	root uuid.UUID,
	expected, next event.AggregateRootVersion,
) (bool, error) {
	ok, err := d.d.UpdateAggregateRootVersion(ctx, tx, tk, source, root, expected, next)
	return ok, convertContextErrors(ctx, err)
}

func (d errorConverter) SelectAggregateRootVersion(
	ctx context.Context,
	db sqlx.DB,
	tk string,
	source event.EventSourceID,
	root uuid.UUID,
) (event.AggregateRootVersion, error) {
	v, err := d.d.SelectAggregateRootVersion(ctx, db, tk, source, root)
	return v, convertContextErrors(ctx, err)
}

//
// event
//

func (d errorConverter) IncrementNextSequenceNumber(
	ctx context.Context,
	tx *sql.Tx,
	tk string,
	n uint64,
) (event.SequenceNumber, error) {
	prev, err := d.d.IncrementNextSequenceNumber(ctx, tx, tk, n)
	return prev, convertContextErrors(ctx, err)
}

func (d errorConverter) InsertEvent(
	ctx context.Context,
	tx *sql.Tx,
	tk string,
	ev event.CommittedEvent,
) error {
	err := d.d.InsertEvent(ctx, tx, tk, ev)
	return convertContextErrors(ctx, err)
}

func (d errorConverter) SelectNextSequenceNumber(
	ctx context.Context,
	db sqlx.DB,
	tk string,
) (event.SequenceNumber, error) {
	next, err := d.d.SelectNextSequenceNumber(ctx, db, tk)
	return next, convertContextErrors(ctx, err)
}

func (d errorConverter) SelectEvents(
	ctx context.Context,
	db sqlx.DB,
	tk string,
	n event.SequenceNumber,
	limit int,
) ([]event.CommittedEvent, error) {
	events, err := d.d.SelectEvents(ctx, db, tk, n, limit)
	return events, convertContextErrors(ctx, err)
}

func (d errorConverter) SelectAggregateEvents(
	ctx context.Context,
	db sqlx.DB,
	tk string,
	source event.EventSourceID,
	root uuid.UUID,
) ([]event.CommittedEvent, error) {
	events, err := d.d.SelectAggregateEvents(ctx, db, tk, source, root)
	return events, convertContextErrors(ctx, err)
}

//
// stream
//

func (d errorConverter) IncrementNextStreamPosition(
	ctx context.Context,
	tx *sql.Tx,
	tk, streamID string,
) (uint64, error) {
	prev, err := d.d.IncrementNextStreamPosition(ctx, tx, tk, streamID)
	return prev, convertContextErrors(ctx, err)
}

func (d errorConverter) InsertStreamEvent(
	ctx context.Context,
	tx *sql.Tx,
	tk string,
	ev persistence.StreamEvent,
) error {
	err := d.d.InsertStreamEvent(ctx, tx, tk, ev)
	return convertContextErrors(ctx, err)
}

func (d errorConverter) SelectNextStreamPosition(
	ctx context.Context,
	db sqlx.DB,
	tk, streamID string,
) (uint64, error) {
	next, err := d.d.SelectNextStreamPosition(ctx, db, tk, streamID)
	return next, convertContextErrors(ctx, err)
}

func (d errorConverter) SelectStreamEvent(
	ctx context.Context,
	db sqlx.DB,
	tk, streamID string,
	pos uint64,
) (persistence.StreamEvent, bool, error) {
	ev, ok, err := d.d.SelectStreamEvent(ctx, db, tk, streamID, pos)
	return ev, ok, convertContextErrors(ctx, err)
}

//
// stream processor
//

func (d errorConverter) UpsertStreamProcessorState(
	ctx context.Context,
	tx *sql.Tx,
	tk string,
	s persistence.StreamProcessorState,
) error {
	err := d.d.UpsertStreamProcessorState(ctx, tx, tk, s)
	return convertContextErrors(ctx, err)
}

func (d errorConverter) DeleteStreamProcessorState(
	ctx context.Context,
	tx *sql.Tx,
	tk, key string,
) error {
	err := d.d.DeleteStreamProcessorState(ctx, tx, tk, key)
	return convertContextErrors(ctx, err)
}

func (d errorConverter) SelectStreamProcessorState(
	ctx context.Context,
	db sqlx.DB,
	tk, key string,
) (persistence.StreamProcessorState, bool, error) {
	s, ok, err := d.d.SelectStreamProcessorState(ctx, db, tk, key)
	return s, ok, convertContextErrors(ctx, err)
}
