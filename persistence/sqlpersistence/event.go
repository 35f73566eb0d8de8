package sqlpersistence

import (
	"context"
	"database/sql"

	"github.com/dogmatiq/eventcore/event"
	"github.com/dogmatiq/eventcore/persistence"
	"github.com/google/uuid"
)

// NextSequenceNumber returns the next "unused" sequence number.
func (ds *dataStore) NextSequenceNumber(ctx context.Context) (event.SequenceNumber, error) {
	var n event.SequenceNumber

	err := ds.withDB(func(db *sql.DB) (err error) {
		n, err = ds.driver.SelectNextSequenceNumber(ctx, db, ds.tenantKey)
		return err
	})

	return n, err
}

// LoadEvent loads the event with the given sequence number.
func (ds *dataStore) LoadEvent(
	ctx context.Context,
	n event.SequenceNumber,
) (event.CommittedEvent, bool, error) {
	events, err := ds.LoadEvents(ctx, n, 1)
	if err != nil || len(events) == 0 || events[0].SequenceNumber != n {
		return event.CommittedEvent{}, false, err
	}

	return events[0], true, nil
}

// LoadEvents loads up to limit events, beginning with the event at sequence
// number n.
func (ds *dataStore) LoadEvents(
	ctx context.Context,
	n event.SequenceNumber,
	limit int,
) ([]event.CommittedEvent, error) {
	var events []event.CommittedEvent

	err := ds.withDB(func(db *sql.DB) (err error) {
		events, err = ds.driver.SelectEvents(ctx, db, ds.tenantKey, n, limit)
		return err
	})

	return events, err
}

// LoadAggregateEvents loads all of the events committed by a specific
// aggregate root instance.
func (ds *dataStore) LoadAggregateEvents(
	ctx context.Context,
	source event.EventSourceID,
	root uuid.UUID,
) ([]event.CommittedEvent, error) {
	var events []event.CommittedEvent

	err := ds.withDB(func(db *sql.DB) (err error) {
		events, err = ds.driver.SelectAggregateEvents(ctx, db, ds.tenantKey, source, root)
		return err
	})

	return events, err
}

// VisitAppendEvents applies the changes in an "AppendEvents" operation to the
// database.
func (c *committer) VisitAppendEvents(
	ctx context.Context,
	op persistence.AppendEvents,
) error {
	if len(op.Events) == 0 {
		return nil
	}

	// Reserve the whole range up-front, which locks the counter row until the
	// transaction ends.
	n, err := c.driver.IncrementNextSequenceNumber(
		ctx,
		c.tx,
		c.tenantKey,
		uint64(len(op.Events)),
	)
	if err != nil {
		return err
	}

	for _, ev := range op.Events {
		ev.SequenceNumber = n
		n++

		if err := c.driver.InsertEvent(ctx, c.tx, c.tenantKey, ev); err != nil {
			return err
		}

		c.result.Events = append(c.result.Events, ev)
	}

	return nil
}
