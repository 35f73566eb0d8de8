package sqlpersistence

import (
	"context"
	"database/sql"

	"github.com/dogmatiq/eventcore/persistence"
)

// NextStreamPosition returns the next "unused" position of a stream.
func (ds *dataStore) NextStreamPosition(ctx context.Context, streamID string) (uint64, error) {
	var n uint64

	err := ds.withDB(func(db *sql.DB) (err error) {
		n, err = ds.driver.SelectNextStreamPosition(ctx, db, ds.tenantKey, streamID)
		return err
	})

	return n, err
}

// LoadStreamEvent loads the event at a specific position of a stream.
func (ds *dataStore) LoadStreamEvent(
	ctx context.Context,
	streamID string,
	pos uint64,
) (persistence.StreamEvent, bool, error) {
	var (
		ev persistence.StreamEvent
		ok bool
	)

	err := ds.withDB(func(db *sql.DB) (err error) {
		ev, ok, err = ds.driver.SelectStreamEvent(ctx, db, ds.tenantKey, streamID, pos)
		return err
	})

	return ev, ok, err
}

// VisitAppendStreamEvent applies the changes in an "AppendStreamEvent"
// operation to the database.
func (c *committer) VisitAppendStreamEvent(
	ctx context.Context,
	op persistence.AppendStreamEvent,
) error {
	next, err := c.driver.SelectNextStreamPosition(ctx, c.tx, c.tenantKey, op.StreamID)
	if err != nil {
		return err
	}

	if next > 0 {
		last, ok, err := c.driver.SelectStreamEvent(ctx, c.tx, c.tenantKey, op.StreamID, next-1)
		if err != nil {
			return err
		}

		if ok && last.SequenceNumber >= op.SequenceNumber {
			return nil
		}
	}

	pos, err := c.driver.IncrementNextStreamPosition(ctx, c.tx, c.tenantKey, op.StreamID)
	if err != nil {
		return err
	}

	return c.driver.InsertStreamEvent(
		ctx,
		c.tx,
		c.tenantKey,
		persistence.StreamEvent{
			StreamID:       op.StreamID,
			Position:       pos,
			Partition:      op.Partition,
			SequenceNumber: op.SequenceNumber,
		},
	)
}
