package memorypersistence

import (
	"context"

	"github.com/dogmatiq/eventcore/persistence"
)

// NextStreamPosition returns the next "unused" position of a stream.
func (ds *dataStore) NextStreamPosition(ctx context.Context, streamID string) (uint64, error) {
	var n uint64

	err := ds.view(ctx, func(db *database) {
		n = uint64(len(db.stream.events[streamID]))
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

	err := ds.view(ctx, func(db *database) {
		events := db.stream.events[streamID]
		if pos < uint64(len(events)) {
			ev = events[pos]
			ok = true
		}
	})

	return ev, ok, err
}

// VisitAppendStreamEvent returns an error if an "AppendStreamEvent" operation
// can not be applied to the database.
func (v *validator) VisitAppendStreamEvent(
	context.Context,
	persistence.AppendStreamEvent,
) error {
	return nil
}

// VisitAppendStreamEvent applies the changes in an "AppendStreamEvent"
// operation to the database.
func (c *committer) VisitAppendStreamEvent(
	_ context.Context,
	op persistence.AppendStreamEvent,
) error {
	events := c.db.stream.events[op.StreamID]

	if n := len(events); n > 0 && events[n-1].SequenceNumber >= op.SequenceNumber {
		return nil
	}

	if c.db.stream.events == nil {
		c.db.stream.events = map[string][]persistence.StreamEvent{}
	}

	c.db.stream.events[op.StreamID] = append(
		events,
		persistence.StreamEvent{
			StreamID:       op.StreamID,
			Position:       uint64(len(events)),
			Partition:      op.Partition,
			SequenceNumber: op.SequenceNumber,
		},
	)

	return nil
}

// streamDatabase contains persisted stream data.
type streamDatabase struct {
	events map[string][]persistence.StreamEvent
}
