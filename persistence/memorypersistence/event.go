package memorypersistence

import (
	"context"

	"github.com/dogmatiq/eventcore/event"
	"github.com/dogmatiq/eventcore/persistence"
	"github.com/google/uuid"
)

// NextSequenceNumber returns the next "unused" sequence number.
func (ds *dataStore) NextSequenceNumber(ctx context.Context) (event.SequenceNumber, error) {
	var n event.SequenceNumber

	err := ds.view(ctx, func(db *database) {
		n = event.SequenceNumber(len(db.event.events))
	})

	return n, err
}

// LoadEvent loads the event with the given sequence number.
func (ds *dataStore) LoadEvent(
	ctx context.Context,
	n event.SequenceNumber,
) (event.CommittedEvent, bool, error) {
	var (
		ev event.CommittedEvent
		ok bool
	)

	err := ds.view(ctx, func(db *database) {
		if n < event.SequenceNumber(len(db.event.events)) {
			ev = cloneEvent(db.event.events[n])
			ok = true
		}
	})

	return ev, ok, err
}

// LoadEvents loads up to limit events, beginning with the event at sequence
// number n.
func (ds *dataStore) LoadEvents(
	ctx context.Context,
	n event.SequenceNumber,
	limit int,
) ([]event.CommittedEvent, error) {
	var result []event.CommittedEvent

	err := ds.view(ctx, func(db *database) {
		for i := n; i < event.SequenceNumber(len(db.event.events)); i++ {
			if len(result) == limit {
				break
			}

			result = append(result, cloneEvent(db.event.events[i]))
		}
	})

	return result, err
}

// LoadAggregateEvents loads all of the events committed by a specific
// aggregate root instance.
func (ds *dataStore) LoadAggregateEvents(
	ctx context.Context,
	source event.EventSourceID,
	root uuid.UUID,
) ([]event.CommittedEvent, error) {
	var result []event.CommittedEvent

	err := ds.view(ctx, func(db *database) {
		for _, i := range db.event.byAggregate[aggregateKey{source, root}] {
			result = append(result, cloneEvent(db.event.events[i]))
		}
	})

	return result, err
}

// VisitAppendEvents returns an error if an "AppendEvents" operation can not be
// applied to the database.
func (v *validator) VisitAppendEvents(
	context.Context,
	persistence.AppendEvents,
) error {
	return nil
}

// VisitAppendEvents applies the changes in an "AppendEvents" operation to the
// database.
func (c *committer) VisitAppendEvents(
	_ context.Context,
	op persistence.AppendEvents,
) error {
	for _, ev := range op.Events {
		ev = c.db.event.save(ev)
		c.result.Events = append(c.result.Events, cloneEvent(ev))
	}

	return nil
}

// eventDatabase contains event related data.
type eventDatabase struct {
	events      []event.CommittedEvent
	byAggregate map[aggregateKey][]event.SequenceNumber
}

// save appends ev to the database, assigning it the next sequence number.
func (db *eventDatabase) save(ev event.CommittedEvent) event.CommittedEvent {
	ev = cloneEvent(ev)
	ev.SequenceNumber = event.SequenceNumber(len(db.events))
	db.events = append(db.events, ev)

	if ev.Aggregate != nil {
		if db.byAggregate == nil {
			db.byAggregate = map[aggregateKey][]event.SequenceNumber{}
		}

		k := aggregateKey{ev.EventSource, ev.Aggregate.AggregateRoot.ID}
		db.byAggregate[k] = append(db.byAggregate[k], ev.SequenceNumber)
	}

	return ev
}

// cloneEvent returns a deep copy of ev, so that callers can not manipulate the
// data held in the database.
func cloneEvent(ev event.CommittedEvent) event.CommittedEvent {
	if ev.Content != nil {
		ev.Content = append([]byte(nil), ev.Content...)
	}

	if ev.Aggregate != nil {
		md := *ev.Aggregate
		ev.Aggregate = &md
	}

	return ev
}
