package persistence

import (
	"context"

	"github.com/dogmatiq/eventcore/event"
	"github.com/google/uuid"
)

// EventRepository is an interface for reading committed events.
type EventRepository interface {
	// NextSequenceNumber returns the next "unused" sequence number.
	NextSequenceNumber(ctx context.Context) (event.SequenceNumber, error)

	// LoadEvent loads the event with the given sequence number.
	//
	// It returns false if the event does not exist.
	LoadEvent(
		ctx context.Context,
		n event.SequenceNumber,
	) (event.CommittedEvent, bool, error)

	// LoadEvents loads up to limit events, beginning with the event at
	// sequence number n.
	LoadEvents(
		ctx context.Context,
		n event.SequenceNumber,
		limit int,
	) ([]event.CommittedEvent, error)

	// LoadAggregateEvents loads all of the events committed by a specific
	// aggregate root instance, in the order they were committed.
	LoadAggregateEvents(
		ctx context.Context,
		source event.EventSourceID,
		root uuid.UUID,
	) ([]event.CommittedEvent, error)
}

// AppendEvents is a persistence operation that appends events to the event log.
type AppendEvents struct {
	// Events are the events to append, in order.
	//
	// The SequenceNumber field of each event is ignored. Sequence numbers are
	// allocated contiguously by the data-store and returned in the Result.
	Events []event.CommittedEvent
}

// AcceptVisitor calls v.VisitAppendEvents().
func (op AppendEvents) AcceptVisitor(ctx context.Context, v OperationVisitor) error {
	return v.VisitAppendEvents(ctx, op)
}

func (op AppendEvents) entityKey() entityKey {
	return entityKey{entityType: "event log"}
}
