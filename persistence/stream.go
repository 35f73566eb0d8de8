package persistence

import (
	"context"

	"github.com/dogmatiq/eventcore/event"
)

// StreamEvent is a reference to a committed event at a specific position
// within a persisted stream.
type StreamEvent struct {
	StreamID       string
	Position       uint64
	Partition      string
	SequenceNumber event.SequenceNumber
}

// StreamRepository is an interface for reading persisted streams.
type StreamRepository interface {
	// NextStreamPosition returns the next "unused" position of a stream.
	NextStreamPosition(ctx context.Context, streamID string) (uint64, error)

	// LoadStreamEvent loads the event at a specific position of a stream.
	//
	// It returns false if there is no event at that position.
	LoadStreamEvent(
		ctx context.Context,
		streamID string,
		pos uint64,
	) (StreamEvent, bool, error)
}

// AppendStreamEvent is a persistence operation that appends a reference to a
// committed event to a persisted stream.
//
// The event is placed at the stream's next unused position. Appending is
// idempotent with respect to the event log: if the stream already contains an
// event with a sequence number greater than or equal to SequenceNumber the
// operation has no effect.
type AppendStreamEvent struct {
	StreamID       string
	Partition      string
	SequenceNumber event.SequenceNumber
}

// AcceptVisitor calls v.VisitAppendStreamEvent().
func (op AppendStreamEvent) AcceptVisitor(ctx context.Context, v OperationVisitor) error {
	return v.VisitAppendStreamEvent(ctx, op)
}

func (op AppendStreamEvent) entityKey() entityKey {
	return entityKey{"stream", op.StreamID}
}
