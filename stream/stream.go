// Package stream defines ordered views of a tenant's committed events that are
// read by stream processors.
package stream

import (
	"context"
	"fmt"

	"github.com/dogmatiq/eventcore/event"
)

// ID uniquely identifies a stream within a tenant.
type ID string

const (
	// EventLog is the ID of the stream that contains every event in the
	// tenant's event log.
	EventLog ID = "eventcore.event-log"

	// PublicEvents is the ID of the stream that contains only public events.
	PublicEvents ID = "eventcore.public-events"
)

// Position is the offset of an event within a stream.
//
// Positions are numbered independently of the event log's sequence numbers,
// except in the EventLog stream where they are equal.
type Position uint64

// PartitionID identifies a partition of a stream.
//
// Events within the same partition are processed in order. Events in different
// partitions may be processed concurrently.
type PartitionID string

// NotSet is the partition of every event in an unpartitioned stream.
const NotSet PartitionID = ""

// Event is an event at a specific position within a stream.
type Event struct {
	Position  Position
	Partition PartitionID
	Event     event.CommittedEvent
}

// Stream is an interface for reading the events in a stream.
type Stream interface {
	// ID returns the stream's ID.
	ID() ID

	// FetchAt returns the event at the given position.
	//
	// It returns a NotFoundAtPositionError if pos is at or beyond the head of
	// the stream.
	FetchAt(ctx context.Context, pos Position) (Event, error)

	// Head returns the next "unused" position of the stream.
	Head(ctx context.Context) (Position, error)

	// Changed returns a channel that is closed the next time an event is
	// appended to the stream.
	Changed() <-chan struct{}
}

// NotFoundAtPositionError is returned by Stream.FetchAt() if there is no event
// at the requested position.
type NotFoundAtPositionError struct {
	StreamID ID
	Position Position
}

func (e NotFoundAtPositionError) Error() string {
	return fmt.Sprintf(
		"there is no event at position %d of the '%s' stream",
		e.Position,
		e.StreamID,
	)
}
