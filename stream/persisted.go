package stream

import (
	"context"
	"fmt"

	"github.com/dogmatiq/eventcore/persistence"
)

// Repository is the subset of persistence.DataStore used to read persisted
// streams.
type Repository interface {
	persistence.EventRepository
	persistence.StreamRepository
}

// PersistedStream is a Stream whose events are materialized by a Filter.
//
// Positions are contiguous from zero within the stream. The partition of each
// event is stored when the event is appended.
type PersistedStream struct {
	// StreamID is the ID of the stream.
	StreamID ID

	// Repository is the repository that contains the stream and the events it
	// refers to.
	Repository Repository

	// Notifier is notified whenever events are appended to the stream.
	Notifier *Notifier
}

// ID returns the stream's ID.
func (s *PersistedStream) ID() ID {
	return s.StreamID
}

// FetchAt returns the event at the given position.
func (s *PersistedStream) FetchAt(ctx context.Context, pos Position) (Event, error) {
	se, ok, err := s.Repository.LoadStreamEvent(ctx, string(s.StreamID), uint64(pos))
	if err != nil {
		return Event{}, err
	}

	if !ok {
		return Event{}, NotFoundAtPositionError{
			StreamID: s.StreamID,
			Position: pos,
		}
	}

	ev, ok, err := s.Repository.LoadEvent(ctx, se.SequenceNumber)
	if err != nil {
		return Event{}, err
	}

	if !ok {
		return Event{}, fmt.Errorf(
			"position %d of the '%s' stream refers to event %d, which does not exist",
			pos,
			s.StreamID,
			se.SequenceNumber,
		)
	}

	return Event{
		Position:  pos,
		Partition: PartitionID(se.Partition),
		Event:     ev,
	}, nil
}

// Head returns the next "unused" position of the stream.
func (s *PersistedStream) Head(ctx context.Context) (Position, error) {
	n, err := s.Repository.NextStreamPosition(ctx, string(s.StreamID))
	return Position(n), err
}

// Changed returns a channel that is closed the next time an event is appended
// to the stream.
func (s *PersistedStream) Changed() <-chan struct{} {
	return s.Notifier.Changed()
}
