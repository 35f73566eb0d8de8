package stream

import (
	"context"

	"github.com/dogmatiq/eventcore/event"
	"github.com/dogmatiq/eventcore/persistence"
)

// EventLogStream is a Stream that reads directly from a tenant's event log.
//
// Stream positions are equal to event sequence numbers. The partition of each
// event is resolved when it is read.
type EventLogStream struct {
	// Repository is the repository that contains the events.
	Repository persistence.EventRepository

	// Definition describes the stream. If it is the zero value,
	// EventLogDefinition is used.
	Definition Definition

	// Resolver determines the partition of each event. If it is nil,
	// EventSourceResolver is used.
	Resolver Resolver

	// Notifier is notified whenever events are committed to the log.
	Notifier *Notifier
}

// ID returns the stream's ID.
func (s *EventLogStream) ID() ID {
	return s.definition().ID
}

// FetchAt returns the event at the given position.
func (s *EventLogStream) FetchAt(ctx context.Context, pos Position) (Event, error) {
	ev, ok, err := s.Repository.LoadEvent(ctx, event.SequenceNumber(pos))
	if err != nil {
		return Event{}, err
	}

	if !ok {
		return Event{}, NotFoundAtPositionError{
			StreamID: s.ID(),
			Position: pos,
		}
	}

	return Event{
		Position:  pos,
		Partition: resolve(s.Resolver, ev, s.definition()),
		Event:     ev,
	}, nil
}

// Head returns the next "unused" position of the stream.
func (s *EventLogStream) Head(ctx context.Context) (Position, error) {
	n, err := s.Repository.NextSequenceNumber(ctx)
	return Position(n), err
}

// Changed returns a channel that is closed the next time an event is appended
// to the stream.
func (s *EventLogStream) Changed() <-chan struct{} {
	return s.Notifier.Changed()
}

func (s *EventLogStream) definition() Definition {
	if s.Definition.ID == "" {
		return EventLogDefinition
	}

	return s.Definition
}
