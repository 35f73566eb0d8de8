// Package eventstore commits events to a tenant's event log.
package eventstore

import (
	"context"
	"fmt"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/eventcore/aggregate"
	"github.com/dogmatiq/eventcore/event"
	"github.com/dogmatiq/eventcore/persistence"
	"github.com/dogmatiq/eventcore/stream"
	"github.com/google/uuid"
)

// Repository is the subset of persistence.DataStore used by the store.
type Repository interface {
	persistence.EventRepository
	persistence.AggregateRepository
	persistence.Persister
}

// Store commits events to a tenant's event log and reads them back.
type Store struct {
	// Repository is the tenant's data-store.
	Repository Repository

	// Notifier is notified after events are committed. It may be nil.
	Notifier *stream.Notifier

	// Now returns the current time. If it is nil, time.Now() is used.
	Now func() time.Time

	// Logger is the target for log messages about committed events.
	// If it is nil, logging.DefaultLogger is used.
	Logger logging.Logger
}

// Commit commits events that were not produced by an aggregate.
//
// The events are assigned contiguous sequence numbers in the order given.
func (s *Store) Commit(
	ctx context.Context,
	events event.UncommittedEvents,
	ec event.ExecutionContext,
) ([]event.CommittedEvent, error) {
	if err := events.Validate(); err != nil {
		return nil, err
	}

	op := s.appendOperation(events, ec, nil)

	res, err := s.Repository.Persist(ctx, persistence.Batch{op})
	if err != nil {
		return nil, fmt.Errorf("unable to commit events: %w", err)
	}

	s.committed(res.Events)

	return res.Events, nil
}

// CommitAggregateEvents commits events produced by an aggregate root
// instance.
//
// The aggregate root's version is incremented in the same atomic operation.
// It returns an aggregate.ConcurrencyConflictError if the instance's version
// is not e.ExpectedVersion.
func (s *Store) CommitAggregateEvents(
	ctx context.Context,
	e event.UncommittedAggregateEvents,
	ec event.ExecutionContext,
) ([]event.CommittedEvent, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	inc, err := aggregate.NewIncrementOperation(
		e.EventSource,
		e.AggregateRoot.ID,
		e.ExpectedVersion,
		e.NextVersion(),
	)
	if err != nil {
		return nil, err
	}

	events := make(event.UncommittedEvents, len(e.Events))
	for i, ev := range e.Events {
		ev.EventSource = e.EventSource
		events[i] = ev
	}

	op := s.appendOperation(events, ec, &e)

	res, err := s.Repository.Persist(ctx, persistence.Batch{inc, op})
	if err != nil {
		return nil, aggregate.ResolveConflict(ctx, s.Repository, err)
	}

	s.committed(res.Events)

	return res.Events, nil
}

// FetchForAggregate returns the events committed by an aggregate root
// instance, in the order they were committed.
func (s *Store) FetchForAggregate(
	ctx context.Context,
	source event.EventSourceID,
	root uuid.UUID,
) ([]event.CommittedEvent, error) {
	return s.Repository.LoadAggregateEvents(ctx, source, root)
}

// FetchAt returns the event with the given sequence number.
//
// It returns false if no such event has been committed.
func (s *Store) FetchAt(
	ctx context.Context,
	n event.SequenceNumber,
) (event.CommittedEvent, bool, error) {
	return s.Repository.LoadEvent(ctx, n)
}

// NextSequenceNumber returns the sequence number that the next committed event
// will be assigned.
func (s *Store) NextSequenceNumber(ctx context.Context) (event.SequenceNumber, error) {
	return s.Repository.NextSequenceNumber(ctx)
}

// appendOperation returns the operation that appends events to the log.
//
// If agg is non-nil the events are attributed to that aggregate root, with
// versions following agg.ExpectedVersion.
func (s *Store) appendOperation(
	events event.UncommittedEvents,
	ec event.ExecutionContext,
	agg *event.UncommittedAggregateEvents,
) persistence.AppendEvents {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	occurred := now()
	op := persistence.AppendEvents{
		Events: make([]event.CommittedEvent, len(events)),
	}

	for i, ev := range events {
		c := event.CommittedEvent{
			Occurred:         occurred,
			EventSource:      ev.EventSource,
			ExecutionContext: ec,
			Type:             ev.Type,
			Public:           ev.Public,
			Content:          ev.Content,
		}

		if agg != nil {
			c.Aggregate = &event.AggregateMetaData{
				AggregateRoot: agg.AggregateRoot,
				Version:       agg.ExpectedVersion + event.AggregateRootVersion(i+1),
			}
		}

		op.Events[i] = c
	}

	return op
}

// committed notifies waiters that events were committed.
func (s *Store) committed(events []event.CommittedEvent) {
	first := events[0].SequenceNumber
	last := events[len(events)-1].SequenceNumber

	logging.Debug(
		s.Logger,
		"committed %d event(s), sequence numbers %d to %d",
		len(events),
		first,
		last,
	)

	if s.Notifier != nil {
		s.Notifier.Notify()
	}
}
