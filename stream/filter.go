package stream

import (
	"context"

	"github.com/dogmatiq/eventcore/persistence"
)

// Filter materializes a persisted stream by appending the events that match
// its definition.
//
// The events given to Append() must be supplied in event log order. Events
// that have already been appended are ignored, so Append() may safely be
// called again with the same event.
type Filter struct {
	// Definition describes the stream to materialize.
	Definition Definition

	// Resolver determines the partition of each event. If it is nil,
	// EventSourceResolver is used.
	Resolver Resolver

	// Persister is used to append events to the stream.
	Persister persistence.Persister

	// Notifier is notified when an event is appended to the stream. It may be
	// nil.
	Notifier *Notifier
}

// Append appends ev to the stream if it matches the stream's definition.
func (f *Filter) Append(ctx context.Context, ev Event) error {
	if !f.Definition.Matches(ev.Event) {
		return nil
	}

	if _, err := f.Persister.Persist(
		ctx,
		persistence.Batch{
			persistence.AppendStreamEvent{
				StreamID:       string(f.Definition.ID),
				Partition:      string(resolve(f.Resolver, ev.Event, f.Definition)),
				SequenceNumber: ev.Event.SequenceNumber,
			},
		},
	); err != nil {
		return err
	}

	if f.Notifier != nil {
		f.Notifier.Notify()
	}

	return nil
}
