package providertest

import (
	"context"
	"fmt"
	"time"

	"github.com/dogmatiq/eventcore/event"
	"github.com/dogmatiq/eventcore/persistence"
	"github.com/google/uuid"
	"github.com/onsi/gomega"
)

var (
	eventTypeA = event.Artifact{
		ID:         uuid.MustParse("4b1f1a2e-8b51-4c5e-9b8e-1b2c3d4e5f60"),
		Generation: 1,
	}

	aggregateRootType = event.Artifact{
		ID:         uuid.MustParse("9a7c0d4e-2f6b-4d8a-8e1c-0f2b3a4c5d6e"),
		Generation: 2,
	}

	aggregateRootID = aggregateRootType.ID

	executionContext = event.ExecutionContext{
		Tenant:       uuid.MustParse("1c6d8e2a-3b4f-4a5c-9d7e-8f9a0b1c2d3e"),
		Correlation:  uuid.MustParse("7e8f9a0b-1c2d-4e3f-8a4b-5c6d7e8f9a0b"),
		Microservice: uuid.MustParse("2d3e4f5a-6b7c-4d8e-9f0a-1b2c3d4e5f6a"),
		Environment:  "<environment>",
	}

	occurred = time.Date(2023, 4, 5, 6, 7, 8, 123456789, time.UTC)
)

// newEvent returns a non-aggregate event with content derived from i.
func newEvent(source event.EventSourceID, i int) event.CommittedEvent {
	return event.CommittedEvent{
		Occurred:         occurred,
		EventSource:      source,
		ExecutionContext: executionContext,
		Type:             eventTypeA,
		Public:           i%2 == 0,
		Content:          []byte(fmt.Sprintf("<content-%d>", i)),
	}
}

// newAggregateEvent returns an event produced by an aggregate root at version
// v.
func newAggregateEvent(
	source event.EventSourceID,
	v event.AggregateRootVersion,
) event.CommittedEvent {
	ev := newEvent(source, int(v))
	ev.Aggregate = &event.AggregateMetaData{
		AggregateRoot: aggregateRootType,
		Version:       v,
	}
	return ev
}

// withSequenceNumbers returns a copy of events with sequence numbers assigned
// contiguously, beginning with n.
func withSequenceNumbers(
	n event.SequenceNumber,
	events ...event.CommittedEvent,
) []event.CommittedEvent {
	result := make([]event.CommittedEvent, len(events))

	for i, ev := range events {
		ev.SequenceNumber = n + event.SequenceNumber(i)
		result[i] = ev
	}

	return result
}

// persist persists a batch of operations and asserts that there was no
// failure.
func persist(
	ctx context.Context,
	p persistence.Persister,
	operations ...persistence.Operation,
) persistence.Result {
	res, err := p.Persist(ctx, operations)
	gomega.ExpectWithOffset(1, err).ShouldNot(gomega.HaveOccurred())
	return res
}

// loadAggregateRootVersion loads the version of the test aggregate root
// instance with the given event source.
func loadAggregateRootVersion(
	ctx context.Context,
	r persistence.AggregateRepository,
	source event.EventSourceID,
) event.AggregateRootVersion {
	v, err := r.LoadAggregateRootVersion(ctx, source, aggregateRootID)
	gomega.ExpectWithOffset(1, err).ShouldNot(gomega.HaveOccurred())
	return v
}

// loadStreamEvents loads all events in a stream.
func loadStreamEvents(
	ctx context.Context,
	r persistence.StreamRepository,
	streamID string,
) []persistence.StreamEvent {
	next, err := r.NextStreamPosition(ctx, streamID)
	gomega.ExpectWithOffset(1, err).ShouldNot(gomega.HaveOccurred())

	var result []persistence.StreamEvent

	for pos := uint64(0); pos < next; pos++ {
		ev, ok, err := r.LoadStreamEvent(ctx, streamID, pos)
		gomega.ExpectWithOffset(1, err).ShouldNot(gomega.HaveOccurred())
		gomega.ExpectWithOffset(1, ok).To(gomega.BeTrue())
		result = append(result, ev)
	}

	return result
}
