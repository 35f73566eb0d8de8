package streamprocessor

import (
	"context"
	"fmt"
	"time"

	"github.com/dogmatiq/eventcore/event"
	"github.com/dogmatiq/eventcore/stream"
)

// Handler processes the events delivered by a stream processor.
//
// Events may be delivered more than once, so handlers must be idempotent.
type Handler interface {
	// Process processes a single event.
	//
	// pos is the event's position within the stream. If the event is being
	// retried, retryReason is the reason given for the previous failure and
	// retryCount is the number of failed attempts so far.
	//
	// ctx is canceled when the processor is stopping.
	Process(
		ctx context.Context,
		ev event.CommittedEvent,
		partition stream.PartitionID,
		pos stream.Position,
		retryReason string,
		retryCount uint64,
		ec event.ExecutionContext,
	) Result
}

// HandlerFunc is an adaptor that allows a function to be used as a Handler.
type HandlerFunc func(
	ctx context.Context,
	ev event.CommittedEvent,
	partition stream.PartitionID,
	pos stream.Position,
	retryReason string,
	retryCount uint64,
	ec event.ExecutionContext,
) Result

// Process calls fn.
func (fn HandlerFunc) Process(
	ctx context.Context,
	ev event.CommittedEvent,
	partition stream.PartitionID,
	pos stream.Position,
	retryReason string,
	retryCount uint64,
	ec event.ExecutionContext,
) Result {
	return fn(ctx, ev, partition, pos, retryReason, retryCount, ec)
}

// FilterHandler is a Handler that materializes a persisted stream using a
// stream.Filter.
//
// It should consume the event log without partitioning, so that events are
// appended to the persisted stream in log order.
type FilterHandler struct {
	// Filter appends matching events to the persisted stream.
	Filter *stream.Filter

	// RetryTimeout is the delay before retrying an event that could not be
	// appended. If it is zero, DefaultInfrastructureFailureBackoff is used.
	RetryTimeout time.Duration
}

// Process appends ev to the persisted stream if it matches the filter.
func (h *FilterHandler) Process(
	ctx context.Context,
	ev event.CommittedEvent,
	partition stream.PartitionID,
	pos stream.Position,
	_ string,
	_ uint64,
	_ event.ExecutionContext,
) Result {
	if err := h.Filter.Append(
		ctx,
		stream.Event{
			Position:  pos,
			Partition: partition,
			Event:     ev,
		},
	); err != nil {
		d := h.RetryTimeout
		if d == 0 {
			d = DefaultInfrastructureFailureBackoff
		}

		return Failed(
			fmt.Sprintf("unable to append event %d to the '%s' stream: %s", ev.SequenceNumber, h.Filter.Definition.ID, err),
			true,
			d,
		)
	}

	return Succeeded()
}
