package aggregate

import (
	"fmt"

	"github.com/dogmatiq/eventcore/event"
	"github.com/google/uuid"
)

// ValidationError is returned when a version increment is malformed.
type ValidationError struct {
	Expected event.AggregateRootVersion
	Next     event.AggregateRootVersion
}

func (e ValidationError) Error() string {
	return fmt.Sprintf(
		"next version (%d) must be greater than the expected version (%d)",
		e.Next,
		e.Expected,
	)
}

// ConcurrencyConflictError is returned when the version of an aggregate root
// instance is not the version that the caller expected.
type ConcurrencyConflictError struct {
	EventSource   event.EventSourceID
	AggregateRoot uuid.UUID

	// Current is the version of the instance at the time the conflict was
	// detected.
	Current event.AggregateRootVersion

	// Expected is the version that the caller expected.
	Expected event.AggregateRootVersion
}

func (e ConcurrencyConflictError) Error() string {
	return fmt.Sprintf(
		"concurrency conflict for aggregate root %s (%s): expected version %d, current version is %d",
		e.EventSource,
		e.AggregateRoot,
		e.Expected,
		e.Current,
	)
}
