package event

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNoEvents is returned when a commit is attempted without any events.
var ErrNoEvents = errors.New("at least one event must be provided")

// SequenceNumber is the position of an event within a tenant's event log.
//
// Sequence numbers are assigned by the event log when events are committed.
// The first event in the log has a sequence number of 0.
type SequenceNumber uint64

// EventSourceID identifies the source of an event, typically the ID of the
// entity that the event is "about".
type EventSourceID string

// Artifact identifies a versioned type, such as an event type or an aggregate
// root type.
type Artifact struct {
	ID         uuid.UUID
	Generation uint32
}

// String returns a human-readable representation of the artifact.
func (a Artifact) String() string {
	return fmt.Sprintf("%s@%d", a.ID, a.Generation)
}

// ExecutionContext is the ambient metadata that accompanies every operation.
type ExecutionContext struct {
	Tenant       uuid.UUID
	Correlation  uuid.UUID
	Microservice uuid.UUID
	Environment  string
}

// UncommittedEvent is an event that has not yet been committed to the event
// log.
type UncommittedEvent struct {
	EventSource EventSourceID
	Type        Artifact
	Public      bool
	Content     []byte
}

// UncommittedEvents is an ordered sequence of events to be committed together.
type UncommittedEvents []UncommittedEvent

// AggregateRootVersion is the version of an aggregate root instance.
type AggregateRootVersion uint64

// InitialAggregateRootVersion is the version of an aggregate root that has not
// yet committed any events.
const InitialAggregateRootVersion AggregateRootVersion = 0

// UncommittedAggregateEvents is a set of events produced by a single aggregate
// root instance.
type UncommittedAggregateEvents struct {
	// EventSource is the ID of the aggregate root instance.
	EventSource EventSourceID

	// AggregateRoot is the type of the aggregate root.
	AggregateRoot Artifact

	// ExpectedVersion is the version of the aggregate root instance that the
	// events were produced against.
	ExpectedVersion AggregateRootVersion

	// Events are the events to commit. Each event's EventSource must be empty
	// or equal to the aggregate's event source.
	Events []UncommittedEvent
}

// NextVersion returns the version of the aggregate root once the events are
// committed.
func (e UncommittedAggregateEvents) NextVersion() AggregateRootVersion {
	return e.ExpectedVersion + AggregateRootVersion(len(e.Events))
}

// AggregateMetaData describes the aggregate root that produced a committed
// event.
type AggregateMetaData struct {
	AggregateRoot Artifact

	// Version is the version of the aggregate root instance after this event
	// was applied.
	Version AggregateRootVersion
}

// CommittedEvent is an event that has been committed to the event log.
//
// Committed events are immutable.
type CommittedEvent struct {
	SequenceNumber   SequenceNumber
	Occurred         time.Time
	EventSource      EventSourceID
	ExecutionContext ExecutionContext
	Type             Artifact
	Public           bool
	Content          []byte

	// Aggregate is non-nil if the event was committed by an aggregate root.
	Aggregate *AggregateMetaData
}

// IsAggregateEvent returns true if the event was committed by an aggregate
// root.
func (e CommittedEvent) IsAggregateEvent() bool {
	return e.Aggregate != nil
}
