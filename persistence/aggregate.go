package persistence

import (
	"context"

	"github.com/dogmatiq/eventcore/event"
	"github.com/google/uuid"
)

// AggregateRepository is an interface for reading aggregate root versions.
type AggregateRepository interface {
	// LoadAggregateRootVersion loads the current version of an aggregate root
	// instance.
	//
	// It returns event.InitialAggregateRootVersion if the instance has never
	// committed any events.
	LoadAggregateRootVersion(
		ctx context.Context,
		source event.EventSourceID,
		root uuid.UUID,
	) (event.AggregateRootVersion, error)
}

// IncrementAggregateRootVersion is a persistence operation that increments the
// version of an aggregate root instance.
type IncrementAggregateRootVersion struct {
	EventSource   event.EventSourceID
	AggregateRoot uuid.UUID

	// ExpectedVersion must be the version of the instance as currently
	// persisted, otherwise an optimistic concurrency conflict occurs and the
	// entire batch of operations is rejected.
	//
	// If it is event.InitialAggregateRootVersion the version record is created,
	// which conflicts if a record already exists.
	ExpectedVersion event.AggregateRootVersion

	// NextVersion is the version to store. It must be greater than
	// ExpectedVersion.
	NextVersion event.AggregateRootVersion
}

// AcceptVisitor calls v.VisitIncrementAggregateRootVersion().
func (op IncrementAggregateRootVersion) AcceptVisitor(ctx context.Context, v OperationVisitor) error {
	return v.VisitIncrementAggregateRootVersion(ctx, op)
}

func (op IncrementAggregateRootVersion) entityKey() entityKey {
	return entityKey{
		"aggregate",
		op.AggregateRoot.String() + "/" + string(op.EventSource),
	}
}
