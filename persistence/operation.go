package persistence

import (
	"context"
	"fmt"
)

// Operation is a persistence operation that can be performed as part of an
// atomic batch.
type Operation interface {
	// AcceptVisitor calls the appropriate method on v for this operation type.
	AcceptVisitor(ctx context.Context, v OperationVisitor) error

	// entityKey returns an identifier for the entity that the operation
	// affects.
	entityKey() entityKey
}

// OperationVisitor visits persistence operations.
type OperationVisitor interface {
	VisitAppendEvents(context.Context, AppendEvents) error
	VisitIncrementAggregateRootVersion(context.Context, IncrementAggregateRootVersion) error
	VisitAppendStreamEvent(context.Context, AppendStreamEvent) error
	VisitSaveStreamProcessorState(context.Context, SaveStreamProcessorState) error
	VisitRemoveStreamProcessorState(context.Context, RemoveStreamProcessorState) error
}

// entityKey identifies the entity affected by an operation.
type entityKey struct {
	entityType string
	id         string
}

func (k entityKey) String() string {
	if k.id == "" {
		return k.entityType
	}

	return fmt.Sprintf("%s %s", k.entityType, k.id)
}
