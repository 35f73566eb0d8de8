package persistence

import (
	"context"
	"time"
)

// StreamProcessorState is the persisted progress of a stream processor.
type StreamProcessorState struct {
	// Key uniquely identifies the stream processor within the tenant.
	Key string

	// Position is the position of the next event the processor needs to
	// process.
	Position uint64

	// FailingPartitions is the set of partitions that are currently failing.
	FailingPartitions []FailingPartition

	// LastSuccessfullyProcessed is the time at which the processor last
	// processed an event successfully.
	LastSuccessfullyProcessed time.Time
}

// FailingPartition is the persisted state of a single failing partition.
type FailingPartition struct {
	Partition          string
	Position           uint64
	RetryTime          time.Time
	Reason             string
	ProcessingAttempts uint64
	LastFailed         time.Time
}

// StreamProcessorRepository is an interface for reading stream processor
// state.
type StreamProcessorRepository interface {
	// LoadStreamProcessorState loads the state of a stream processor.
	//
	// It returns false if the processor has no persisted state.
	LoadStreamProcessorState(
		ctx context.Context,
		key string,
	) (StreamProcessorState, bool, error)
}

// SaveStreamProcessorState is a persistence operation that creates or replaces
// the state of a stream processor.
type SaveStreamProcessorState struct {
	State StreamProcessorState
}

// AcceptVisitor calls v.VisitSaveStreamProcessorState().
func (op SaveStreamProcessorState) AcceptVisitor(ctx context.Context, v OperationVisitor) error {
	return v.VisitSaveStreamProcessorState(ctx, op)
}

func (op SaveStreamProcessorState) entityKey() entityKey {
	return entityKey{"stream processor", op.State.Key}
}

// RemoveStreamProcessorState is a persistence operation that removes the state
// of a stream processor.
//
// Removing state that does not exist is not an error.
type RemoveStreamProcessorState struct {
	Key string
}

// AcceptVisitor calls v.VisitRemoveStreamProcessorState().
func (op RemoveStreamProcessorState) AcceptVisitor(ctx context.Context, v OperationVisitor) error {
	return v.VisitRemoveStreamProcessorState(ctx, op)
}

func (op RemoveStreamProcessorState) entityKey() entityKey {
	return entityKey{"stream processor", op.Key}
}
