package streamprocessor

import (
	"context"
	"fmt"
	"sort"

	"github.com/dogmatiq/eventcore/internal/x/syncx"
	"github.com/dogmatiq/eventcore/persistence"
	"github.com/dogmatiq/eventcore/stream"
)

// StateRepository stores the state of stream processors.
type StateRepository interface {
	// Persist creates or replaces the state of the processor id.
	Persist(ctx context.Context, id ID, s State) error

	// TryGet loads the state of the processor id.
	//
	// It returns false if the processor has no persisted state.
	TryGet(ctx context.Context, id ID) (State, bool, error)

	// Remove removes the state of the processor id, if any.
	Remove(ctx context.Context, id ID) error
}

// PersistedStateRepository is a StateRepository that stores processor state in
// a tenant's data-store.
type PersistedStateRepository struct {
	// DataStore is the tenant's data-store.
	DataStore interface {
		persistence.StreamProcessorRepository
		persistence.Persister
	}

	mutexes syncx.MutexNamespace
}

// Persist creates or replaces the state of the processor id.
func (r *PersistedStateRepository) Persist(ctx context.Context, id ID, s State) error {
	unlock, err := r.mutexes.Lock(ctx, id.Key())
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := r.DataStore.Persist(
		ctx,
		persistence.Batch{
			persistence.SaveStreamProcessorState{
				State: marshalState(id, s),
			},
		},
	); err != nil {
		return fmt.Errorf("unable to persist state of the '%s' stream processor: %w", id, err)
	}

	return nil
}

// TryGet loads the state of the processor id.
func (r *PersistedStateRepository) TryGet(ctx context.Context, id ID) (State, bool, error) {
	unlock, err := r.mutexes.Lock(ctx, id.Key())
	if err != nil {
		return State{}, false, err
	}
	defer unlock()

	ps, ok, err := r.DataStore.LoadStreamProcessorState(ctx, id.Key())
	if err != nil {
		return State{}, false, fmt.Errorf("unable to load state of the '%s' stream processor: %w", id, err)
	}

	if !ok {
		return State{}, false, nil
	}

	return unmarshalState(ps), true, nil
}

// Remove removes the state of the processor id, if any.
func (r *PersistedStateRepository) Remove(ctx context.Context, id ID) error {
	unlock, err := r.mutexes.Lock(ctx, id.Key())
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := r.DataStore.Persist(
		ctx,
		persistence.Batch{
			persistence.RemoveStreamProcessorState{
				Key: id.Key(),
			},
		},
	); err != nil {
		return fmt.Errorf("unable to remove state of the '%s' stream processor: %w", id, err)
	}

	return nil
}

func marshalState(id ID, s State) persistence.StreamProcessorState {
	ps := persistence.StreamProcessorState{
		Key:                       id.Key(),
		Position:                  uint64(s.Position),
		LastSuccessfullyProcessed: s.LastSuccessfullyProcessed,
	}

	for pid, p := range s.FailingPartitions {
		ps.FailingPartitions = append(
			ps.FailingPartitions,
			persistence.FailingPartition{
				Partition:          string(pid),
				Position:           uint64(p.Position),
				RetryTime:          p.RetryTime,
				Reason:             p.Reason,
				ProcessingAttempts: p.ProcessingAttempts,
				LastFailed:         p.LastFailed,
			},
		)
	}

	sort.Slice(
		ps.FailingPartitions,
		func(i, j int) bool {
			return ps.FailingPartitions[i].Partition < ps.FailingPartitions[j].Partition
		},
	)

	return ps
}

func unmarshalState(ps persistence.StreamProcessorState) State {
	s := State{
		Position:                  stream.Position(ps.Position),
		LastSuccessfullyProcessed: ps.LastSuccessfullyProcessed,
	}

	if len(ps.FailingPartitions) > 0 {
		s.FailingPartitions = make(FailingPartitions, len(ps.FailingPartitions))

		for _, p := range ps.FailingPartitions {
			s.FailingPartitions[stream.PartitionID(p.Partition)] = FailingPartition{
				Position:           stream.Position(p.Position),
				RetryTime:          p.RetryTime,
				Reason:             p.Reason,
				ProcessingAttempts: p.ProcessingAttempts,
				LastFailed:         p.LastFailed,
			}
		}
	}

	return s
}
