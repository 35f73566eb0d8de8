package memorypersistence

import (
	"context"

	"github.com/dogmatiq/eventcore/persistence"
)

// LoadStreamProcessorState loads the state of a stream processor.
func (ds *dataStore) LoadStreamProcessorState(
	ctx context.Context,
	key string,
) (persistence.StreamProcessorState, bool, error) {
	var (
		s  persistence.StreamProcessorState
		ok bool
	)

	err := ds.view(ctx, func(db *database) {
		s, ok = db.processor.states[key]
		if ok {
			s = cloneStreamProcessorState(s)
		}
	})

	return s, ok, err
}

// VisitSaveStreamProcessorState returns an error if a
// "SaveStreamProcessorState" operation can not be applied to the database.
func (v *validator) VisitSaveStreamProcessorState(
	context.Context,
	persistence.SaveStreamProcessorState,
) error {
	return nil
}

// VisitRemoveStreamProcessorState returns an error if a
// "RemoveStreamProcessorState" operation can not be applied to the database.
func (v *validator) VisitRemoveStreamProcessorState(
	context.Context,
	persistence.RemoveStreamProcessorState,
) error {
	return nil
}

// VisitSaveStreamProcessorState applies the changes in a
// "SaveStreamProcessorState" operation to the database.
func (c *committer) VisitSaveStreamProcessorState(
	_ context.Context,
	op persistence.SaveStreamProcessorState,
) error {
	if c.db.processor.states == nil {
		c.db.processor.states = map[string]persistence.StreamProcessorState{}
	}

	c.db.processor.states[op.State.Key] = cloneStreamProcessorState(op.State)

	return nil
}

// VisitRemoveStreamProcessorState applies the changes in a
// "RemoveStreamProcessorState" operation to the database.
func (c *committer) VisitRemoveStreamProcessorState(
	_ context.Context,
	op persistence.RemoveStreamProcessorState,
) error {
	delete(c.db.processor.states, op.Key)
	return nil
}

// processorDatabase contains stream processor state.
type processorDatabase struct {
	states map[string]persistence.StreamProcessorState
}

func cloneStreamProcessorState(s persistence.StreamProcessorState) persistence.StreamProcessorState {
	if s.FailingPartitions != nil {
		s.FailingPartitions = append(
			[]persistence.FailingPartition(nil),
			s.FailingPartitions...,
		)
	}

	return s
}
