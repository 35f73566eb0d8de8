package boltpersistence

import (
	"context"

	"github.com/dogmatiq/eventcore/internal/x/bboltx"
	"github.com/dogmatiq/eventcore/persistence"
	"go.etcd.io/bbolt"
)

// processorBucketKey is the key for the bucket that contains stream processor
// state.
//
// The keys are stream processor keys. The values are marshaled by
// marshalStreamProcessorState().
var processorBucketKey = []byte("processor")

// LoadStreamProcessorState loads the state of a stream processor.
func (ds *dataStore) LoadStreamProcessorState(
	ctx context.Context,
	key string,
) (persistence.StreamProcessorState, bool, error) {
	var (
		s  persistence.StreamProcessorState
		ok bool
	)

	err := ds.view(ctx, func(root *bbolt.Bucket) {
		if v := bboltx.GetPath(root, processorBucketKey, []byte(key)); v != nil {
			s = unmarshalStreamProcessorState(key, v)
			ok = true
		}
	})

	return s, ok, err
}

// VisitSaveStreamProcessorState applies the changes in a
// "SaveStreamProcessorState" operation to the database.
func (c *committer) VisitSaveStreamProcessorState(
	_ context.Context,
	op persistence.SaveStreamProcessorState,
) error {
	bboltx.PutPath(
		c.root,
		marshalStreamProcessorState(op.State),
		processorBucketKey,
		[]byte(op.State.Key),
	)

	return nil
}

// VisitRemoveStreamProcessorState applies the changes in a
// "RemoveStreamProcessorState" operation to the database.
func (c *committer) VisitRemoveStreamProcessorState(
	_ context.Context,
	op persistence.RemoveStreamProcessorState,
) error {
	bboltx.DeletePath(
		c.root,
		processorBucketKey,
		[]byte(op.Key),
	)

	return nil
}

func marshalStreamProcessorState(s persistence.StreamProcessorState) []byte {
	var e encoder

	e.uintAlways(1, s.Position)
	e.time(2, s.LastSuccessfullyProcessed)

	for _, p := range s.FailingPartitions {
		var pe encoder
		pe.string(1, p.Partition)
		pe.uint(2, p.Position)
		pe.time(3, p.RetryTime)
		pe.string(4, p.Reason)
		pe.uint(5, p.ProcessingAttempts)
		pe.time(6, p.LastFailed)

		// Always write the partition, even if it is empty.
		e.data = appendMessage(e.data, 3, pe.data)
	}

	return e.data
}

func unmarshalStreamProcessorState(key string, v []byte) persistence.StreamProcessorState {
	s := persistence.StreamProcessorState{
		Key: key,
	}

	decode(v, func(f field) {
		switch f.num {
		case 1:
			s.Position = f.value
		case 2:
			s.LastSuccessfullyProcessed = f.time()
		case 3:
			var p persistence.FailingPartition

			decode(f.data, func(f field) {
				switch f.num {
				case 1:
					p.Partition = f.string()
				case 2:
					p.Position = f.value
				case 3:
					p.RetryTime = f.time()
				case 4:
					p.Reason = f.string()
				case 5:
					p.ProcessingAttempts = f.value
				case 6:
					p.LastFailed = f.time()
				}
			})

			s.FailingPartitions = append(s.FailingPartitions, p)
		}
	})

	return s
}
