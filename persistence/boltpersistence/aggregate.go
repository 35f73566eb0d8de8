package boltpersistence

import (
	"context"

	"github.com/dogmatiq/eventcore/event"
	"github.com/dogmatiq/eventcore/internal/x/bboltx"
	"github.com/dogmatiq/eventcore/persistence"
	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

// aggregateBucketKey is the key for the bucket that contains aggregate root
// versions.
//
// The keys are produced by aggregateKey(). The values are versions encoded as
// 8-byte big-endian packets.
var aggregateBucketKey = []byte("aggregate")

// aggregateKey returns the key used to identify an aggregate root instance.
func aggregateKey(source event.EventSourceID, root uuid.UUID) []byte {
	return append(root[:len(root):len(root)], source...)
}

// LoadAggregateRootVersion loads the current version of an aggregate root
// instance.
func (ds *dataStore) LoadAggregateRootVersion(
	ctx context.Context,
	source event.EventSourceID,
	root uuid.UUID,
) (event.AggregateRootVersion, error) {
	var v uint64

	err := ds.view(ctx, func(b *bbolt.Bucket) {
		v = unmarshalUint64(
			bboltx.GetPath(
				b,
				aggregateBucketKey,
				aggregateKey(source, root),
			),
		)
	})

	return event.AggregateRootVersion(v), err
}

// VisitIncrementAggregateRootVersion applies the changes in an
// "IncrementAggregateRootVersion" operation to the database.
func (c *committer) VisitIncrementAggregateRootVersion(
	_ context.Context,
	op persistence.IncrementAggregateRootVersion,
) error {
	k := aggregateKey(op.EventSource, op.AggregateRoot)
	data := bboltx.GetPath(c.root, aggregateBucketKey, k)

	if op.ExpectedVersion == event.InitialAggregateRootVersion {
		if data != nil {
			return persistence.ConflictError{Cause: op}
		}
	} else if data == nil || unmarshalUint64(data) != uint64(op.ExpectedVersion) {
		return persistence.ConflictError{Cause: op}
	}

	bboltx.PutPath(
		c.root,
		marshalUint64(uint64(op.NextVersion)),
		aggregateBucketKey,
		k,
	)

	return nil
}
