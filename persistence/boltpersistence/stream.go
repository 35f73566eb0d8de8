package boltpersistence

import (
	"context"

	"github.com/dogmatiq/eventcore/event"
	"github.com/dogmatiq/eventcore/internal/x/bboltx"
	"github.com/dogmatiq/eventcore/persistence"
	"go.etcd.io/bbolt"
)

var (
	// streamBucketKey is the key for the root bucket for persisted streams.
	//
	// The keys are stream IDs. The values are buckets containing the stream's
	// events and its next unused position.
	streamBucketKey = []byte("stream")

	// streamEventsBucketKey is the key for a child bucket of each stream that
	// contains its events.
	//
	// The keys are positions encoded as 8-byte big-endian packets. The values
	// are marshaled by marshalStreamEvent().
	streamEventsBucketKey = []byte("events")

	// streamNextKey is the key of a value within each stream bucket that
	// contains the next unused position.
	streamNextKey = []byte("next")
)

// NextStreamPosition returns the next "unused" position of a stream.
func (ds *dataStore) NextStreamPosition(ctx context.Context, streamID string) (uint64, error) {
	var next uint64

	err := ds.view(ctx, func(root *bbolt.Bucket) {
		next = unmarshalUint64(
			bboltx.GetPath(
				root,
				streamBucketKey,
				[]byte(streamID),
				streamNextKey,
			),
		)
	})

	return next, err
}

// LoadStreamEvent loads the event at a specific position of a stream.
func (ds *dataStore) LoadStreamEvent(
	ctx context.Context,
	streamID string,
	pos uint64,
) (persistence.StreamEvent, bool, error) {
	var (
		ev persistence.StreamEvent
		ok bool
	)

	err := ds.view(ctx, func(root *bbolt.Bucket) {
		ev, ok = loadStreamEvent(root, streamID, pos)
	})

	return ev, ok, err
}

// VisitAppendStreamEvent applies the changes in an "AppendStreamEvent"
// operation to the database.
func (c *committer) VisitAppendStreamEvent(
	_ context.Context,
	op persistence.AppendStreamEvent,
) error {
	id := []byte(op.StreamID)
	next := unmarshalUint64(
		bboltx.GetPath(
			c.root,
			streamBucketKey,
			id,
			streamNextKey,
		),
	)

	if next > 0 {
		last, ok := loadStreamEvent(c.root, op.StreamID, next-1)
		if ok && last.SequenceNumber >= op.SequenceNumber {
			return nil
		}
	}

	bboltx.PutPath(
		c.root,
		marshalStreamEvent(op.Partition, op.SequenceNumber),
		streamBucketKey,
		id,
		streamEventsBucketKey,
		marshalUint64(next),
	)

	bboltx.PutPath(
		c.root,
		marshalUint64(next+1),
		streamBucketKey,
		id,
		streamNextKey,
	)

	return nil
}

// loadStreamEvent loads the event at position pos of a stream.
func loadStreamEvent(
	root *bbolt.Bucket,
	streamID string,
	pos uint64,
) (persistence.StreamEvent, bool) {
	v := bboltx.GetPath(
		root,
		streamBucketKey,
		[]byte(streamID),
		streamEventsBucketKey,
		marshalUint64(pos),
	)

	if v == nil {
		return persistence.StreamEvent{}, false
	}

	ev := persistence.StreamEvent{
		StreamID: streamID,
		Position: pos,
	}

	decode(v, func(f field) {
		switch f.num {
		case 1:
			ev.Partition = f.string()
		case 2:
			ev.SequenceNumber = event.SequenceNumber(f.value)
		}
	})

	return ev, true
}

// marshalStreamEvent marshals a stream event to its binary representation.
func marshalStreamEvent(partition string, n event.SequenceNumber) []byte {
	var e encoder
	e.string(1, partition)
	e.uintAlways(2, uint64(n))

	return e.data
}
