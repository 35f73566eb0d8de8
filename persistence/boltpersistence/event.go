package boltpersistence

import (
	"context"

	"github.com/dogmatiq/eventcore/event"
	"github.com/dogmatiq/eventcore/internal/x/bboltx"
	"github.com/dogmatiq/eventcore/persistence"
	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

var (
	// eventBucketKey is the key for the root bucket for events.
	eventBucketKey = []byte("event")

	// eventRecordsBucketKey is the key for a child bucket that contains each
	// committed event.
	//
	// The keys are sequence numbers encoded as 8-byte big-endian packets. The
	// values are events marshaled by marshalEvent().
	eventRecordsBucketKey = []byte("records")

	// eventAggregateBucketKey is the key for a child bucket that indexes events
	// by the aggregate root instance that committed them.
	//
	// The keys are aggregate keys produced by aggregateKey(). The values are
	// buckets with a key for each sequence number.
	eventAggregateBucketKey = []byte("aggregate")

	// eventNextKey is the key of a value within the root bucket that contains
	// the next unused sequence number encoded as 8-byte big-endian packet.
	eventNextKey = []byte("next")
)

// NextSequenceNumber returns the next "unused" sequence number.
func (ds *dataStore) NextSequenceNumber(ctx context.Context) (event.SequenceNumber, error) {
	var next uint64

	err := ds.view(ctx, func(root *bbolt.Bucket) {
		next = unmarshalUint64(
			bboltx.GetPath(
				root,
				eventBucketKey,
				eventNextKey,
			),
		)
	})

	return event.SequenceNumber(next), err
}

// LoadEvent loads the event with the given sequence number.
func (ds *dataStore) LoadEvent(
	ctx context.Context,
	n event.SequenceNumber,
) (event.CommittedEvent, bool, error) {
	var (
		ev event.CommittedEvent
		ok bool
	)

	err := ds.view(ctx, func(root *bbolt.Bucket) {
		ev, ok = loadEvent(root, n)
	})

	return ev, ok, err
}

// LoadEvents loads up to limit events, beginning with the event at sequence
// number n.
func (ds *dataStore) LoadEvents(
	ctx context.Context,
	n event.SequenceNumber,
	limit int,
) ([]event.CommittedEvent, error) {
	var result []event.CommittedEvent

	err := ds.view(ctx, func(root *bbolt.Bucket) {
		b, ok := bboltx.TryBucket(root, eventBucketKey, eventRecordsBucketKey)
		if !ok {
			return
		}

		c := b.Cursor()

		for k, v := c.Seek(marshalUint64(uint64(n))); k != nil; k, v = c.Next() {
			if len(result) == limit {
				return
			}

			result = append(result, unmarshalEvent(k, v))
		}
	})

	return result, err
}

// LoadAggregateEvents loads all of the events committed by a specific
// aggregate root instance.
func (ds *dataStore) LoadAggregateEvents(
	ctx context.Context,
	source event.EventSourceID,
	root uuid.UUID,
) ([]event.CommittedEvent, error) {
	var result []event.CommittedEvent

	err := ds.view(ctx, func(b *bbolt.Bucket) {
		index, ok := bboltx.TryBucket(
			b,
			eventBucketKey,
			eventAggregateBucketKey,
			aggregateKey(source, root),
		)
		if !ok {
			return
		}

		bboltx.Must(index.ForEach(func(k, _ []byte) error {
			ev, ok := loadEvent(b, event.SequenceNumber(unmarshalUint64(k)))
			if ok {
				result = append(result, ev)
			}
			return nil
		}))
	})

	return result, err
}

// VisitAppendEvents applies the changes in an "AppendEvents" operation to the
// database.
func (c *committer) VisitAppendEvents(
	_ context.Context,
	op persistence.AppendEvents,
) error {
	for _, ev := range op.Events {
		ev.SequenceNumber = event.SequenceNumber(incrementSequenceNumber(c.root))
		k := marshalUint64(uint64(ev.SequenceNumber))

		bboltx.PutPath(
			c.root,
			marshalEvent(ev),
			eventBucketKey,
			eventRecordsBucketKey,
			k,
		)

		if ev.Aggregate != nil {
			bboltx.PutPath(
				c.root,
				[]byte{},
				eventBucketKey,
				eventAggregateBucketKey,
				aggregateKey(ev.EventSource, ev.Aggregate.AggregateRoot.ID),
				k,
			)
		}

		c.result.Events = append(c.result.Events, ev)
	}

	return nil
}

// incrementSequenceNumber increments the next unused sequence number. It
// returns the previous value, to be used for the next event.
func incrementSequenceNumber(root *bbolt.Bucket) uint64 {
	n := unmarshalUint64(
		bboltx.GetPath(
			root,
			eventBucketKey,
			eventNextKey,
		),
	)

	bboltx.PutPath(
		root,
		marshalUint64(n+1),
		eventBucketKey,
		eventNextKey,
	)

	return n
}

// loadEvent loads the event with sequence number n.
func loadEvent(root *bbolt.Bucket, n event.SequenceNumber) (event.CommittedEvent, bool) {
	k := marshalUint64(uint64(n))
	v := bboltx.GetPath(
		root,
		eventBucketKey,
		eventRecordsBucketKey,
		k,
	)

	if v == nil {
		return event.CommittedEvent{}, false
	}

	return unmarshalEvent(k, v), true
}

// marshalEvent marshals ev to its binary representation.
//
// The sequence number is not included, it is the key of the record.
func marshalEvent(ev event.CommittedEvent) []byte {
	var e encoder

	e.time(1, ev.Occurred)
	e.string(2, string(ev.EventSource))
	e.uuid(3, ev.ExecutionContext.Tenant)
	e.uuid(4, ev.ExecutionContext.Correlation)
	e.uuid(5, ev.ExecutionContext.Microservice)
	e.string(6, ev.ExecutionContext.Environment)
	e.uuid(7, ev.Type.ID)
	e.uintAlways(8, uint64(ev.Type.Generation))
	e.bool(9, ev.Public)
	e.bytes(10, ev.Content)

	if md := ev.Aggregate; md != nil {
		e.bool(11, true)
		e.uuid(12, md.AggregateRoot.ID)
		e.uint(13, uint64(md.AggregateRoot.Generation))
		e.uint(14, uint64(md.Version))
	}

	return e.data
}

// unmarshalEvent unmarshals an event record.
func unmarshalEvent(k, v []byte) event.CommittedEvent {
	ev := event.CommittedEvent{
		SequenceNumber: event.SequenceNumber(unmarshalUint64(k)),
	}

	var md event.AggregateMetaData
	var isAggregate bool

	decode(v, func(f field) {
		switch f.num {
		case 1:
			ev.Occurred = f.time()
		case 2:
			ev.EventSource = event.EventSourceID(f.string())
		case 3:
			ev.ExecutionContext.Tenant = f.uuid()
		case 4:
			ev.ExecutionContext.Correlation = f.uuid()
		case 5:
			ev.ExecutionContext.Microservice = f.uuid()
		case 6:
			ev.ExecutionContext.Environment = f.string()
		case 7:
			ev.Type.ID = f.uuid()
		case 8:
			ev.Type.Generation = uint32(f.value)
		case 9:
			ev.Public = f.bool()
		case 10:
			// f.data refers to memory owned by BoltDB.
			ev.Content = append([]byte(nil), f.data...)
		case 11:
			isAggregate = f.bool()
		case 12:
			md.AggregateRoot.ID = f.uuid()
		case 13:
			md.AggregateRoot.Generation = uint32(f.value)
		case 14:
			md.Version = event.AggregateRootVersion(f.value)
		}
	})

	if isAggregate {
		ev.Aggregate = &md
	}

	return ev
}
