package boltpersistence

import (
	"context"
	"sync"

	"github.com/dogmatiq/eventcore/internal/x/bboltx"
	"github.com/dogmatiq/eventcore/persistence"
	"go.etcd.io/bbolt"
)

// dataStore is an implementation of persistence.DataStore that keeps a
// tenant's data in a top-level bucket named after the tenant key.
type dataStore struct {
	db        *bbolt.DB
	tenantKey []byte

	m       sync.RWMutex
	release func(string) error // nil once closed
}

// Persist applies every operation in b within a single read-write
// transaction.
//
// A ConflictError from any operation rolls back the entire transaction.
func (ds *dataStore) Persist(
	ctx context.Context,
	b persistence.Batch,
) (res persistence.Result, err error) {
	b.MustValidate()

	err = ds.withDB(ctx, func(db *bbolt.DB) {
		c := &committer{}

		bboltx.Update(db, func(tx *bbolt.Tx) {
			c.root = bboltx.CreateBucketIfNotExists(tx, ds.tenantKey)
			bboltx.Must(b.AcceptVisitor(ctx, c))
		})

		res = c.result
	})

	return res, err
}

// Close unlocks the tenant so that its data-store can be opened again.
func (ds *dataStore) Close() error {
	ds.m.Lock()
	defer ds.m.Unlock()

	release := ds.release
	if release == nil {
		return persistence.ErrDataStoreClosed
	}

	ds.db = nil
	ds.release = nil

	return release(string(ds.tenantKey))
}

// view calls fn with the tenant's bucket within a read-only transaction. fn
// is not called if the tenant has never persisted anything.
func (ds *dataStore) view(
	ctx context.Context,
	fn func(root *bbolt.Bucket),
) error {
	return ds.withDB(ctx, func(db *bbolt.DB) {
		bboltx.View(db, func(tx *bbolt.Tx) {
			if root, ok := bboltx.TryBucket(tx, ds.tenantKey); ok {
				fn(root)
			}
		})
	})
}

// withDB calls fn with the database, converting bboltx panics into errors.
// The data-store can not be closed while fn is running.
func (ds *dataStore) withDB(
	ctx context.Context,
	fn func(db *bbolt.DB),
) (err error) {
	defer bboltx.Recover(&err)

	ds.m.RLock()
	defer ds.m.RUnlock()

	if ds.release == nil {
		return persistence.ErrDataStoreClosed
	}

	bboltx.Must(ctx.Err())
	fn(ds.db)

	return nil
}

// committer is a persistence.OperationVisitor that applies operations to
// the tenant's bucket.
type committer struct {
	root   *bbolt.Bucket
	result persistence.Result
}
