package memorypersistence

import (
	"context"
	"fmt"
	"sync"

	"github.com/dogmatiq/eventcore/persistence"
)

// dataStore is an implementation of persistence.DataStore that reads and
// writes a tenant's in-memory database.
type dataStore struct {
	m  sync.RWMutex
	db *database // nil once closed
}

// Persist applies every operation in b to the database.
//
// The whole batch is validated before any operation is applied, so a
// ConflictError leaves the database unchanged.
func (ds *dataStore) Persist(
	ctx context.Context,
	b persistence.Batch,
) (res persistence.Result, err error) {
	b.MustValidate()

	err = ds.use(ctx, true, func(db *database) error {
		if err := b.AcceptVisitor(ctx, &validator{db}); err != nil {
			return err
		}

		c := &committer{db: db}
		if err := b.AcceptVisitor(ctx, c); err != nil {
			panic(fmt.Sprintf("unable to apply a validated batch: %s", err))
		}

		res = c.result
		return nil
	})

	return res, err
}

// Close releases the tenant's database so that it can be opened again.
func (ds *dataStore) Close() error {
	ds.m.Lock()
	defer ds.m.Unlock()

	if ds.db == nil {
		return persistence.ErrDataStoreClosed
	}

	ds.db.release()
	ds.db = nil

	return nil
}

// view calls fn with the database while holding its read lock.
func (ds *dataStore) view(ctx context.Context, fn func(db *database)) error {
	return ds.use(ctx, false, func(db *database) error {
		fn(db)
		return nil
	})
}

// use calls fn with the database while holding its lock. The lock is
// exclusive if write is true.
func (ds *dataStore) use(
	ctx context.Context,
	write bool,
	fn func(db *database) error,
) error {
	ds.m.RLock()
	defer ds.m.RUnlock()

	db := ds.db
	if db == nil {
		return persistence.ErrDataStoreClosed
	}

	if write {
		if err := db.mutex.Lock(ctx); err != nil {
			return err
		}
		defer db.mutex.Unlock()
	} else {
		if err := db.mutex.RLock(ctx); err != nil {
			return err
		}
		defer db.mutex.RUnlock()
	}

	return fn(db)
}

// validator is a persistence.OperationVisitor that checks each operation
// against the current state of the database without modifying it.
type validator struct {
	db *database
}

// committer is a persistence.OperationVisitor that applies operations that
// have already passed validation.
type committer struct {
	db     *database
	result persistence.Result
}
