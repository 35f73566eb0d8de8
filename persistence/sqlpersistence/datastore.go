package sqlpersistence

import (
	"context"
	"database/sql"
	"sync"

	"github.com/dogmatiq/eventcore/persistence"
)

// dataStore is an implementation of persistence.DataStore that scopes every
// query to a single tenant's rows.
type dataStore struct {
	db        *sql.DB
	driver    Driver
	tenantKey string

	m       sync.RWMutex
	release func() error // nil once closed
}

func newDataStore(
	db *sql.DB,
	d Driver,
	k string,
	release func() error,
) *dataStore {
	return &dataStore{
		db:        db,
		driver:    d,
		tenantKey: k,
		release:   release,
	}
}

// Persist applies every operation in b within a single transaction.
//
// The transaction is rolled back if any operation fails, including with a
// ConflictError.
func (ds *dataStore) Persist(
	ctx context.Context,
	b persistence.Batch,
) (res persistence.Result, err error) {
	b.MustValidate()

	err = ds.withDB(func(db *sql.DB) error {
		tx, err := ds.driver.Begin(ctx, db)
		if err != nil {
			return err
		}
		defer tx.Rollback() // nolint:errcheck

		c := &committer{
			tx:        tx,
			driver:    ds.driver,
			tenantKey: ds.tenantKey,
		}

		if err := b.AcceptVisitor(ctx, c); err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return err
		}

		res = c.result
		return nil
	})

	return res, err
}

// Close releases the data-store's reference to the database pool.
func (ds *dataStore) Close() error {
	ds.m.Lock()
	defer ds.m.Unlock()

	release := ds.release
	if release == nil {
		return persistence.ErrDataStoreClosed
	}
	ds.release = nil

	return release()
}

// withDB calls fn with the database pool. The data-store can not be closed
// while fn is running.
func (ds *dataStore) withDB(fn func(db *sql.DB) error) error {
	ds.m.RLock()
	defer ds.m.RUnlock()

	if ds.release == nil {
		return persistence.ErrDataStoreClosed
	}

	return fn(ds.db)
}

// committer is a persistence.OperationVisitor that applies operations within
// a transaction.
type committer struct {
	tx        *sql.Tx
	driver    Driver
	tenantKey string
	result    persistence.Result
}
