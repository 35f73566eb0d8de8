package memorypersistence

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/dogmatiq/eventcore/internal/x/syncx"
	"github.com/dogmatiq/eventcore/persistence"
)

// Provider is an implementation of persistence.Provider that keeps each
// tenant's data in memory for the lifetime of the provider.
//
// A tenant's data-store may only be open once at a time. Closing it keeps the
// data, so a later Open() call for the same tenant sees it again.
type Provider struct {
	tenants sync.Map // map[string]*database
}

// Open returns a data-store for the tenant identified by k.
//
// It returns persistence.ErrDataStoreLocked if that tenant's data-store is
// already open.
func (p *Provider) Open(_ context.Context, k string) (persistence.DataStore, error) {
	v, _ := p.tenants.LoadOrStore(k, &database{})
	db := v.(*database)

	if !db.open.CompareAndSwap(false, true) {
		return nil, persistence.ErrDataStoreLocked
	}

	return &dataStore{db: db}, nil
}

// database is a single tenant's data.
type database struct {
	mutex syncx.RWMutex
	open  atomic.Bool

	event     eventDatabase
	aggregate aggregateDatabase
	stream    streamDatabase
	processor processorDatabase
}

// release allows the tenant's data-store to be opened again.
func (db *database) release() {
	db.open.Store(false)
}
