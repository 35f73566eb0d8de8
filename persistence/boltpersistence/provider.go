package boltpersistence

import (
	"context"
	"os"
	"sync"

	"github.com/dogmatiq/eventcore/internal/x/bboltx"
	"github.com/dogmatiq/eventcore/persistence"
	"go.etcd.io/bbolt"
)

// Provider is an implementation of persistence.Provider that stores the data
// of each tenant in its own bucket of a BoltDB database.
//
// A tenant's data-store may only be open once at a time. Opening it again
// returns persistence.ErrDataStoreLocked until it is closed.
type Provider struct {
	// DB is an existing database. The provider never closes it.
	//
	// If it is nil the provider opens the file at Path when the first
	// data-store is opened, and closes it again when the last data-store is
	// closed.
	DB *bbolt.DB

	// Path is the database file to open or create when DB is nil.
	Path string

	// Mode is the permission of a file created at Path. If it is zero,
	// bboltx.DefaultFileMode is used.
	Mode os.FileMode

	// Options configures the database opened at Path. If it is nil,
	// bbolt.DefaultOptions is used.
	Options *bbolt.Options

	m       sync.Mutex
	db      *bbolt.DB
	owned   bool
	tenants map[string]struct{}
}

// Open returns a data-store for the tenant identified by k.
func (p *Provider) Open(ctx context.Context, k string) (persistence.DataStore, error) {
	p.m.Lock()
	defer p.m.Unlock()

	if _, ok := p.tenants[k]; ok {
		return nil, persistence.ErrDataStoreLocked
	}

	if p.db == nil {
		if p.DB != nil {
			p.db, p.owned = p.DB, false
		} else {
			db, err := bboltx.Open(ctx, p.Path, p.Mode, p.Options)
			if err != nil {
				return nil, err
			}
			p.db, p.owned = db, true
		}
	}

	if p.tenants == nil {
		p.tenants = map[string]struct{}{}
	}
	p.tenants[k] = struct{}{}

	return &dataStore{
		db:        p.db,
		tenantKey: []byte(k),
		release:   p.release,
	}, nil
}

// release unlocks the tenant identified by k. The database is closed once no
// tenants remain open, if the provider opened it.
func (p *Provider) release(k string) error {
	p.m.Lock()
	defer p.m.Unlock()

	delete(p.tenants, k)
	if len(p.tenants) > 0 {
		return nil
	}

	db, owned := p.db, p.owned
	p.db, p.owned = nil, false

	if owned {
		return db.Close()
	}

	return nil
}
