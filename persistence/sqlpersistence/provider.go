package sqlpersistence

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/dogmatiq/eventcore/persistence"
)

const (
	// DefaultMaxOpenConns is the maximum number of open connections used when
	// the provider opens its own pool and Provider.MaxOpenConns is zero.
	DefaultMaxOpenConns = 20

	// DefaultMaxConnLifetime is the connection lifetime used when the provider
	// opens its own pool and Provider.MaxConnLifetime is zero.
	DefaultMaxConnLifetime = 10 * time.Minute
)

// Provider is an implementation of persistence.Provider that stores the data
// of every tenant in the same SQL tables, keyed by the tenant.
//
// Unlike the BoltDB and in-memory providers, SQL data-stores are not opened
// exclusively. Concurrent writers are serialized by the database.
type Provider struct {
	// DB is an existing database pool. The provider never closes it.
	//
	// If it is nil the provider opens a pool using DriverName and DSN when
	// the first data-store is opened, and closes it again when the last
	// data-store is closed.
	DB *sql.DB

	// DriverName and DSN are passed to sql.Open() when DB is nil.
	DriverName string
	DSN        string

	// MaxOpenConns and MaxConnLifetime configure a pool opened by the
	// provider. They are ignored when DB is set.
	MaxOpenConns    int
	MaxConnLifetime time.Duration

	// Driver is the SQL driver to use with this database. If it is nil,
	// it is chosen automatically from one of the built-in drivers.
	Driver Driver

	// CreateSchema, if true, creates the schema the first time the pool is
	// used.
	CreateSchema bool

	m    sync.Mutex
	pool *pool
}

// pool is the database shared by all of a provider's open data-stores.
type pool struct {
	db     *sql.DB
	driver Driver
	owned  bool
	refs   int
}

// Open returns a data-store for a specific tenant.
//
// k is the tenant key.
func (p *Provider) Open(ctx context.Context, k string) (persistence.DataStore, error) {
	p.m.Lock()
	defer p.m.Unlock()

	if p.pool == nil {
		pl, err := p.openPool(ctx)
		if err != nil {
			return nil, err
		}
		p.pool = pl
	}

	pl := p.pool
	pl.refs++

	return newDataStore(
		pl.db,
		pl.driver,
		k,
		func() error { return p.release(pl) },
	), nil
}

// openPool prepares the pool used by every data-store.
func (p *Provider) openPool(ctx context.Context) (_ *pool, err error) {
	pl := &pool{
		db:     p.DB,
		driver: p.Driver,
	}

	if pl.db == nil {
		pl.db, err = sql.Open(p.DriverName, p.DSN)
		if err != nil {
			return nil, err
		}
		pl.owned = true

		pl.db.SetMaxOpenConns(orDefault(p.MaxOpenConns, DefaultMaxOpenConns))
		pl.db.SetConnMaxLifetime(orDefault(p.MaxConnLifetime, DefaultMaxConnLifetime))
	}

	defer func() {
		if err != nil && pl.owned {
			pl.db.Close() // nolint:errcheck
		}
	}()

	if pl.driver == nil {
		pl.driver, err = driverFor(ctx, pl.db)
		if err != nil {
			return nil, err
		}
	}

	if p.CreateSchema {
		if err := pl.driver.CreateSchema(ctx, pl.db); err != nil {
			return nil, fmt.Errorf("unable to create schema: %w", err)
		}
	}

	return pl, nil
}

// release releases one data-store's reference to pl.
func (p *Provider) release(pl *pool) error {
	p.m.Lock()
	defer p.m.Unlock()

	pl.refs--
	if pl.refs > 0 {
		return nil
	}

	if p.pool == pl {
		p.pool = nil
	}

	if pl.owned {
		return pl.db.Close()
	}

	return nil
}

func orDefault[T int | time.Duration](v, def T) T {
	if v == 0 {
		return def
	}
	return v
}
