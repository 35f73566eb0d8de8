package persistence

import (
	"context"
	"errors"
	"sync"

	"github.com/dogmatiq/eventcore/event"
	"go.uber.org/multierr"
)

var (
	// ErrDataStoreClosed is returned by Persist() once the data-store has been
	// closed.
	ErrDataStoreClosed = errors.New("data store is closed")

	// ErrDataStoreLocked is returned by Provider.Open() when the tenant's
	// data-store may only be open once and is already open.
	ErrDataStoreLocked = errors.New("data store is locked")
)

// Provider opens the data-stores of individual tenants.
type Provider interface {
	// Open returns the data-store of the tenant identified by k.
	Open(ctx context.Context, k string) (DataStore, error)
}

// DataStore is a single tenant's data.
//
// Reads are performed through the embedded repositories. Writes are only ever
// made by passing a Batch to Persist().
type DataStore interface {
	EventRepository
	AggregateRepository
	StreamRepository
	StreamProcessorRepository
	Persister

	// Close releases the data-store. Subsequent calls to Persist() return
	// ErrDataStoreClosed. Reads on a closed data-store may or may not succeed,
	// depending on the provider.
	Close() error
}

// Persister applies batches of operations.
type Persister interface {
	// Persist applies every operation in b, or none of them.
	//
	// It returns a ConflictError if any operation fails its optimistic
	// concurrency check.
	Persist(ctx context.Context, b Batch) (Result, error)
}

// Result describes a batch that was persisted successfully.
type Result struct {
	// Events are the events written by the batch's AppendEvents operation, if
	// any, with their sequence numbers assigned.
	Events []event.CommittedEvent
}

// DataStoreSet keeps one open data-store per tenant.
type DataStoreSet struct {
	Provider Provider

	m      sync.Mutex
	stores map[string]DataStore
}

// Get returns the data-store of the tenant identified by k, opening it if
// necessary.
//
// The set owns the data-store. The caller must not close it.
func (s *DataStoreSet) Get(ctx context.Context, k string) (DataStore, error) {
	s.m.Lock()
	defer s.m.Unlock()

	if ds, ok := s.stores[k]; ok {
		return ds, nil
	}

	ds, err := s.Provider.Open(ctx, k)
	if err != nil {
		return nil, err
	}

	if s.stores == nil {
		s.stores = map[string]DataStore{}
	}
	s.stores[k] = ds

	return ds, nil
}

// Close closes every data-store in the set.
func (s *DataStoreSet) Close() error {
	s.m.Lock()
	stores := s.stores
	s.stores = nil
	s.m.Unlock()

	var err error
	for _, ds := range stores {
		err = multierr.Append(err, ds.Close())
	}

	return err
}
