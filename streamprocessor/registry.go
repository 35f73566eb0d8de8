package streamprocessor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dogmatiq/dodeca/logging"
)

// AlreadyRegisteredError is returned by Registry.Start() if a processor with
// the same key is already running.
type AlreadyRegisteredError struct {
	Key string
}

func (e AlreadyRegisteredError) Error() string {
	return fmt.Sprintf("the '%s' stream processor is already registered", e.Key)
}

// Registry runs the stream processors of a single tenant.
type Registry struct {
	// Repository stores the state of the processors. It is used by
	// Unregister() to remove a processor's state.
	Repository StateRepository

	// Logger is the target for log messages about the processors.
	// If it is nil, logging.DefaultLogger is used.
	Logger logging.Logger

	m          sync.Mutex
	processors map[string]*registration
}

type registration struct {
	driver *Driver
	cancel context.CancelFunc
	done   chan struct{}
}

// Start runs d on a new goroutine until ctx is canceled or the processor is
// stopped.
//
// It returns an AlreadyRegisteredError if a processor with the same ID is
// already registered, in which case the existing processor is unaffected.
func (r *Registry) Start(ctx context.Context, d *Driver) error {
	key := d.ID.Key()

	r.m.Lock()
	defer r.m.Unlock()

	if _, ok := r.processors[key]; ok {
		return AlreadyRegisteredError{key}
	}

	if r.processors == nil {
		r.processors = map[string]*registration{}
	}

	ctx, cancel := context.WithCancel(ctx)
	reg := &registration{
		driver: d,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	r.processors[key] = reg

	go func() {
		defer close(reg.done)
		defer cancel()

		err := d.BeginProcessing(ctx)
		if !errors.Is(err, context.Canceled) {
			logging.Log(r.Logger, "the '%s' stream processor stopped: %s", key, err)
		}

		r.m.Lock()
		defer r.m.Unlock()

		if r.processors[key] == reg {
			delete(r.processors, key)
		}
	}()

	return nil
}

// Stop stops the processor with the given ID and waits for it to finish.
//
// It returns false if the processor is not registered.
func (r *Registry) Stop(ctx context.Context, id ID) (bool, error) {
	r.m.Lock()
	reg, ok := r.processors[id.Key()]
	r.m.Unlock()

	if !ok {
		return false, nil
	}

	reg.cancel()

	select {
	case <-ctx.Done():
		return true, ctx.Err()
	case <-reg.done:
		return true, nil
	}
}

// Get returns the processor with the given ID.
func (r *Registry) Get(id ID) (*Driver, bool) {
	r.m.Lock()
	defer r.m.Unlock()

	if reg, ok := r.processors[id.Key()]; ok {
		return reg.driver, true
	}

	return nil, false
}

// Processors returns the registered processors, ordered by key.
func (r *Registry) Processors() []*Driver {
	r.m.Lock()
	defer r.m.Unlock()

	keys := make([]string, 0, len(r.processors))
	for k := range r.processors {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	drivers := make([]*Driver, len(keys))
	for i, k := range keys {
		drivers[i] = r.processors[k].driver
	}

	return drivers
}

// Unregister stops the processor with the given ID, if it is running, and
// removes its persisted state.
func (r *Registry) Unregister(ctx context.Context, id ID) error {
	if _, err := r.Stop(ctx, id); err != nil {
		return err
	}

	return r.Repository.Remove(ctx, id)
}
