package syncx

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// UnlockFunc unlocks a mutex acquired by MutexNamespace.Lock().
//
// It is safe to call more than once.
type UnlockFunc func()

// MutexNamespace is a set of context-aware mutexes identified by name.
//
// A mutex only exists while it is locked or has pending lockers.
type MutexNamespace struct {
	m       sync.Mutex
	mutexes map[string]*namedMutex
}

type namedMutex struct {
	sem  *semaphore.Weighted
	refs int // pending or successful Lock() calls, guarded by MutexNamespace.m
}

// Lock acquires the mutex named n.
//
// It blocks until the mutex is acquired, or ctx is canceled.
func (ns *MutexNamespace) Lock(ctx context.Context, n string) (UnlockFunc, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m := ns.ref(n)

	if err := m.sem.Acquire(ctx, 1); err != nil {
		ns.unref(n, m)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			m.sem.Release(1)
			ns.unref(n, m)
		})
	}, nil
}

// ref returns the mutex named n, creating it if necessary, and adds a
// reference to it.
func (ns *MutexNamespace) ref(n string) *namedMutex {
	ns.m.Lock()
	defer ns.m.Unlock()

	m, ok := ns.mutexes[n]
	if !ok {
		if ns.mutexes == nil {
			ns.mutexes = map[string]*namedMutex{}
		}

		m = &namedMutex{sem: semaphore.NewWeighted(1)}
		ns.mutexes[n] = m
	}

	m.refs++

	return m
}

// unref removes a reference to m, discarding it once it is unused.
func (ns *MutexNamespace) unref(n string, m *namedMutex) {
	ns.m.Lock()
	defer ns.m.Unlock()

	m.refs--

	if m.refs == 0 {
		delete(ns.mutexes, n)
	}
}

// len returns the number of mutexes in the namespace.
func (ns *MutexNamespace) len() int {
	ns.m.Lock()
	defer ns.m.Unlock()

	return len(ns.mutexes)
}
