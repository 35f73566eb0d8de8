package syncx

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// maxReaders is the weight of a write lock. Readers each acquire a weight of
// one.
const maxReaders = 1 << 30

// RWMutex is a context-aware read/write mutex.
//
// Waiters are served in the order they arrive, so a pending writer blocks any
// readers that arrive after it.
//
// The zero value is an unlocked mutex.
type RWMutex struct {
	once sync.Once
	sem  *semaphore.Weighted
}

// Lock acquires an exclusive lock on the mutex.
//
// It blocks until the mutex is acquired, or ctx is canceled.
func (m *RWMutex) Lock(ctx context.Context) error {
	return m.acquire(ctx, maxReaders)
}

// Unlock releases an exclusive lock.
//
// It panics if the mutex is not write-locked.
func (m *RWMutex) Unlock() {
	m.semaphore().Release(maxReaders)
}

// RLock acquires a shared lock on the mutex.
//
// It blocks until the mutex is acquired, or ctx is canceled.
func (m *RWMutex) RLock(ctx context.Context) error {
	return m.acquire(ctx, 1)
}

// RUnlock releases a shared lock.
//
// It panics if the mutex is not read-locked.
func (m *RWMutex) RUnlock() {
	m.semaphore().Release(1)
}

func (m *RWMutex) acquire(ctx context.Context, n int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return m.semaphore().Acquire(ctx, n)
}

func (m *RWMutex) semaphore() *semaphore.Weighted {
	m.once.Do(func() {
		m.sem = semaphore.NewWeighted(maxReaders)
	})
	return m.sem
}
