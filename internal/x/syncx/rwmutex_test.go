package syncx_test

import (
	"context"
	"time"

	. "github.com/dogmatiq/eventcore/internal/x/syncx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type RWMutex", func() {
	var (
		ctx    context.Context
		cancel context.CancelFunc
		mutex  *RWMutex
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 1*time.Second)
		mutex = &RWMutex{}
	})

	AfterEach(func() {
		cancel()
	})

	// locked returns true if fn acquires a lock before a short timeout.
	locked := func(fn func(context.Context) error) bool {
		ctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()

		return fn(ctx) == nil
	}

	Describe("func Lock()", func() {
		It("acquires an unlocked mutex", func() {
			err := mutex.Lock(ctx)
			Expect(err).ShouldNot(HaveOccurred())
			mutex.Unlock()
		})

		It("returns an error if ctx is already canceled", func() {
			cancel()

			err := mutex.Lock(ctx)
			Expect(err).To(Equal(context.Canceled))
		})

		It("blocks while the mutex is write-locked", func() {
			Expect(mutex.Lock(ctx)).To(Succeed())
			Expect(locked(mutex.Lock)).To(BeFalse())

			mutex.Unlock()
			Expect(locked(mutex.Lock)).To(BeTrue())
		})

		It("blocks while the mutex is read-locked", func() {
			Expect(mutex.RLock(ctx)).To(Succeed())
			Expect(mutex.RLock(ctx)).To(Succeed())
			Expect(locked(mutex.Lock)).To(BeFalse())

			mutex.RUnlock()
			Expect(locked(mutex.Lock)).To(BeFalse())

			mutex.RUnlock()
			Expect(locked(mutex.Lock)).To(BeTrue())
		})

		It("acquires the mutex when it is unlocked by another goroutine", func() {
			Expect(mutex.Lock(ctx)).To(Succeed())

			go func() {
				time.Sleep(10 * time.Millisecond)
				mutex.Unlock()
			}()

			err := mutex.Lock(ctx)
			Expect(err).ShouldNot(HaveOccurred())
		})
	})

	Describe("func Unlock()", func() {
		It("panics if the mutex is not locked", func() {
			Expect(func() {
				mutex.Unlock()
			}).To(Panic())
		})
	})

	Describe("func RLock()", func() {
		It("allows multiple readers", func() {
			Expect(mutex.RLock(ctx)).To(Succeed())
			Expect(locked(mutex.RLock)).To(BeTrue())
		})

		It("blocks while the mutex is write-locked", func() {
			Expect(mutex.Lock(ctx)).To(Succeed())
			Expect(locked(mutex.RLock)).To(BeFalse())
		})

		It("blocks new readers while a writer is waiting", func() {
			Expect(mutex.RLock(ctx)).To(Succeed())

			writer := make(chan error, 1)
			go func() {
				writer <- mutex.Lock(ctx)
			}()

			Consistently(writer, 20*time.Millisecond).ShouldNot(Receive())
			Expect(locked(mutex.RLock)).To(BeFalse())

			mutex.RUnlock()
			Eventually(writer).Should(Receive(BeNil()))
		})

		It("returns an error if ctx is already canceled", func() {
			cancel()

			err := mutex.RLock(ctx)
			Expect(err).To(Equal(context.Canceled))
		})
	})

	Describe("func RUnlock()", func() {
		It("panics if the mutex is not locked", func() {
			Expect(func() {
				mutex.RUnlock()
			}).To(Panic())
		})
	})
})
