package syncx_test

import (
	"context"
	"time"

	. "github.com/dogmatiq/eventcore/internal/x/syncx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type MutexNamespace", func() {
	var (
		ctx    context.Context
		cancel context.CancelFunc
		ns     *MutexNamespace
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 1*time.Second)
		ns = &MutexNamespace{}
	})

	AfterEach(func() {
		cancel()
	})

	Describe("func Lock()", func() {
		It("allows the same mutex to be locked again once it is unlocked", func() {
			unlock, err := ns.Lock(ctx, "<name>")
			Expect(err).ShouldNot(HaveOccurred())
			unlock()

			unlock, err = ns.Lock(ctx, "<name>")
			Expect(err).ShouldNot(HaveOccurred())
			unlock()
		})

		It("allows different mutexes to be locked at the same time", func() {
			unlock1, err := ns.Lock(ctx, "<name-1>")
			Expect(err).ShouldNot(HaveOccurred())
			defer unlock1()

			unlock2, err := ns.Lock(ctx, "<name-2>")
			Expect(err).ShouldNot(HaveOccurred())
			unlock2()
		})

		It("discards mutexes that are no longer in use", func() {
			unlock, err := ns.Lock(ctx, "<name>")
			Expect(err).ShouldNot(HaveOccurred())
			Expect(ns.Len()).To(Equal(1))

			unlock()
			unlock() // calling twice has no effect
			Expect(ns.Len()).To(Equal(0))
		})

		When("the mutex is already locked", func() {
			var unlock UnlockFunc

			BeforeEach(func() {
				var err error
				unlock, err = ns.Lock(ctx, "<name>")
				Expect(err).ShouldNot(HaveOccurred())
			})

			AfterEach(func() {
				unlock()
			})

			It("blocks until the mutex is unlocked", func() {
				go func() {
					time.Sleep(10 * time.Millisecond)
					unlock()
				}()

				u, err := ns.Lock(ctx, "<name>")
				Expect(err).ShouldNot(HaveOccurred())
				u()
			})

			It("returns an error if the deadline is exceeded", func() {
				ctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
				defer cancel()

				u, err := ns.Lock(ctx, "<name>")
				Expect(u).To(BeNil())
				Expect(err).To(Equal(context.DeadlineExceeded))
				Expect(ns.Len()).To(Equal(1))
			})
		})
	})
})
