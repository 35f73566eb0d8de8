package aggregate_test

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/dogmatiq/eventcore/aggregate"
	"github.com/dogmatiq/eventcore/event"
	"github.com/dogmatiq/eventcore/persistence"
	"github.com/dogmatiq/eventcore/persistence/memorypersistence"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type VersionStore", func() {
	var (
		ctx       context.Context
		cancel    context.CancelFunc
		dataStore persistence.DataStore
		store     *VersionStore
		root      = uuid.MustParse("3e0f5c1a-7b2d-4c8e-9a6f-1d2e3f4a5b6c")
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)

		provider := &memorypersistence.Provider{}

		var err error
		dataStore, err = provider.Open(ctx, "<tenant>")
		Expect(err).ShouldNot(HaveOccurred())

		store = &VersionStore{
			Repository: dataStore,
		}
	})

	AfterEach(func() {
		dataStore.Close()
		cancel()
	})

	Describe("func FetchVersion()", func() {
		It("returns the initial version if the instance has no record", func() {
			v, err := store.FetchVersion(ctx, "<source>", root)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(v).To(Equal(event.InitialAggregateRootVersion))
		})

		It("returns the current version", func() {
			err := store.IncrementVersion(ctx, "<source>", root, 0, 3)
			Expect(err).ShouldNot(HaveOccurred())

			v, err := store.FetchVersion(ctx, "<source>", root)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(v).To(BeNumerically("==", 3))
		})
	})

	Describe("func IncrementVersion()", func() {
		DescribeTable(
			"it returns a validation error if the next version is not greater than the expected version",
			func(expected, next int) {
				err := store.IncrementVersion(
					ctx,
					"<source>",
					root,
					event.AggregateRootVersion(expected),
					event.AggregateRootVersion(next),
				)
				Expect(err).To(Equal(ValidationError{
					Expected: event.AggregateRootVersion(expected),
					Next:     event.AggregateRootVersion(next),
				}))
			},
			Entry("equal", 2, 2),
			Entry("lower", 2, 1),
		)

		It("increments the version of an existing instance", func() {
			err := store.IncrementVersion(ctx, "<source>", root, 0, 1)
			Expect(err).ShouldNot(HaveOccurred())

			err = store.IncrementVersion(ctx, "<source>", root, 1, 2)
			Expect(err).ShouldNot(HaveOccurred())

			v, err := store.FetchVersion(ctx, "<source>", root)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(v).To(BeNumerically("==", 2))
		})

		It("returns a conflict error containing the current version", func() {
			err := store.IncrementVersion(ctx, "<source>", root, 0, 5)
			Expect(err).ShouldNot(HaveOccurred())

			err = store.IncrementVersion(ctx, "<source>", root, 4, 6)
			Expect(err).To(Equal(ConcurrencyConflictError{
				EventSource:   "<source>",
				AggregateRoot: root,
				Current:       5,
				Expected:      4,
			}))
		})

		It("returns a conflict error if the instance is created twice", func() {
			err := store.IncrementVersion(ctx, "<source>", root, 0, 1)
			Expect(err).ShouldNot(HaveOccurred())

			err = store.IncrementVersion(ctx, "<source>", root, 0, 1)
			Expect(err).To(Equal(ConcurrencyConflictError{
				EventSource:   "<source>",
				AggregateRoot: root,
				Current:       1,
				Expected:      0,
			}))
		})

		It("allows exactly one of two concurrent increments from the same version", func() {
			err := store.IncrementVersion(ctx, "<source>", root, 0, 1)
			Expect(err).ShouldNot(HaveOccurred())

			var (
				g    sync.WaitGroup
				errs [2]error
			)

			for i := range errs {
				i := i
				g.Add(1)
				go func() {
					defer GinkgoRecover()
					defer g.Done()
					errs[i] = store.IncrementVersion(ctx, "<source>", root, 1, 2)
				}()
			}

			g.Wait()

			var conflicts []error
			for _, err := range errs {
				if err != nil {
					conflicts = append(conflicts, err)
				}
			}

			Expect(conflicts).To(ConsistOf(
				ConcurrencyConflictError{
					EventSource:   "<source>",
					AggregateRoot: root,
					Current:       2,
					Expected:      1,
				},
			))
		})

		It("wraps infrastructure errors", func() {
			dataStore.Close()

			err := store.IncrementVersion(ctx, "<source>", root, 0, 1)
			Expect(errors.Is(err, persistence.ErrDataStoreClosed)).To(BeTrue())
		})
	})
})

var _ = Describe("type ValidationError", func() {
	It("describes the invalid versions", func() {
		err := ValidationError{Expected: 2, Next: 1}
		Expect(err).To(MatchError("next version (1) must be greater than the expected version (2)"))
	})
})
