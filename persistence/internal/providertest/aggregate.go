package providertest

import (
	"errors"
	"sync/atomic"

	"github.com/dogmatiq/eventcore/event"
	"github.com/dogmatiq/eventcore/persistence"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/sync/errgroup"
)

// declareAggregateTests declares a functional test-suite for persistence
// operations and repository methods related to aggregate root versions.
func declareAggregateTests(tc *TestContext) {
	ginkgo.Context("aggregate root versions", func() {
		var (
			dataStore persistence.DataStore
			tearDown  func()
		)

		ginkgo.BeforeEach(func() {
			dataStore, tearDown = tc.SetupDataStore()
		})

		ginkgo.AfterEach(func() {
			tearDown()
		})

		ginkgo.Describe("func LoadAggregateRootVersion()", func() {
			ginkgo.It("returns the initial version if the instance has never been persisted", func() {
				v := loadAggregateRootVersion(tc.Context, dataStore, "<aggregate>")
				gomega.Expect(v).To(gomega.Equal(event.InitialAggregateRootVersion))
			})
		})

		ginkgo.Describe("type persistence.IncrementAggregateRootVersion", func() {
			ginkgo.When("the instance does not exist", func() {
				ginkgo.It("saves the next version", func() {
					persist(
						tc.Context,
						dataStore,
						persistence.IncrementAggregateRootVersion{
							EventSource:     "<aggregate>",
							AggregateRoot:   aggregateRootID,
							ExpectedVersion: event.InitialAggregateRootVersion,
							NextVersion:     3,
						},
					)

					v := loadAggregateRootVersion(tc.Context, dataStore, "<aggregate>")
					gomega.Expect(v).To(gomega.BeNumerically("==", 3))
				})

				ginkgo.It("returns a conflict error if the expected version is not the initial version", func() {
					op := persistence.IncrementAggregateRootVersion{
						EventSource:     "<aggregate>",
						AggregateRoot:   aggregateRootID,
						ExpectedVersion: 1,
						NextVersion:     2,
					}

					_, err := dataStore.Persist(tc.Context, persistence.Batch{op})
					gomega.Expect(err).To(gomega.Equal(
						persistence.ConflictError{Cause: op},
					))

					v := loadAggregateRootVersion(tc.Context, dataStore, "<aggregate>")
					gomega.Expect(v).To(gomega.Equal(event.InitialAggregateRootVersion))
				})
			})

			ginkgo.When("the instance exists", func() {
				ginkgo.BeforeEach(func() {
					persist(
						tc.Context,
						dataStore,
						persistence.IncrementAggregateRootVersion{
							EventSource:     "<aggregate>",
							AggregateRoot:   aggregateRootID,
							ExpectedVersion: event.InitialAggregateRootVersion,
							NextVersion:     2,
						},
					)
				})

				ginkgo.It("saves the next version", func() {
					persist(
						tc.Context,
						dataStore,
						persistence.IncrementAggregateRootVersion{
							EventSource:     "<aggregate>",
							AggregateRoot:   aggregateRootID,
							ExpectedVersion: 2,
							NextVersion:     5,
						},
					)

					v := loadAggregateRootVersion(tc.Context, dataStore, "<aggregate>")
					gomega.Expect(v).To(gomega.BeNumerically("==", 5))
				})

				ginkgo.It("does not affect other instances", func() {
					v := loadAggregateRootVersion(tc.Context, dataStore, "<other-aggregate>")
					gomega.Expect(v).To(gomega.Equal(event.InitialAggregateRootVersion))
				})

				ginkgo.DescribeTable(
					"it does not save the version when an OCC conflict occurs",
					func(conflictingVersion int) {
						op := persistence.IncrementAggregateRootVersion{
							EventSource:     "<aggregate>",
							AggregateRoot:   aggregateRootID,
							ExpectedVersion: event.AggregateRootVersion(conflictingVersion),
							NextVersion:     10,
						}

						_, err := dataStore.Persist(tc.Context, persistence.Batch{op})
						gomega.Expect(err).To(gomega.Equal(
							persistence.ConflictError{Cause: op},
						))

						v := loadAggregateRootVersion(tc.Context, dataStore, "<aggregate>")
						gomega.Expect(v).To(gomega.BeNumerically("==", 2))
					},
					ginkgo.Entry("initial version", 0),
					ginkgo.Entry("too low", 1),
					ginkgo.Entry("too high", 3),
				)
			})

			ginkgo.It("serializes concurrent increments of the same instance", func() {
				const n = 5

				var successes atomic.Int32
				g, ctx := errgroup.WithContext(tc.Context)

				for i := 0; i < n; i++ {
					g.Go(func() error {
						_, err := dataStore.Persist(
							ctx,
							persistence.Batch{
								persistence.IncrementAggregateRootVersion{
									EventSource:     "<aggregate>",
									AggregateRoot:   aggregateRootID,
									ExpectedVersion: event.InitialAggregateRootVersion,
									NextVersion:     1,
								},
							},
						)

						if err == nil {
							successes.Add(1)
							return nil
						}

						var conflict persistence.ConflictError
						if errors.As(err, &conflict) {
							return nil
						}

						return err
					})
				}

				gomega.Expect(g.Wait()).To(gomega.Succeed())
				gomega.Expect(successes.Load()).To(gomega.BeNumerically("==", 1))

				v := loadAggregateRootVersion(tc.Context, dataStore, "<aggregate>")
				gomega.Expect(v).To(gomega.BeNumerically("==", 1))
			})
		})
	})
}
