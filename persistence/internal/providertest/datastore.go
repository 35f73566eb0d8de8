package providertest

import (
	"github.com/dogmatiq/eventcore/event"
	"github.com/dogmatiq/eventcore/persistence"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

// declareDataStoreTests declares a functional test-suite for a specific
// persistence.DataStore implementation.
func declareDataStoreTests(tc *TestContext) {
	ginkgo.Describe("type persistence.DataStore", func() {
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

		ginkgo.Describe("func Persist()", func() {
			ginkgo.It("accepts an empty batch", func() {
				_, err := dataStore.Persist(tc.Context, persistence.Batch{})
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			})

			ginkgo.It("panics if the batch contains multiple operations for the same entity", func() {
				gomega.Expect(func() {
					dataStore.Persist(
						tc.Context,
						persistence.Batch{
							persistence.RemoveStreamProcessorState{Key: "<processor>"},
							persistence.RemoveStreamProcessorState{Key: "<processor>"},
						},
					)
				}).To(gomega.PanicWith("batch contains multiple operations for the same entity (stream processor <processor>)"))
			})

			ginkgo.It("returns an error if the data-store is closed", func() {
				err := dataStore.Close()
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				_, err = dataStore.Persist(
					tc.Context,
					persistence.Batch{
						persistence.RemoveStreamProcessorState{Key: "<processor>"},
					},
				)
				gomega.Expect(err).To(gomega.Equal(persistence.ErrDataStoreClosed))
			})

			ginkgo.It("does not apply any operations if one of them conflicts", func() {
				conflict := persistence.IncrementAggregateRootVersion{
					EventSource:     "<source>",
					AggregateRoot:   aggregateRootID,
					ExpectedVersion: 10,
					NextVersion:     11,
				}

				_, err := dataStore.Persist(
					tc.Context,
					persistence.Batch{
						persistence.AppendEvents{
							Events: []event.CommittedEvent{newEvent("<source>", 0)},
						},
						persistence.SaveStreamProcessorState{
							State: persistence.StreamProcessorState{
								Key:      "<processor>",
								Position: 1,
							},
						},
						conflict,
					},
				)
				gomega.Expect(err).To(gomega.Equal(
					persistence.ConflictError{Cause: conflict},
				))

				next, err := dataStore.NextSequenceNumber(tc.Context)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(next).To(gomega.BeNumerically("==", 0))

				_, ok, err := dataStore.LoadStreamProcessorState(tc.Context, "<processor>")
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(ok).To(gomega.BeFalse())
			})
		})

		ginkgo.Describe("func Close()", func() {
			ginkgo.It("returns an error if the data-store is already closed", func() {
				err := dataStore.Close()
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				err = dataStore.Close()
				gomega.Expect(err).To(gomega.Equal(persistence.ErrDataStoreClosed))
			})
		})
	})
}
