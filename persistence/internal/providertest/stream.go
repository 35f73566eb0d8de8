package providertest

import (
	"github.com/dogmatiq/eventcore/event"
	"github.com/dogmatiq/eventcore/persistence"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

// declareStreamTests declares a functional test-suite for persistence
// operations and repository methods related to persisted streams.
func declareStreamTests(tc *TestContext) {
	ginkgo.Context("persisted streams", func() {
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

		ginkgo.Describe("func NextStreamPosition()", func() {
			ginkgo.It("returns zero if the stream is empty", func() {
				next, err := dataStore.NextStreamPosition(tc.Context, "<stream>")
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(next).To(gomega.BeNumerically("==", 0))
			})
		})

		ginkgo.Describe("func LoadStreamEvent()", func() {
			ginkgo.It("returns false if there is no event at the given position", func() {
				_, ok, err := dataStore.LoadStreamEvent(tc.Context, "<stream>", 0)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(ok).To(gomega.BeFalse())
			})
		})

		ginkgo.Describe("type persistence.AppendStreamEvent", func() {
			ginkgo.It("appends events at contiguous positions", func() {
				persist(
					tc.Context,
					dataStore,
					persistence.AppendStreamEvent{
						StreamID:       "<stream>",
						Partition:      "<partition-a>",
						SequenceNumber: 3,
					},
				)

				persist(
					tc.Context,
					dataStore,
					persistence.AppendStreamEvent{
						StreamID:       "<stream>",
						Partition:      "<partition-b>",
						SequenceNumber: 7,
					},
				)

				gomega.Expect(loadStreamEvents(tc.Context, dataStore, "<stream>")).To(gomega.Equal(
					[]persistence.StreamEvent{
						{StreamID: "<stream>", Position: 0, Partition: "<partition-a>", SequenceNumber: 3},
						{StreamID: "<stream>", Position: 1, Partition: "<partition-b>", SequenceNumber: 7},
					},
				))
			})

			ginkgo.It("appends to multiple streams within the same batch", func() {
				persist(
					tc.Context,
					dataStore,
					persistence.AppendStreamEvent{
						StreamID:       "<stream-1>",
						Partition:      "<partition>",
						SequenceNumber: 1,
					},
					persistence.AppendStreamEvent{
						StreamID:       "<stream-2>",
						Partition:      "<partition>",
						SequenceNumber: 1,
					},
				)

				gomega.Expect(loadStreamEvents(tc.Context, dataStore, "<stream-1>")).To(gomega.HaveLen(1))
				gomega.Expect(loadStreamEvents(tc.Context, dataStore, "<stream-2>")).To(gomega.HaveLen(1))
			})

			ginkgo.DescribeTable(
				"it ignores events that the stream already contains",
				func(n int) {
					persist(
						tc.Context,
						dataStore,
						persistence.AppendStreamEvent{
							StreamID:       "<stream>",
							Partition:      "<partition>",
							SequenceNumber: 5,
						},
					)

					persist(
						tc.Context,
						dataStore,
						persistence.AppendStreamEvent{
							StreamID:       "<stream>",
							Partition:      "<partition>",
							SequenceNumber: event.SequenceNumber(n),
						},
					)

					gomega.Expect(loadStreamEvents(tc.Context, dataStore, "<stream>")).To(gomega.Equal(
						[]persistence.StreamEvent{
							{StreamID: "<stream>", Position: 0, Partition: "<partition>", SequenceNumber: 5},
						},
					))
				},
				ginkgo.Entry("same sequence number", 5),
				ginkgo.Entry("earlier sequence number", 2),
			)
		})
	})
}
