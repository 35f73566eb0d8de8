package providertest

import (
	"time"

	"github.com/dogmatiq/eventcore/internal/x/gomegax"
	"github.com/dogmatiq/eventcore/persistence"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

// declareStreamProcessorTests declares a functional test-suite for persistence
// operations and repository methods related to stream processor state.
func declareStreamProcessorTests(tc *TestContext) {
	ginkgo.Context("stream processor state", func() {
		var (
			dataStore persistence.DataStore
			tearDown  func()
			state     persistence.StreamProcessorState
		)

		ginkgo.BeforeEach(func() {
			dataStore, tearDown = tc.SetupDataStore()

			state = persistence.StreamProcessorState{
				Key:      "<processor>",
				Position: 10,
				FailingPartitions: []persistence.FailingPartition{
					{
						Partition:          "<partition>",
						Position:           7,
						RetryTime:          time.Date(2023, 4, 5, 7, 0, 0, 0, time.UTC),
						Reason:             "<reason>",
						ProcessingAttempts: 3,
						LastFailed:         time.Date(2023, 4, 5, 6, 59, 0, 0, time.UTC),
					},
				},
				LastSuccessfullyProcessed: time.Date(2023, 4, 5, 6, 58, 0, 0, time.UTC),
			}
		})

		ginkgo.AfterEach(func() {
			tearDown()
		})

		ginkgo.Describe("func LoadStreamProcessorState()", func() {
			ginkgo.It("returns false if the processor has no state", func() {
				_, ok, err := dataStore.LoadStreamProcessorState(tc.Context, "<processor>")
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(ok).To(gomega.BeFalse())
			})
		})

		ginkgo.Describe("type persistence.SaveStreamProcessorState", func() {
			ginkgo.It("saves the state", func() {
				persist(
					tc.Context,
					dataStore,
					persistence.SaveStreamProcessorState{State: state},
				)

				s, ok, err := dataStore.LoadStreamProcessorState(tc.Context, "<processor>")
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(ok).To(gomega.BeTrue())
				gomega.Expect(s).To(gomegax.EqualX(state))
			})

			ginkgo.It("replaces existing state, including failing partitions", func() {
				persist(
					tc.Context,
					dataStore,
					persistence.SaveStreamProcessorState{State: state},
				)

				state.Position = 11
				state.FailingPartitions = nil

				persist(
					tc.Context,
					dataStore,
					persistence.SaveStreamProcessorState{State: state},
				)

				s, ok, err := dataStore.LoadStreamProcessorState(tc.Context, "<processor>")
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(ok).To(gomega.BeTrue())
				gomega.Expect(s).To(gomegax.EqualX(state))
			})

			ginkgo.It("saves state with zero-valued times", func() {
				state.LastSuccessfullyProcessed = time.Time{}
				state.FailingPartitions[0].RetryTime = time.Time{}

				persist(
					tc.Context,
					dataStore,
					persistence.SaveStreamProcessorState{State: state},
				)

				s, _, err := dataStore.LoadStreamProcessorState(tc.Context, "<processor>")
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(s.LastSuccessfullyProcessed.IsZero()).To(gomega.BeTrue())
				gomega.Expect(s.FailingPartitions[0].RetryTime.IsZero()).To(gomega.BeTrue())
			})

			ginkgo.It("saves multiple failing partitions", func() {
				state.FailingPartitions = append(
					state.FailingPartitions,
					persistence.FailingPartition{
						Partition:          "<other-partition>",
						Position:           8,
						Reason:             "<other-reason>",
						ProcessingAttempts: 1,
					},
				)

				persist(
					tc.Context,
					dataStore,
					persistence.SaveStreamProcessorState{State: state},
				)

				s, _, err := dataStore.LoadStreamProcessorState(tc.Context, "<processor>")
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(s.FailingPartitions).To(gomega.ConsistOf(
					gomegax.EqualX(state.FailingPartitions[0]),
					gomegax.EqualX(state.FailingPartitions[1]),
				))
			})
		})

		ginkgo.Describe("type persistence.RemoveStreamProcessorState", func() {
			ginkgo.It("removes the state", func() {
				persist(
					tc.Context,
					dataStore,
					persistence.SaveStreamProcessorState{State: state},
				)

				persist(
					tc.Context,
					dataStore,
					persistence.RemoveStreamProcessorState{Key: "<processor>"},
				)

				_, ok, err := dataStore.LoadStreamProcessorState(tc.Context, "<processor>")
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(ok).To(gomega.BeFalse())
			})

			ginkgo.It("does not return an error if the state does not exist", func() {
				persist(
					tc.Context,
					dataStore,
					persistence.RemoveStreamProcessorState{Key: "<processor>"},
				)
			})
		})
	})
}
