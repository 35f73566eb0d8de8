package providertest

import (
	"github.com/dogmatiq/eventcore/event"
	"github.com/dogmatiq/eventcore/internal/x/gomegax"
	"github.com/dogmatiq/eventcore/persistence"
	"github.com/google/uuid"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

// declareEventTests declares a functional test-suite for persistence
// operations and repository methods related to the event log.
func declareEventTests(tc *TestContext) {
	ginkgo.Context("event log", func() {
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

		ginkgo.Describe("type persistence.AppendEvents", func() {
			ginkgo.It("assigns contiguous sequence numbers beginning at zero", func() {
				res := persist(
					tc.Context,
					dataStore,
					persistence.AppendEvents{
						Events: []event.CommittedEvent{
							newEvent("<source>", 0),
							newEvent("<source>", 1),
						},
					},
				)

				gomega.Expect(res.Events).To(gomegax.EqualX(
					withSequenceNumbers(
						0,
						newEvent("<source>", 0),
						newEvent("<source>", 1),
					),
				))
			})

			ginkgo.It("continues from the end of the log in subsequent batches", func() {
				persist(
					tc.Context,
					dataStore,
					persistence.AppendEvents{
						Events: []event.CommittedEvent{
							newEvent("<source>", 0),
							newEvent("<source>", 1),
						},
					},
				)

				res := persist(
					tc.Context,
					dataStore,
					persistence.AppendEvents{
						Events: []event.CommittedEvent{
							newEvent("<source>", 2),
						},
					},
				)

				gomega.Expect(res.Events).To(gomegax.EqualX(
					withSequenceNumbers(2, newEvent("<source>", 2)),
				))

				next, err := dataStore.NextSequenceNumber(tc.Context)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(next).To(gomega.BeNumerically("==", 3))
			})

			ginkgo.It("ignores the sequence numbers of the given events", func() {
				ev := newEvent("<source>", 0)
				ev.SequenceNumber = 100

				res := persist(
					tc.Context,
					dataStore,
					persistence.AppendEvents{
						Events: []event.CommittedEvent{ev},
					},
				)

				gomega.Expect(res.Events[0].SequenceNumber).To(gomega.BeNumerically("==", 0))
			})
		})

		ginkgo.Describe("func NextSequenceNumber()", func() {
			ginkgo.It("returns zero if the log is empty", func() {
				next, err := dataStore.NextSequenceNumber(tc.Context)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(next).To(gomega.BeNumerically("==", 0))
			})
		})

		ginkgo.Describe("func LoadEvent()", func() {
			ginkgo.It("returns false if the event does not exist", func() {
				_, ok, err := dataStore.LoadEvent(tc.Context, 0)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(ok).To(gomega.BeFalse())
			})

			ginkgo.It("returns the event at the given sequence number", func() {
				persist(
					tc.Context,
					dataStore,
					persistence.AppendEvents{
						Events: []event.CommittedEvent{
							newEvent("<source>", 0),
							newAggregateEvent("<aggregate>", 1),
						},
					},
				)

				ev, ok, err := dataStore.LoadEvent(tc.Context, 1)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(ok).To(gomega.BeTrue())
				gomega.Expect(ev).To(gomegax.EqualX(
					withSequenceNumbers(1, newAggregateEvent("<aggregate>", 1))[0],
				))
			})
		})

		ginkgo.Describe("func LoadEvents()", func() {
			ginkgo.BeforeEach(func() {
				persist(
					tc.Context,
					dataStore,
					persistence.AppendEvents{
						Events: []event.CommittedEvent{
							newEvent("<source>", 0),
							newEvent("<source>", 1),
							newEvent("<source>", 2),
							newEvent("<source>", 3),
						},
					},
				)
			})

			ginkgo.It("returns events beginning at the given sequence number", func() {
				events, err := dataStore.LoadEvents(tc.Context, 1, 10)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(events).To(gomegax.EqualX(
					withSequenceNumbers(
						1,
						newEvent("<source>", 1),
						newEvent("<source>", 2),
						newEvent("<source>", 3),
					),
				))
			})

			ginkgo.It("returns no more than the limit", func() {
				events, err := dataStore.LoadEvents(tc.Context, 0, 2)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(events).To(gomega.HaveLen(2))
				gomega.Expect(events[1].SequenceNumber).To(gomega.BeNumerically("==", 1))
			})

			ginkgo.It("returns an empty result if the sequence number is beyond the end of the log", func() {
				events, err := dataStore.LoadEvents(tc.Context, 4, 10)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(events).To(gomega.BeEmpty())
			})
		})

		ginkgo.Describe("func LoadAggregateEvents()", func() {
			ginkgo.It("returns only the events of the given aggregate root instance", func() {
				other := newAggregateEvent("<aggregate>", 1)
				other.Aggregate.AggregateRoot.ID = uuid.MustParse("5f6e7d8c-9b0a-4c1d-8e2f-3a4b5c6d7e8f")

				persist(
					tc.Context,
					dataStore,
					persistence.AppendEvents{
						Events: []event.CommittedEvent{
							newAggregateEvent("<aggregate>", 1),
							newEvent("<aggregate>", 0),
							newAggregateEvent("<other-aggregate>", 1),
							other,
							newAggregateEvent("<aggregate>", 2),
						},
					},
				)

				events, err := dataStore.LoadAggregateEvents(tc.Context, "<aggregate>", aggregateRootID)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				expected := withSequenceNumbers(
					0,
					newAggregateEvent("<aggregate>", 1),
					newEvent("<aggregate>", 0),
					newAggregateEvent("<other-aggregate>", 1),
					other,
					newAggregateEvent("<aggregate>", 2),
				)

				gomega.Expect(events).To(gomegax.EqualX(
					[]event.CommittedEvent{expected[0], expected[4]},
				))
			})

			ginkgo.It("returns an empty result if the instance has no events", func() {
				events, err := dataStore.LoadAggregateEvents(tc.Context, "<aggregate>", aggregateRootID)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(events).To(gomega.BeEmpty())
			})
		})

		ginkgo.It("isolates the event logs of different tenants", func() {
			p, close := tc.Out.NewProvider()
			if close != nil {
				defer close()
			}

			other, err := p.Open(tc.Context, "<other-tenant>")
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			defer other.Close()

			persist(
				tc.Context,
				dataStore,
				persistence.AppendEvents{
					Events: []event.CommittedEvent{newEvent("<source>", 0)},
				},
			)

			next, err := other.NextSequenceNumber(tc.Context)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			gomega.Expect(next).To(gomega.BeNumerically("==", 0))
		})
	})
}
