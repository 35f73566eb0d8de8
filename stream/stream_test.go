package stream_test

import (
	"context"
	"time"

	"github.com/dogmatiq/eventcore/event"
	"github.com/dogmatiq/eventcore/persistence"
	"github.com/dogmatiq/eventcore/persistence/memorypersistence"
	. "github.com/dogmatiq/eventcore/stream"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("stream implementations", func() {
	var (
		ctx       context.Context
		cancel    context.CancelFunc
		dataStore persistence.DataStore
		notifier  *Notifier
		committed []event.CommittedEvent
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)

		var err error
		dataStore, err = (&memorypersistence.Provider{}).Open(ctx, "<tenant>")
		Expect(err).ShouldNot(HaveOccurred())

		notifier = &Notifier{}

		committed = appendEvents(
			ctx,
			dataStore,
			event.CommittedEvent{EventSource: "<source-1>", Type: typeA, Public: true},
			event.CommittedEvent{EventSource: "<source-2>", Type: typeB},
			event.CommittedEvent{EventSource: "<source-1>", Type: typeB, Public: true},
		)
	})

	AfterEach(func() {
		dataStore.Close()
		cancel()
	})

	Describe("type EventLogStream", func() {
		var stream *EventLogStream

		BeforeEach(func() {
			stream = &EventLogStream{
				Repository: dataStore,
				Notifier:   notifier,
			}
		})

		It("uses the event log stream ID by default", func() {
			Expect(stream.ID()).To(Equal(EventLog))
		})

		It("uses sequence numbers as positions", func() {
			ev, err := stream.FetchAt(ctx, 1)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(ev.Position).To(BeNumerically("==", 1))
			Expect(ev.Event.SequenceNumber).To(BeNumerically("==", 1))
			Expect(ev.Partition).To(Equal(PartitionID("<source-2>")))
		})

		It("returns an error beyond the head of the stream", func() {
			_, err := stream.FetchAt(ctx, 3)
			Expect(err).To(Equal(NotFoundAtPositionError{
				StreamID: EventLog,
				Position: 3,
			}))
		})

		It("returns the next sequence number as the head", func() {
			head, err := stream.Head(ctx)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(head).To(BeNumerically("==", 3))
		})

		It("uses the resolver to partition events", func() {
			stream.Definition = Definition{ID: "<stream>"}

			ev, err := stream.FetchAt(ctx, 0)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(ev.Partition).To(Equal(NotSet))
		})
	})

	Describe("type Filter and type PersistedStream", func() {
		var (
			filter *Filter
			stream *PersistedStream
		)

		BeforeEach(func() {
			filter = &Filter{
				Definition: PublicEventsDefinition,
				Persister:  dataStore,
				Notifier:   notifier,
			}

			stream = &PersistedStream{
				StreamID:   PublicEvents,
				Repository: dataStore,
				Notifier:   notifier,
			}
		})

		apply := func(events ...event.CommittedEvent) {
			for _, ev := range events {
				err := filter.Append(ctx, Event{
					Position: Position(ev.SequenceNumber),
					Event:    ev,
				})
				Expect(err).ShouldNot(HaveOccurred())
			}
		}

		It("appends only matching events at contiguous positions", func() {
			apply(committed...)

			head, err := stream.Head(ctx)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(head).To(BeNumerically("==", 2))

			ev, err := stream.FetchAt(ctx, 1)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(ev.Position).To(BeNumerically("==", 1))
			Expect(ev.Partition).To(Equal(PartitionID("<source-1>")))
			Expect(ev.Event.SequenceNumber).To(BeNumerically("==", 2))
		})

		It("ignores events that have already been appended", func() {
			apply(committed...)
			apply(committed...)

			head, err := stream.Head(ctx)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(head).To(BeNumerically("==", 2))
		})

		It("notifies waiters when an event is appended", func() {
			ch := stream.Changed()
			apply(committed[0])
			Expect(ch).To(BeClosed())
		})

		It("does not notify waiters when an event does not match", func() {
			ch := stream.Changed()
			apply(committed[1])
			Expect(ch).NotTo(BeClosed())
		})

		It("returns an error beyond the head of the stream", func() {
			_, err := stream.FetchAt(ctx, 0)
			Expect(err).To(Equal(NotFoundAtPositionError{
				StreamID: PublicEvents,
				Position: 0,
			}))
		})
	})
})

var _ = Describe("type NotFoundAtPositionError", func() {
	It("describes the missing position", func() {
		err := NotFoundAtPositionError{StreamID: "<stream>", Position: 3}
		Expect(err).To(MatchError("there is no event at position 3 of the '<stream>' stream"))
	})
})
