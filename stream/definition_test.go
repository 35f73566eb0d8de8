package stream_test

import (
	"github.com/dogmatiq/eventcore/event"
	. "github.com/dogmatiq/eventcore/stream"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type Definition", func() {
	Describe("func Matches()", func() {
		DescribeTable(
			"it matches events by visibility and type",
			func(d Definition, ev event.CommittedEvent, expect bool) {
				Expect(d.Matches(ev)).To(Equal(expect))
			},
			Entry(
				"any event, no constraints",
				Definition{},
				event.CommittedEvent{Type: typeA},
				true,
			),
			Entry(
				"private event, public stream",
				Definition{Public: true},
				event.CommittedEvent{Type: typeA},
				false,
			),
			Entry(
				"public event, public stream",
				Definition{Public: true},
				event.CommittedEvent{Type: typeA, Public: true},
				true,
			),
			Entry(
				"listed type",
				Definition{Types: []uuid.UUID{typeA.ID}},
				event.CommittedEvent{Type: typeA},
				true,
			),
			Entry(
				"listed type, different generation",
				Definition{Types: []uuid.UUID{typeA.ID}},
				event.CommittedEvent{Type: event.Artifact{ID: typeA.ID, Generation: 7}},
				true,
			),
			Entry(
				"unlisted type",
				Definition{Types: []uuid.UUID{typeA.ID}},
				event.CommittedEvent{Type: typeB},
				false,
			),
		)
	})
})

var _ = Describe("type EventSourceResolver", func() {
	ev := event.CommittedEvent{EventSource: "<source>"}

	It("uses the event source as the partition of a partitioned stream", func() {
		p := EventSourceResolver{}.Resolve(ev, Definition{Partitioned: true})
		Expect(p).To(Equal(PartitionID("<source>")))
	})

	It("returns NotSet for an unpartitioned stream", func() {
		p := EventSourceResolver{}.Resolve(ev, Definition{})
		Expect(p).To(Equal(NotSet))
	})
})

var _ = Describe("type ResolverFunc", func() {
	It("calls the function", func() {
		r := ResolverFunc(func(ev event.CommittedEvent, d Definition) PartitionID {
			return PartitionID(ev.Type.String())
		})

		p := r.Resolve(event.CommittedEvent{Type: typeA}, Definition{})
		Expect(p).To(Equal(PartitionID(typeA.String())))
	})
})
