package event_test

import (
	. "github.com/dogmatiq/eventcore/event"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type UncommittedEvents", func() {
	Describe("func Validate()", func() {
		It("returns ErrNoEvents if there are no events", func() {
			err := UncommittedEvents{}.Validate()
			Expect(err).To(Equal(ErrNoEvents))
		})

		It("returns an error if an event has no event source", func() {
			err := UncommittedEvents{
				{EventSource: "<source>"},
				{},
			}.Validate()
			Expect(err).To(MatchError("event at index 1 has an empty event source"))
		})

		It("returns nil if the events are valid", func() {
			err := UncommittedEvents{
				{EventSource: "<source>"},
			}.Validate()
			Expect(err).ShouldNot(HaveOccurred())
		})
	})
})

var _ = Describe("type UncommittedAggregateEvents", func() {
	Describe("func NextVersion()", func() {
		It("adds the number of events to the expected version", func() {
			e := UncommittedAggregateEvents{
				ExpectedVersion: 3,
				Events:          make([]UncommittedEvent, 2),
			}
			Expect(e.NextVersion()).To(BeEquivalentTo(5))
		})
	})

	Describe("func Validate()", func() {
		It("returns an error if an event belongs to a different source", func() {
			err := UncommittedAggregateEvents{
				EventSource: "<source>",
				Events: []UncommittedEvent{
					{EventSource: "<other>"},
				},
			}.Validate()
			Expect(err).To(MatchError("event at index 0 has event source '<other>', expected '<source>'"))
		})

		It("accepts events with an empty event source", func() {
			err := UncommittedAggregateEvents{
				EventSource: "<source>",
				Events:      []UncommittedEvent{{}},
			}.Validate()
			Expect(err).ShouldNot(HaveOccurred())
		})
	})
})
