package streamprocessor_test

import (
	"time"

	"github.com/dogmatiq/eventcore/retry"
	"github.com/dogmatiq/eventcore/stream"
	. "github.com/dogmatiq/eventcore/streamprocessor"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("func Decide()", func() {
	now := time.Date(2023, 6, 7, 8, 9, 10, 0, time.UTC)

	failing := func(retryTime time.Time) FailingPartition {
		return FailingPartition{
			Position:           3,
			RetryTime:          retryTime,
			Reason:             "<reason>",
			ProcessingAttempts: 1,
			LastFailed:         now.Add(-time.Minute),
		}
	}

	pending := func(p stream.PartitionID) *PendingEvent {
		return &PendingEvent{Position: 10, Partition: p}
	}

	DescribeTable(
		"it returns the expected decision",
		func(s State, in DecisionInput, expect Decision) {
			in.Now = now
			Expect(Decide(s, in)).To(Equal(expect))
		},
		Entry(
			"waits when there is nothing to do",
			State{},
			DecisionInput{},
			Decision{Action: Wait},
		),
		Entry(
			"processes the pending event",
			State{},
			DecisionInput{Pending: pending("<a>")},
			Decision{Action: ProcessNextEvent, Partition: "<a>"},
		),
		Entry(
			"processes the pending event when other partitions are in flight",
			State{},
			DecisionInput{
				Pending:  pending("<a>"),
				InFlight: map[stream.PartitionID]DispatchKind{"<b>": Fresh},
			},
			Decision{Action: ProcessNextEvent, Partition: "<a>"},
		),
		Entry(
			"does not process the pending event when its partition is in flight",
			State{},
			DecisionInput{
				Pending:  pending("<a>"),
				InFlight: map[stream.PartitionID]DispatchKind{"<a>": Fresh},
			},
			Decision{Action: Wait},
		),
		Entry(
			"receives a result when the pending event's partition is in flight",
			State{},
			DecisionInput{
				Pending:   pending("<a>"),
				InFlight:  map[stream.PartitionID]DispatchKind{"<a>": Fresh},
				Completed: 1,
			},
			Decision{Action: ReceiveResult},
		),
		Entry(
			"receives a result when the concurrency limit is reached",
			State{},
			DecisionInput{
				Pending:   pending("<c>"),
				InFlight:  map[stream.PartitionID]DispatchKind{"<a>": Fresh, "<b>": Fresh},
				Completed: 1,
				Limits:    Limits{Concurrency: 2},
			},
			Decision{Action: ReceiveResult},
		),
		Entry(
			"waits when the concurrency limit is reached and no results are available",
			State{},
			DecisionInput{
				Pending:  pending("<c>"),
				InFlight: map[stream.PartitionID]DispatchKind{"<a>": Fresh, "<b>": Fresh},
				Limits:   Limits{Concurrency: 2},
			},
			Decision{Action: Wait},
		),
		Entry(
			"prefers a due failing partition over the pending event",
			State{
				FailingPartitions: FailingPartitions{"<a>": failing(now)},
			},
			DecisionInput{Pending: pending("<b>")},
			Decision{Action: ProcessFailedEvent, Partition: "<a>"},
		),
		Entry(
			"prefers a due failing partition over receiving a result",
			State{
				FailingPartitions: FailingPartitions{"<a>": failing(now.Add(-time.Second))},
			},
			DecisionInput{Completed: 1},
			Decision{Action: ProcessFailedEvent, Partition: "<a>"},
		),
		Entry(
			"does not retry a failing partition that is in flight",
			State{
				FailingPartitions: FailingPartitions{"<a>": failing(now)},
			},
			DecisionInput{
				InFlight: map[stream.PartitionID]DispatchKind{"<a>": Retry},
			},
			Decision{Action: Wait},
		),
		Entry(
			"processes the pending event when the retry budget is occupied",
			State{
				FailingPartitions: FailingPartitions{
					"<a>": failing(now),
					"<c>": failing(now),
				},
			},
			DecisionInput{
				Pending:  pending("<b>"),
				InFlight: map[stream.PartitionID]DispatchKind{"<c>": Retry},
				Limits:   Limits{Concurrency: 2},
			},
			Decision{Action: ProcessNextEvent, Partition: "<b>"},
		),
		Entry(
			"retries when an explicit retry concurrency allows it",
			State{
				FailingPartitions: FailingPartitions{
					"<a>": failing(now),
					"<c>": failing(now),
				},
			},
			DecisionInput{
				Pending:  pending("<b>"),
				InFlight: map[stream.PartitionID]DispatchKind{"<c>": Retry},
				Limits:   Limits{Concurrency: 3, RetryConcurrency: 2},
			},
			Decision{Action: ProcessFailedEvent, Partition: "<a>"},
		),
		Entry(
			"does not retry when the concurrency limit is reached",
			State{
				FailingPartitions: FailingPartitions{"<a>": failing(now)},
			},
			DecisionInput{
				InFlight: map[stream.PartitionID]DispatchKind{"<b>": Fresh},
				Limits:   Limits{Concurrency: 1},
			},
			Decision{Action: Wait},
		),
		Entry(
			"retries the partition with the earliest retry time first",
			State{
				FailingPartitions: FailingPartitions{
					"<a>": failing(now),
					"<b>": failing(now.Add(-time.Second)),
				},
			},
			DecisionInput{},
			Decision{Action: ProcessFailedEvent, Partition: "<b>"},
		),
		Entry(
			"breaks retry time ties by partition ID",
			State{
				FailingPartitions: FailingPartitions{
					"<b>": failing(now),
					"<a>": failing(now),
				},
			},
			DecisionInput{},
			Decision{Action: ProcessFailedEvent, Partition: "<a>"},
		),
		Entry(
			"processes the pending event before a failing partition is due",
			State{
				FailingPartitions: FailingPartitions{"<a>": failing(now.Add(time.Second))},
			},
			DecisionInput{Pending: pending("<b>")},
			Decision{Action: ProcessNextEvent, Partition: "<b>"},
		),
		Entry(
			"waits until the earliest retry time",
			State{
				FailingPartitions: FailingPartitions{
					"<a>": failing(now.Add(2 * time.Second)),
					"<b>": failing(now.Add(1 * time.Second)),
				},
			},
			DecisionInput{},
			Decision{Action: Wait, WakeAt: now.Add(1 * time.Second)},
		),
		Entry(
			"does not wait for a partition that is in flight",
			State{
				FailingPartitions: FailingPartitions{
					"<a>": failing(now.Add(2 * time.Second)),
					"<b>": failing(now.Add(1 * time.Second)),
				},
			},
			DecisionInput{
				InFlight: map[stream.PartitionID]DispatchKind{"<b>": Retry},
			},
			Decision{Action: Wait, WakeAt: now.Add(2 * time.Second)},
		),
		Entry(
			"never retries or waits for a parked partition",
			State{
				FailingPartitions: FailingPartitions{"<a>": failing(retry.Never)},
			},
			DecisionInput{},
			Decision{Action: Wait},
		),
		Entry(
			"uses the default concurrency when none is given",
			State{},
			DecisionInput{
				Pending: pending("<e>"),
				InFlight: map[stream.PartitionID]DispatchKind{
					"<a>": Fresh,
					"<b>": Fresh,
					"<c>": Fresh,
					"<d>": Fresh,
				},
			},
			Decision{Action: ProcessNextEvent, Partition: "<e>"},
		),
	)

	It("retries a partition once its retry timeout elapses", func() {
		s := State{
			FailingPartitions: FailingPartitions{
				"<a>": failing(now.Add(1 * time.Second)),
			},
		}

		in := DecisionInput{
			Now:     now,
			Pending: pending("<b>"),
		}

		Expect(Decide(s, in).Action).To(Equal(ProcessNextEvent))

		in.Now = now.Add(1 * time.Second)
		Expect(Decide(s, in)).To(Equal(Decision{
			Action:    ProcessFailedEvent,
			Partition: "<a>",
		}))
	})
})

var _ = Describe("type Action", func() {
	DescribeTable(
		"func String()",
		func(a Action, expect string) {
			Expect(a.String()).To(Equal(expect))
		},
		Entry("wait", Wait, "wait"),
		Entry("process-next-event", ProcessNextEvent, "process-next-event"),
		Entry("process-failed-event", ProcessFailedEvent, "process-failed-event"),
		Entry("receive-result", ReceiveResult, "receive-result"),
	)
})
