package streamprocessor

import (
	"time"

	"github.com/dogmatiq/eventcore/stream"
)

// Action is the next step taken by a processor's dispatch loop.
type Action int

const (
	// Wait blocks until a new event arrives, a retry becomes due or an
	// in-flight dispatch completes.
	Wait Action = iota

	// ProcessNextEvent dispatches the next event in the stream.
	ProcessNextEvent

	// ProcessFailedEvent retries the event of a failing partition.
	ProcessFailedEvent

	// ReceiveResult applies the result of a completed dispatch.
	ReceiveResult
)

func (a Action) String() string {
	switch a {
	case Wait:
		return "wait"
	case ProcessNextEvent:
		return "process-next-event"
	case ProcessFailedEvent:
		return "process-failed-event"
	case ReceiveResult:
		return "receive-result"
	default:
		return "unknown"
	}
}

// DispatchKind describes why an event was dispatched.
type DispatchKind int

const (
	// Fresh is a dispatch of the next event in the stream.
	Fresh DispatchKind = iota

	// Retry is a dispatch of an event from a failing partition.
	Retry
)

func (k DispatchKind) String() string {
	if k == Retry {
		return "retry"
	}
	return "fresh"
}

// PendingEvent is the next event in the stream, which has been read but not
// yet dispatched.
type PendingEvent struct {
	Position  stream.Position
	Partition stream.PartitionID
}

// DecisionInput is the information about a processor's dispatch loop that
// Decide() needs in addition to its State.
type DecisionInput struct {
	// Now is the current time.
	Now time.Time

	// Pending is the next event in the stream, or nil if none is available.
	Pending *PendingEvent

	// InFlight is the set of partitions that have a dispatch in flight.
	InFlight map[stream.PartitionID]DispatchKind

	// Completed is the number of completed dispatches whose results have not
	// yet been applied.
	Completed int

	// Limits bounds the number of in-flight dispatches.
	Limits Limits
}

// Decision is the result of Decide().
type Decision struct {
	Action Action

	// Partition is the partition to dispatch, if Action is ProcessNextEvent
	// or ProcessFailedEvent.
	Partition stream.PartitionID

	// WakeAt is the earliest time at which a failing partition becomes due
	// for retry, if Action is Wait. It is the zero value if no retry is
	// scheduled.
	WakeAt time.Time
}

// Decide returns the next action that a processor's dispatch loop takes.
//
// Due retries take precedence over new events, as long as a retry slot is
// free. At most one dispatch per partition is in flight at any time.
func Decide(s State, in DecisionInput) Decision {
	limits := in.Limits.normalize()

	total := len(in.InFlight)
	retries := 0
	for _, k := range in.InFlight {
		if k == Retry {
			retries++
		}
	}

	if total < limits.Concurrency && retries < limits.RetryConcurrency {
		if id, ok := nextDue(s, in); ok {
			return Decision{
				Action:    ProcessFailedEvent,
				Partition: id,
			}
		}
	}

	if total < limits.Concurrency && in.Pending != nil {
		if _, ok := in.InFlight[in.Pending.Partition]; !ok {
			return Decision{
				Action:    ProcessNextEvent,
				Partition: in.Pending.Partition,
			}
		}
	}

	if in.Completed > 0 {
		return Decision{Action: ReceiveResult}
	}

	return Decision{
		Action: Wait,
		WakeAt: nextWake(s, in),
	}
}

// nextDue returns the failing partition that should be retried next.
func nextDue(s State, in DecisionInput) (stream.PartitionID, bool) {
	var (
		id    stream.PartitionID
		at    time.Time
		found bool
	)

	for pid, p := range s.FailingPartitions {
		if _, ok := in.InFlight[pid]; ok {
			continue
		}

		if p.IsParked() || p.RetryTime.After(in.Now) {
			continue
		}

		if !found ||
			p.RetryTime.Before(at) ||
			(p.RetryTime.Equal(at) && pid < id) {
			id, at, found = pid, p.RetryTime, true
		}
	}

	return id, found
}

// nextWake returns the earliest retry time that is not yet due.
func nextWake(s State, in DecisionInput) time.Time {
	var at time.Time

	for pid, p := range s.FailingPartitions {
		if _, ok := in.InFlight[pid]; ok {
			continue
		}

		if p.IsParked() || !p.RetryTime.After(in.Now) {
			continue
		}

		if at.IsZero() || p.RetryTime.Before(at) {
			at = p.RetryTime
		}
	}

	return at
}
