package streamprocessor

import (
	"time"

	"github.com/dogmatiq/eventcore/retry"
	"github.com/dogmatiq/eventcore/stream"
)

// State is the progress of a stream processor.
//
// State values are immutable. Each transition returns a new State.
type State struct {
	// Position is the position of the earliest event in the stream that has
	// not been finished. Every event before it has either been processed or
	// is tracked by a failing partition.
	Position stream.Position

	// FailingPartitions is the set of partitions that are currently failing.
	FailingPartitions FailingPartitions

	// LastSuccessfullyProcessed is the time at which an event was last
	// processed successfully.
	LastSuccessfullyProcessed time.Time
}

// FailingPartition is the state of a partition that has failed to process an
// event.
type FailingPartition struct {
	// Position is the position of the next event in the partition that needs
	// to be processed.
	Position stream.Position

	// RetryTime is the time at which the event should be retried. It is
	// retry.Never if the partition is parked.
	RetryTime time.Time

	// Reason is the reason given for the most recent failure.
	Reason string

	// ProcessingAttempts is the number of failed attempts to process the
	// event at Position.
	ProcessingAttempts uint64

	// LastFailed is the time of the most recent failure.
	LastFailed time.Time
}

// IsParked returns true if the partition will not be retried until it is
// replayed.
func (p FailingPartition) IsParked() bool {
	return retry.IsNever(p.RetryTime)
}

// FailingPartitions is a set of failing partitions, keyed by partition ID.
//
// It must not be modified in place. Use With() and Without() to produce
// modified copies.
type FailingPartitions map[stream.PartitionID]FailingPartition

// With returns a copy of fp with the state of the partition id set to p.
func (fp FailingPartitions) With(id stream.PartitionID, p FailingPartition) FailingPartitions {
	c := make(FailingPartitions, len(fp)+1)
	for k, v := range fp {
		c[k] = v
	}
	c[id] = p
	return c
}

// Without returns a copy of fp that does not contain the partition id.
func (fp FailingPartitions) Without(id stream.PartitionID) FailingPartitions {
	if _, ok := fp[id]; !ok {
		return fp
	}

	c := make(FailingPartitions, len(fp))
	for k, v := range fp {
		if k != id {
			c[k] = v
		}
	}
	return c
}

// IsFailing returns true if the partition id is failing.
func (s State) IsFailing(id stream.PartitionID) bool {
	_, ok := s.FailingPartitions[id]
	return ok
}

// WithPosition returns a copy of s with the given position.
func (s State) WithPosition(pos stream.Position) State {
	s.Position = pos
	return s
}

// WithFailingPartition returns a copy of s with the state of the partition id
// set to p.
func (s State) WithFailingPartition(id stream.PartitionID, p FailingPartition) State {
	s.FailingPartitions = s.FailingPartitions.With(id, p)
	return s
}

// WithoutFailingPartition returns a copy of s in which the partition id is not
// failing.
func (s State) WithoutFailingPartition(id stream.PartitionID) State {
	s.FailingPartitions = s.FailingPartitions.Without(id)
	return s
}

// WithLastSuccessfullyProcessed returns a copy of s with the given
// last-success time.
func (s State) WithLastSuccessfullyProcessed(t time.Time) State {
	s.LastSuccessfullyProcessed = t
	return s
}
