package streamprocessor

import "time"

var (
	// DefaultConcurrency is the default maximum number of events that a
	// processor handles at the same time.
	DefaultConcurrency = 5

	// DefaultInfrastructureFailureBackoff is the default delay before
	// retrying an event that could not be handled because of a failure in
	// the processor's own infrastructure, such as an error reading the
	// stream.
	DefaultInfrastructureFailureBackoff = 1 * time.Second

	// DefaultNotificationPollInterval is the default interval at which a
	// processor that has reached the end of its stream checks for new events,
	// in case it misses a change notification.
	DefaultNotificationPollInterval = 1 * time.Second

	// DefaultShutdownPersistTimeout is the default timeout for the final
	// attempt to persist a processor's state when it stops.
	DefaultShutdownPersistTimeout = 5 * time.Second
)

// Limits bounds the number of events that a processor handles concurrently.
type Limits struct {
	// Concurrency is the maximum number of in-flight handler invocations.
	// If it is zero, DefaultConcurrency is used.
	Concurrency int

	// RetryConcurrency is the maximum number of in-flight handler invocations
	// that may be retries of failing partitions. If it is zero, it defaults
	// to one less than Concurrency, but never less than one.
	RetryConcurrency int
}

// normalize returns a copy of l with defaults applied.
func (l Limits) normalize() Limits {
	if l.Concurrency <= 0 {
		l.Concurrency = DefaultConcurrency
	}

	if l.RetryConcurrency <= 0 {
		l.RetryConcurrency = l.Concurrency - 1
	}

	if l.RetryConcurrency < 1 {
		l.RetryConcurrency = 1
	}

	if l.RetryConcurrency > l.Concurrency {
		l.RetryConcurrency = l.Concurrency
	}

	return l
}
