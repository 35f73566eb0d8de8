package streamprocessor

import "time"

// Result is the outcome of a handler's attempt to process an event.
type Result struct {
	failed       bool
	reason       string
	retry        bool
	retryTimeout time.Duration
}

// Succeeded returns a result indicating that the event was processed
// successfully.
func Succeeded() Result {
	return Result{}
}

// Failed returns a result indicating that the event could not be processed.
//
// If retry is true the event is retried after at least retryTimeout has
// elapsed. Otherwise, the partition is parked until it is replayed.
func Failed(reason string, retry bool, retryTimeout time.Duration) Result {
	return Result{
		failed:       true,
		reason:       reason,
		retry:        retry,
		retryTimeout: retryTimeout,
	}
}

// IsSuccess returns true if the event was processed successfully.
func (r Result) IsSuccess() bool {
	return !r.failed
}

// Reason returns the reason for the failure.
func (r Result) Reason() string {
	return r.reason
}

// Retry returns true if the handler requested that the event be retried.
func (r Result) Retry() bool {
	return r.retry
}

// RetryTimeout returns the minimum delay before the event is retried.
func (r Result) RetryTimeout() time.Duration {
	return r.retryTimeout
}
