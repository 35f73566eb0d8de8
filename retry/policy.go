package retry

import (
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/dogmatiq/linger/backoff"
)

// Never is the retry time of a failure that is not retried automatically.
//
// A failing partition with this retry time is "parked" until it is explicitly
// replayed.
var Never = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)

// IsNever returns true if t is the Never retry time, or later.
func IsNever(t time.Time) bool {
	return !t.Before(Never)
}

// Failure describes a failed attempt to process an event.
type Failure struct {
	// Attempts is the number of failed attempts, including this one.
	Attempts uint64

	// Reason is a human-readable description of the failure.
	Reason string

	// Retry is true if the handler requested that the event be retried.
	Retry bool

	// RetryTimeout is the delay the handler requested before the next
	// attempt.
	RetryTimeout time.Duration
}

// Policy is an interface for determining when failed events should next be
// retried.
type Policy interface {
	// NextRetry returns the time at which the event should next be retried,
	// or Never if it should not be retried automatically.
	NextRetry(now time.Time, f Failure) time.Time
}

// HandlerDirected is a retry policy that retries exactly as requested by the
// handler.
//
// It never gives up on a failure that the handler wants retried.
type HandlerDirected struct{}

// NextRetry returns the time at which the event should next be retried.
func (HandlerDirected) NextRetry(now time.Time, f Failure) time.Time {
	if !f.Retry {
		return Never
	}

	return now.Add(f.RetryTimeout)
}

// MaxAttempts is a retry policy that stops retrying after a fixed number of
// attempts.
type MaxAttempts struct {
	// Policy is the policy used while attempts remain. If it is nil,
	// HandlerDirected is used.
	Policy Policy

	// Max is the maximum number of attempts.
	Max uint64
}

// NextRetry returns the time at which the event should next be retried.
func (p MaxAttempts) NextRetry(now time.Time, f Failure) time.Time {
	if f.Attempts >= p.Max {
		return Never
	}

	if p.Policy == nil {
		return HandlerDirected{}.NextRetry(now, f)
	}

	return p.Policy.NextRetry(now, f)
}

// ExponentialBackoff is a retry policy that uses exponential backoff.
//
// The handler's requested timeout is used as a lower bound on the delay.
type ExponentialBackoff struct {
	Min    time.Duration
	Max    time.Duration
	Jitter float64
}

// NextRetry returns the time at which the event should next be retried.
func (p ExponentialBackoff) NextRetry(now time.Time, f Failure) time.Time {
	if !f.Retry {
		return Never
	}

	n := 0
	if f.Attempts > 0 {
		n = int(f.Attempts - 1)
	}

	d := p.delay(n)
	if d < f.RetryTimeout {
		d = f.RetryTimeout
	}

	return now.Add(d)
}

// delay returns the time to delay an event that has failed on the n'th retry.
func (p ExponentialBackoff) delay(n int) time.Duration {
	s := math.Pow(2, float64(n)) * p.Min.Seconds()

	if s > p.Max.Seconds() {
		s = p.Max.Seconds()
	}

	s *= 1 + (rand.Float64() * p.Jitter)

	return time.Duration(
		s * float64(time.Second),
	)
}

// Backoff is a retry policy that delays each retry according to a backoff
// strategy.
//
// The strategy is called with the failure reason and the number of attempts
// so far. The handler's requested timeout is used as a lower bound on the
// delay.
type Backoff struct {
	// Strategy computes the delay. If it is nil, backoff.DefaultStrategy is
	// used.
	Strategy backoff.Strategy
}

// NextRetry returns the time at which the event should next be retried.
func (p Backoff) NextRetry(now time.Time, f Failure) time.Time {
	if !f.Retry {
		return Never
	}

	s := p.Strategy
	if s == nil {
		s = backoff.DefaultStrategy
	}

	d := s(errors.New(f.Reason), uint(f.Attempts))
	if d < f.RetryTimeout {
		d = f.RetryTimeout
	}

	return now.Add(d)
}
