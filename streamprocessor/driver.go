package streamprocessor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/eventcore/retry"
	"github.com/dogmatiq/eventcore/stream"
	"github.com/dogmatiq/linger/backoff"
)

// Status is the lifecycle status of a Driver.
type Status int

const (
	// New is the status of a driver that has not been started.
	New Status = iota

	// Running is the status of a driver that is processing events.
	Running

	// Stopped is the status of a driver that has finished processing.
	Stopped
)

func (s Status) String() string {
	switch s {
	case New:
		return "new"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Driver runs a single stream processor.
type Driver struct {
	// ID identifies the processor.
	ID ID

	// Stream is the stream that the processor consumes.
	Stream stream.Stream

	// Handler processes the events in the stream.
	Handler Handler

	// Repository stores the processor's state.
	Repository StateRepository

	// Limits bounds the number of events handled concurrently.
	Limits Limits

	// RetryPolicy determines when failing partitions are retried. If it is
	// nil, retry.HandlerDirected is used.
	RetryPolicy retry.Policy

	// InfrastructureFailureBackoff is the delay before retrying an event that
	// could not be read from the stream. If it is zero,
	// DefaultInfrastructureFailureBackoff is used.
	InfrastructureFailureBackoff time.Duration

	// NotificationPollInterval is the interval at which the stream is checked
	// for new events when the processor has caught up. If it is zero,
	// DefaultNotificationPollInterval is used.
	NotificationPollInterval time.Duration

	// BackoffStrategy is the strategy used to delay reading the stream after
	// a failure. If it is nil, backoff.DefaultStrategy is used.
	BackoffStrategy backoff.Strategy

	// Metrics records the processor's activity. It may be nil.
	Metrics *Metrics

	// Logger is the target for log messages about the processor.
	// If it is nil, logging.DefaultLogger is used.
	Logger logging.Logger

	state  atomic.Pointer[State]
	status atomic.Int32

	m       sync.Mutex
	replays map[stream.PartitionID]struct{}
	wake    chan struct{}
}

// BeginProcessing processes events from the stream until ctx is canceled.
//
// On cancellation it waits for in-flight handlers to return and makes a final
// attempt to persist the processor's state. It always returns a non-nil
// error, which is ctx.Err() if the processor stopped because of
// cancellation.
func (d *Driver) BeginProcessing(ctx context.Context) error {
	if !d.transition(New, Running) {
		return fmt.Errorf("the '%s' stream processor has already been started", d.ID)
	}
	defer d.transition(Running, Stopped)

	s, err := d.load(ctx)
	if err != nil {
		return err
	}

	l := newLoop(ctx, d, s)
	return l.run()
}

// CurrentState returns a snapshot of the processor's state.
func (d *Driver) CurrentState() State {
	if s := d.state.Load(); s != nil {
		return *s
	}
	return State{}
}

// Status returns the processor's lifecycle status.
func (d *Driver) Status() Status {
	return Status(d.status.Load())
}

// Replay schedules the failing partition p for an immediate retry, even if it
// is parked.
//
// If the processor is not running, its persisted state is updated directly.
// It is not an error to replay a partition that is not failing.
func (d *Driver) Replay(ctx context.Context, p stream.PartitionID) error {
	d.m.Lock()

	if d.Status() == Running {
		if d.replays == nil {
			d.replays = map[stream.PartitionID]struct{}{}
		}
		d.replays[p] = struct{}{}

		select {
		case d.wakeSignal() <- struct{}{}:
		default:
		}

		d.m.Unlock()
		return nil
	}

	defer d.m.Unlock()

	s, ok, err := d.Repository.TryGet(ctx, d.ID)
	if err != nil || !ok {
		return err
	}

	fp, ok := s.FailingPartitions[p]
	if !ok {
		return nil
	}

	fp.RetryTime = time.Now()
	s = s.WithFailingPartition(p, fp)

	if err := d.Repository.Persist(ctx, d.ID, s); err != nil {
		return err
	}

	d.state.Store(&s)
	return nil
}

// load loads the processor's state, retrying with backoff until it succeeds
// or ctx is canceled.
func (d *Driver) load(ctx context.Context) (State, error) {
	counter := backoff.Counter{
		Strategy: d.BackoffStrategy,
	}

	for {
		s, ok, err := d.Repository.TryGet(ctx, d.ID)
		if err == nil {
			if !ok {
				logging.Debug(d.Logger, "starting from the beginning of the '%s' stream", d.ID.SourceStream)
			}
			return s, nil
		}

		if ctx.Err() != nil {
			return State{}, ctx.Err()
		}

		logging.Log(d.Logger, "unable to load state: %s", err)

		if err := counter.Sleep(ctx, err); err != nil {
			return State{}, err
		}
	}
}

// transition changes the driver's status from 'from' to 'to'.
func (d *Driver) transition(from, to Status) bool {
	d.m.Lock()
	defer d.m.Unlock()

	return d.status.CompareAndSwap(int32(from), int32(to))
}

// takeReplays returns the partitions that have been replayed since the last
// call.
func (d *Driver) takeReplays() []stream.PartitionID {
	d.m.Lock()
	defer d.m.Unlock()

	var partitions []stream.PartitionID
	for p := range d.replays {
		partitions = append(partitions, p)
	}
	d.replays = nil

	return partitions
}

// wakeSignal returns a channel that receives a value when a replay is
// requested.
func (d *Driver) wakeSignal() chan struct{} {
	if d.wake == nil {
		d.wake = make(chan struct{}, 1)
	}
	return d.wake
}
