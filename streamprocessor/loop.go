package streamprocessor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/eventcore/internal/x/loggingx"
	"github.com/dogmatiq/eventcore/retry"
	"github.com/dogmatiq/eventcore/stream"
	"github.com/dogmatiq/linger/backoff"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// loop is the dispatch loop of a single run of a Driver.
//
// All fields are owned by the goroutine that calls run(), except those
// documented otherwise.
type loop struct {
	ctx          context.Context
	driver       *Driver
	logger       logging.Logger
	limits       Limits
	policy       retry.Policy
	infraBackoff time.Duration
	pollInterval time.Duration
	wake         <-chan struct{}

	state State
	dirty bool

	// readCursor is the position of the next event to read from the stream.
	readCursor stream.Position
	pending    *stream.Event
	caughtUp   bool
	changed    <-chan struct{}
	backoff    backoff.Counter

	// unfinished is the set of positions of fresh dispatches that have not
	// completed. The state's position is the lowest of these, or the read
	// cursor if there are none.
	unfinished map[stream.Position]struct{}
	inFlight   map[stream.PartitionID]DispatchKind

	// completions is written by the dispatch goroutines. Its capacity is the
	// concurrency limit, so sends never block.
	completions chan completion
	sem         *semaphore.Weighted
	group       errgroup.Group
}

// completion is the result of a dispatch.
type completion struct {
	kind      DispatchKind
	partition stream.PartitionID

	// position is the position of the dispatched event. For a retry that
	// found no event it is the read cursor at the time of dispatch.
	position stream.Position
	found    bool
	result   Result

	// canceled is true if the processor was stopping when the dispatch
	// completed.
	canceled bool
}

func newLoop(ctx context.Context, d *Driver, s State) *loop {
	limits := d.Limits.normalize()

	l := &loop{
		ctx:          ctx,
		driver:       d,
		logger:       loggingx.Prefix{Target: d.Logger, Text: fmt.Sprintf("[%s] ", d.ID)},
		limits:       limits,
		policy:       d.RetryPolicy,
		infraBackoff: d.InfrastructureFailureBackoff,
		pollInterval: d.NotificationPollInterval,
		state:        s,
		readCursor:   s.Position,
		backoff:      backoff.Counter{Strategy: d.BackoffStrategy},
		unfinished:   map[stream.Position]struct{}{},
		inFlight:     map[stream.PartitionID]DispatchKind{},
		completions:  make(chan completion, limits.Concurrency),
		sem:          semaphore.NewWeighted(int64(limits.Concurrency)),
	}

	if l.policy == nil {
		l.policy = retry.HandlerDirected{}
	}

	if l.infraBackoff == 0 {
		l.infraBackoff = DefaultInfrastructureFailureBackoff
	}

	if l.pollInterval == 0 {
		l.pollInterval = DefaultNotificationPollInterval
	}

	d.m.Lock()
	l.wake = d.wakeSignal()
	d.m.Unlock()

	d.state.Store(&s)
	d.Metrics.observe(d.ID, s)

	return l
}

// run processes events until l.ctx is canceled.
func (l *loop) run() error {
	logging.Debug(
		l.logger,
		"processing from position %d with %d failing partition(s)",
		l.state.Position,
		len(l.state.FailingPartitions),
	)

	for {
		if l.ctx.Err() != nil {
			return l.stop()
		}

		l.applyReplays()

		if l.pending == nil && !l.caughtUp {
			if err := l.readNext(); err != nil {
				if l.ctx.Err() != nil {
					return l.stop()
				}

				logging.Log(l.logger, "unable to read position %d: %s", l.readCursor, err)

				if err := l.backoff.Sleep(l.ctx, err); err != nil {
					return l.stop()
				}

				continue
			}
		}

		d := Decide(l.state, l.input(time.Now()))

		switch d.Action {
		case ProcessNextEvent:
			if err := l.processNext(); err != nil {
				return l.stop()
			}
		case ProcessFailedEvent:
			if err := l.processFailed(d.Partition); err != nil {
				return l.stop()
			}
		case ReceiveResult:
			l.apply(<-l.completions)
		case Wait:
			l.wait(d.WakeAt)
		}

		if l.ctx.Err() == nil {
			l.persist(l.ctx)
		}
	}
}

// stop waits for in-flight dispatches to complete, applies their results and
// makes a final attempt to persist the state.
func (l *loop) stop() error {
	l.group.Wait() // dispatches never return errors

	for len(l.completions) > 0 {
		l.apply(<-l.completions)
	}

	ctx, cancel := context.WithTimeout(
		context.WithoutCancel(l.ctx),
		DefaultShutdownPersistTimeout,
	)
	defer cancel()

	l.persist(ctx)

	logging.Debug(l.logger, "stopped at position %d", l.state.Position)

	return l.ctx.Err()
}

// input returns the information needed by Decide().
func (l *loop) input(now time.Time) DecisionInput {
	in := DecisionInput{
		Now:       now,
		InFlight:  l.inFlight,
		Completed: len(l.completions),
		Limits:    l.limits,
	}

	if l.pending != nil {
		in.Pending = &PendingEvent{
			Position:  l.pending.Position,
			Partition: l.pending.Partition,
		}
	}

	return in
}

// readNext reads the event at the read cursor.
//
// If there is no such event, l.caughtUp is set to true.
func (l *loop) readNext() error {
	// Capture the notification channel before reading, so that an event
	// appended after the read is not missed.
	l.changed = l.driver.Stream.Changed()

	ev, err := l.driver.Stream.FetchAt(l.ctx, l.readCursor)
	if err != nil {
		var nf stream.NotFoundAtPositionError
		if errors.As(err, &nf) {
			l.caughtUp = true
			return nil
		}
		return err
	}

	l.backoff.Reset()
	l.pending = &ev

	return nil
}

// wait blocks until something happens that may change the next decision.
func (l *loop) wait(wakeAt time.Time) {
	var due <-chan time.Time
	if !wakeAt.IsZero() {
		t := time.NewTimer(time.Until(wakeAt))
		defer t.Stop()
		due = t.C
	}

	var (
		changed <-chan struct{}
		poll    <-chan time.Time
	)
	if l.caughtUp {
		changed = l.changed

		t := time.NewTimer(l.pollInterval)
		defer t.Stop()
		poll = t.C
	}

	select {
	case <-l.ctx.Done():
	case c := <-l.completions:
		l.apply(c)
	case <-changed:
		l.caughtUp = false
	case <-poll:
		l.caughtUp = false
	case <-due:
	case <-l.wake:
	}
}

// processNext dispatches the pending event.
//
// If the event's partition is failing the event is skipped. It is handled
// later, when the failing partition catches up.
func (l *loop) processNext() error {
	ev := *l.pending
	l.pending = nil
	l.readCursor = ev.Position + 1

	if l.state.IsFailing(ev.Partition) {
		logging.Debug(
			l.logger,
			"deferred event at position %d, partition '%s' is failing",
			ev.Position,
			ev.Partition,
		)

		l.driver.Metrics.skipped(l.driver.ID)
		l.updatePosition()

		return nil
	}

	l.unfinished[ev.Position] = struct{}{}

	return l.dispatch(
		ev.Partition,
		Fresh,
		func(ctx context.Context) completion {
			return completion{
				kind:      Fresh,
				partition: ev.Partition,
				position:  ev.Position,
				found:     true,
				result: l.driver.Handler.Process(
					ctx,
					ev.Event,
					ev.Partition,
					ev.Position,
					"",
					0,
					ev.Event.ExecutionContext,
				),
			}
		},
	)
}

// processFailed dispatches the next event of the failing partition p.
func (l *loop) processFailed(p stream.PartitionID) error {
	fp := l.state.FailingPartitions[p]
	limit := l.readCursor

	return l.dispatch(
		p,
		Retry,
		func(ctx context.Context) completion {
			return l.retry(ctx, p, fp, limit)
		},
	)
}

// retry finds the first event of partition p at or after fp.Position and
// before limit, and passes it to the handler.
//
// It is called on a dispatch goroutine.
func (l *loop) retry(
	ctx context.Context,
	p stream.PartitionID,
	fp FailingPartition,
	limit stream.Position,
) completion {
	for pos := fp.Position; pos < limit; pos++ {
		ev, err := l.driver.Stream.FetchAt(ctx, pos)
		if err != nil {
			return completion{
				kind:      Retry,
				partition: p,
				position:  pos,
				found:     true,
				result: Failed(
					fmt.Sprintf("unable to read position %d: %s", pos, err),
					true,
					l.infraBackoff,
				),
			}
		}

		if ev.Partition != p {
			continue
		}

		return completion{
			kind:      Retry,
			partition: p,
			position:  pos,
			found:     true,
			result: l.driver.Handler.Process(
				ctx,
				ev.Event,
				p,
				pos,
				fp.Reason,
				fp.ProcessingAttempts,
				ev.Event.ExecutionContext,
			),
		}
	}

	return completion{
		kind:      Retry,
		partition: p,
		position:  limit,
	}
}

// dispatch calls fn on a new goroutine, recording p as in flight.
func (l *loop) dispatch(
	p stream.PartitionID,
	k DispatchKind,
	fn func(context.Context) completion,
) error {
	if err := l.sem.Acquire(l.ctx, 1); err != nil {
		return err
	}

	l.inFlight[p] = k
	l.driver.Metrics.dispatched(l.driver.ID)

	ctx := l.ctx
	l.group.Go(func() error {
		defer l.sem.Release(1)

		c := fn(ctx)
		c.canceled = ctx.Err() != nil
		l.completions <- c

		return nil
	})

	return nil
}

// apply updates the state to reflect a completed dispatch.
func (l *loop) apply(c completion) {
	delete(l.inFlight, c.partition)

	now := time.Now()
	outcome := "succeeded"

	switch {
	case !c.found:
		outcome = "caught-up"
	case !c.result.IsSuccess():
		outcome = "failed"
	}

	l.driver.Metrics.completed(l.driver.ID, c.kind, outcome)

	if c.kind == Fresh {
		l.applyFresh(now, c)
	} else {
		l.applyRetry(now, c)
	}
}

func (l *loop) applyFresh(now time.Time, c completion) {
	if c.result.IsSuccess() {
		delete(l.unfinished, c.position)
		l.setState(l.state.WithLastSuccessfullyProcessed(now))
		l.updatePosition()
		return
	}

	if c.canceled {
		// The event remains unfinished, so it is processed again when the
		// processor restarts.
		return
	}

	delete(l.unfinished, c.position)
	l.recordFailure(now, c.partition, c.position, 0, c.result)
	l.updatePosition()
}

func (l *loop) applyRetry(now time.Time, c completion) {
	fp, ok := l.state.FailingPartitions[c.partition]
	if !ok {
		return
	}

	switch {
	case !c.found:
		if c.position >= l.readCursor {
			logging.Log(l.logger, "partition '%s' has recovered", c.partition)
			l.setState(l.state.WithoutFailingPartition(c.partition))
			return
		}

		fp.Position = c.position
		fp.RetryTime = now
		l.setState(l.state.WithFailingPartition(c.partition, fp))

	case c.result.IsSuccess():
		s := l.state.WithLastSuccessfullyProcessed(now)
		next := c.position + 1

		if next < l.readCursor {
			s = s.WithFailingPartition(
				c.partition,
				FailingPartition{
					Position:  next,
					RetryTime: now,
				},
			)
		} else {
			logging.Log(l.logger, "partition '%s' has recovered", c.partition)
			s = s.WithoutFailingPartition(c.partition)
		}

		l.setState(s)

	case c.canceled:
		// Leave the failure as-is, it is retried when the processor restarts.

	default:
		attempts := fp.ProcessingAttempts
		if c.position != fp.Position {
			attempts = 0
		}

		l.recordFailure(now, c.partition, c.position, attempts, c.result)
	}
}

// recordFailure marks partition p as failing at position pos.
func (l *loop) recordFailure(
	now time.Time,
	p stream.PartitionID,
	pos stream.Position,
	attempts uint64,
	r Result,
) {
	attempts++

	rt := l.policy.NextRetry(
		now,
		retry.Failure{
			Attempts:     attempts,
			Reason:       r.Reason(),
			Retry:        r.Retry(),
			RetryTimeout: r.RetryTimeout(),
		},
	)

	if retry.IsNever(rt) {
		logging.Log(
			l.logger,
			"partition '%s' is parked at position %d after %d attempt(s): %s",
			p,
			pos,
			attempts,
			r.Reason(),
		)
	} else {
		logging.Log(
			l.logger,
			"partition '%s' failed at position %d (attempt %d), retrying in %s: %s",
			p,
			pos,
			attempts,
			rt.Sub(now),
			r.Reason(),
		)
	}

	l.setState(
		l.state.WithFailingPartition(
			p,
			FailingPartition{
				Position:           pos,
				RetryTime:          rt,
				Reason:             r.Reason(),
				ProcessingAttempts: attempts,
				LastFailed:         now,
			},
		),
	)
}

// applyReplays schedules an immediate retry of any partitions that have been
// replayed.
func (l *loop) applyReplays() {
	for _, p := range l.driver.takeReplays() {
		fp, ok := l.state.FailingPartitions[p]
		if !ok {
			continue
		}

		logging.Log(l.logger, "replaying partition '%s' from position %d", p, fp.Position)

		fp.RetryTime = time.Now()
		l.setState(l.state.WithFailingPartition(p, fp))
	}
}

// updatePosition advances the state's position over the finished events.
func (l *loop) updatePosition() {
	pos := l.readCursor
	for p := range l.unfinished {
		if p < pos {
			pos = p
		}
	}

	if pos != l.state.Position {
		l.setState(l.state.WithPosition(pos))
	}
}

func (l *loop) setState(s State) {
	l.state = s
	l.dirty = true
	l.driver.state.Store(&s)
	l.driver.Metrics.observe(l.driver.ID, s)
}

// persist persists the state if it has changed.
//
// If persisting fails the in-memory state remains authoritative and persisting
// is attempted again on the next call.
func (l *loop) persist(ctx context.Context) {
	if !l.dirty {
		return
	}

	if err := l.driver.Repository.Persist(ctx, l.driver.ID, l.state); err != nil {
		logging.Log(l.logger, "unable to persist state: %s", err)
		return
	}

	l.dirty = false
}
