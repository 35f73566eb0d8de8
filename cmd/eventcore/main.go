// Package main runs a small demonstration of the event store and stream
// processors.
//
// It commits events from a handful of simulated aggregate roots, materializes
// the public events into a persisted stream, and logs each public event from a
// partitioned processor.
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dogmatiq/dodeca/config"
	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/eventcore/aggregate"
	"github.com/dogmatiq/eventcore/event"
	"github.com/dogmatiq/eventcore/eventstore"
	"github.com/dogmatiq/eventcore/internal/x/loggingx"
	"github.com/dogmatiq/eventcore/persistence"
	"github.com/dogmatiq/eventcore/retry"
	"github.com/dogmatiq/eventcore/stream"
	"github.com/dogmatiq/eventcore/streamprocessor"
	"github.com/dogmatiq/linger"
	"github.com/dogmatiq/linger/backoff"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

var (
	accountType = event.Artifact{
		ID:         uuid.MustParse("d6c0a1f4-8b7e-4c35-9f21-3a5e6b7c8d90"),
		Generation: 1,
	}

	depositedType = event.Artifact{
		ID:         uuid.MustParse("e7d1b2a5-9c8f-4d46-8a32-4b6f7c8d9ea1"),
		Generation: 1,
	}

	auditedType = event.Artifact{
		ID:         uuid.MustParse("f8e2c3b6-ad90-4e57-9b43-5c7a8d9eafb2"),
		Generation: 1,
	}

	scopeID = "eventcore.demo"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	s := loadSettings(config.Environment())

	z, err := newZapLogger(s)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer z.Sync() // nolint:errcheck

	if err := run(ctx, s, loggingx.Zap{Target: z}); err != nil {
		if !errors.Is(err, context.Canceled) {
			z.Error(err.Error())
			os.Exit(1)
		}
	}
}

func run(ctx context.Context, s settings, logger logging.Logger) (err error) {
	p, err := newProvider(s)
	if err != nil {
		return err
	}

	stores := &persistence.DataStoreSet{Provider: p}
	defer func() {
		err = multierr.Append(err, stores.Close())
	}()

	ds, err := stores.Get(ctx, s.Tenant)
	if err != nil {
		return err
	}

	var metrics *streamprocessor.Metrics
	reg := prometheus.NewRegistry()
	if s.MetricsAddr != "" {
		metrics, err = streamprocessor.NewMetrics(reg)
		if err != nil {
			return err
		}
	}

	logNotifier := &stream.Notifier{}
	publicNotifier := &stream.Notifier{}

	store := &eventstore.Store{
		Repository: ds,
		Notifier:   logNotifier,
		Logger:     logger,
	}

	states := &streamprocessor.PersistedStateRepository{
		DataStore: ds,
	}

	registry := &streamprocessor.Registry{
		Repository: states,
		Logger:     logger,
	}

	// The filter consumes the whole log unpartitioned, so that the public
	// stream is appended to in log order.
	filter := &streamprocessor.Driver{
		ID: streamprocessor.ID{
			Scope:        scopeID,
			Processor:    uuid.MustParse("0c1d2e3f-4a5b-4c6d-8e7f-8091a2b3c4d5"),
			SourceStream: stream.EventLog,
		},
		Stream: &stream.EventLogStream{
			Repository: ds,
			Definition: stream.Definition{ID: stream.EventLog},
			Notifier:   logNotifier,
		},
		Handler: &streamprocessor.FilterHandler{
			Filter: &stream.Filter{
				Definition: stream.PublicEventsDefinition,
				Persister:  ds,
				Notifier:   publicNotifier,
			},
		},
		Repository: states,
		Metrics:    metrics,
		Logger:     logger,
	}

	auditor := &streamprocessor.Driver{
		ID: streamprocessor.ID{
			Scope:        scopeID,
			Processor:    uuid.MustParse("1d2e3f4a-5b6c-4d7e-8f90-a1b2c3d4e5f6"),
			SourceStream: stream.PublicEvents,
		},
		Stream: &stream.PersistedStream{
			StreamID:   stream.PublicEvents,
			Repository: ds,
			Notifier:   publicNotifier,
		},
		Handler:    auditHandler(logger),
		Repository: states,
		RetryPolicy: retry.MaxAttempts{
			Policy: retry.Backoff{
				Strategy: backoff.WithTransforms(
					backoff.Exponential(100*time.Millisecond),
					linger.FullJitter,
					linger.Limiter(0, 30*time.Second),
				),
			},
			Max: 10,
		},
		Limits: streamprocessor.Limits{
			Concurrency: s.Concurrency,
		},
		Metrics: metrics,
		Logger:  logger,
	}

	g, ctx := errgroup.WithContext(ctx)

	for _, d := range []*streamprocessor.Driver{filter, auditor} {
		if err := registry.Start(ctx, d); err != nil {
			return err
		}
	}

	if s.MetricsAddr != "" {
		server := &http.Server{
			Addr:              s.MetricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}

		g.Go(func() error {
			<-ctx.Done()
			return server.Close()
		})

		g.Go(func() error {
			logging.Log(logger, "serving metrics on %s", s.MetricsAddr)
			if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		return simulate(ctx, store, s.DemoInterval, logger)
	})

	err = g.Wait()

	for _, d := range registry.Processors() {
		if _, stopErr := registry.Stop(context.Background(), d.ID); stopErr != nil {
			err = multierr.Append(err, stopErr)
		}
	}

	return err
}

// simulate commits events from a handful of accounts until ctx is canceled.
func simulate(
	ctx context.Context,
	store *eventstore.Store,
	interval time.Duration,
	logger logging.Logger,
) error {
	accounts := []event.EventSourceID{"account-1", "account-2", "account-3"}
	versions := map[event.EventSourceID]event.AggregateRootVersion{}

	ec := event.ExecutionContext{
		Tenant:       uuid.New(),
		Microservice: uuid.New(),
		Environment:  "demo",
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		id := accounts[rand.Intn(len(accounts))]
		ec.Correlation = uuid.New()

		if _, ok := versions[id]; !ok {
			v, err := (&aggregate.VersionStore{Repository: store.Repository}).FetchVersion(ctx, id, accountType.ID)
			if err != nil {
				return err
			}
			versions[id] = v
		}

		e := event.UncommittedAggregateEvents{
			EventSource:     id,
			AggregateRoot:   accountType,
			ExpectedVersion: versions[id],
			Events: []event.UncommittedEvent{
				{Type: depositedType, Public: true, Content: []byte(`{"amount":100}`)},
				{Type: auditedType, Content: []byte(`{"by":"demo"}`)},
			},
		}

		if _, err := store.CommitAggregateEvents(ctx, e, ec); err != nil {
			var conflict aggregate.ConcurrencyConflictError
			if errors.As(err, &conflict) {
				logging.Log(logger, "%s, reloading", err)
				delete(versions, id)
				continue
			}
			return err
		}

		versions[id] = e.NextVersion()
	}
}

// auditHandler returns a handler that logs each public event.
func auditHandler(logger logging.Logger) streamprocessor.Handler {
	return streamprocessor.HandlerFunc(
		func(
			_ context.Context,
			ev event.CommittedEvent,
			p stream.PartitionID,
			pos stream.Position,
			retryReason string,
			retryCount uint64,
			_ event.ExecutionContext,
		) streamprocessor.Result {
			logging.Log(
				logger,
				"public event #%d at position %d of partition '%s': %s",
				ev.SequenceNumber,
				pos,
				p,
				ev.Content,
			)

			return streamprocessor.Succeeded()
		},
	)
}
