package aggregate

import (
	"context"
	"errors"
	"fmt"

	"github.com/dogmatiq/eventcore/event"
	"github.com/dogmatiq/eventcore/persistence"
	"github.com/google/uuid"
)

// Repository is the subset of persistence.DataStore used to read and write
// aggregate root versions.
type Repository interface {
	persistence.AggregateRepository
	persistence.Persister
}

// VersionStore reads and increments the versions of aggregate root instances.
//
// Conflicting writers are detected by the storage engine's conditional writes,
// there is no application-level lock.
type VersionStore struct {
	Repository Repository
}

// FetchVersion returns the current version of an aggregate root instance.
//
// It returns event.InitialAggregateRootVersion if the instance has never
// committed any events.
func (s *VersionStore) FetchVersion(
	ctx context.Context,
	source event.EventSourceID,
	root uuid.UUID,
) (event.AggregateRootVersion, error) {
	v, err := s.Repository.LoadAggregateRootVersion(ctx, source, root)
	if err != nil {
		return 0, fmt.Errorf("unable to load aggregate root version: %w", err)
	}

	return v, nil
}

// IncrementVersion changes the version of an aggregate root instance from
// expected to next.
//
// It returns a ConcurrencyConflictError if the current version is not equal
// to expected.
func (s *VersionStore) IncrementVersion(
	ctx context.Context,
	source event.EventSourceID,
	root uuid.UUID,
	expected, next event.AggregateRootVersion,
) error {
	op, err := NewIncrementOperation(source, root, expected, next)
	if err != nil {
		return err
	}

	if _, err := s.Repository.Persist(ctx, persistence.Batch{op}); err != nil {
		return ResolveConflict(ctx, s.Repository, err)
	}

	return nil
}

// NewIncrementOperation returns the persistence operation that increments the
// version of an aggregate root instance from expected to next.
func NewIncrementOperation(
	source event.EventSourceID,
	root uuid.UUID,
	expected, next event.AggregateRootVersion,
) (persistence.IncrementAggregateRootVersion, error) {
	if next <= expected {
		return persistence.IncrementAggregateRootVersion{}, ValidationError{
			Expected: expected,
			Next:     next,
		}
	}

	return persistence.IncrementAggregateRootVersion{
		EventSource:     source,
		AggregateRoot:   root,
		ExpectedVersion: expected,
		NextVersion:     next,
	}, nil
}

// ResolveConflict converts an error returned by Persister.Persist() into a
// ConcurrencyConflictError if it was caused by an aggregate root version
// increment.
//
// The current version is re-fetched from r. Any other error is wrapped and
// returned.
func ResolveConflict(
	ctx context.Context,
	r persistence.AggregateRepository,
	err error,
) error {
	var conflict persistence.ConflictError
	if !errors.As(err, &conflict) {
		return fmt.Errorf("unable to persist aggregate root version: %w", err)
	}

	op, ok := conflict.Cause.(persistence.IncrementAggregateRootVersion)
	if !ok {
		return err
	}

	current, loadErr := r.LoadAggregateRootVersion(ctx, op.EventSource, op.AggregateRoot)
	if loadErr != nil {
		return fmt.Errorf("unable to load aggregate root version after conflict: %w", loadErr)
	}

	return ConcurrencyConflictError{
		EventSource:   op.EventSource,
		AggregateRoot: op.AggregateRoot,
		Current:       current,
		Expected:      op.ExpectedVersion,
	}
}
