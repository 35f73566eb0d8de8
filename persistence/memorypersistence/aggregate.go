package memorypersistence

import (
	"context"

	"github.com/dogmatiq/eventcore/event"
	"github.com/dogmatiq/eventcore/persistence"
	"github.com/google/uuid"
)

// aggregateKey identifies an aggregate root instance.
type aggregateKey struct {
	source event.EventSourceID
	root   uuid.UUID
}

// LoadAggregateRootVersion loads the current version of an aggregate root
// instance.
func (ds *dataStore) LoadAggregateRootVersion(
	ctx context.Context,
	source event.EventSourceID,
	root uuid.UUID,
) (event.AggregateRootVersion, error) {
	var v event.AggregateRootVersion

	err := ds.view(ctx, func(db *database) {
		v = db.aggregate.versions[aggregateKey{source, root}]
	})

	return v, err
}

// VisitIncrementAggregateRootVersion returns an error if an
// "IncrementAggregateRootVersion" operation can not be applied to the
// database.
func (v *validator) VisitIncrementAggregateRootVersion(
	_ context.Context,
	op persistence.IncrementAggregateRootVersion,
) error {
	k := aggregateKey{op.EventSource, op.AggregateRoot}
	current, exists := v.db.aggregate.versions[k]

	if op.ExpectedVersion == event.InitialAggregateRootVersion {
		if !exists {
			return nil
		}
	} else if exists && current == op.ExpectedVersion {
		return nil
	}

	return persistence.ConflictError{
		Cause: op,
	}
}

// VisitIncrementAggregateRootVersion applies the changes in an
// "IncrementAggregateRootVersion" operation to the database.
func (c *committer) VisitIncrementAggregateRootVersion(
	_ context.Context,
	op persistence.IncrementAggregateRootVersion,
) error {
	if c.db.aggregate.versions == nil {
		c.db.aggregate.versions = map[aggregateKey]event.AggregateRootVersion{}
	}

	c.db.aggregate.versions[aggregateKey{op.EventSource, op.AggregateRoot}] = op.NextVersion

	return nil
}

// aggregateDatabase contains aggregate related data.
type aggregateDatabase struct {
	versions map[aggregateKey]event.AggregateRootVersion
}
