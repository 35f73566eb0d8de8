package sqlpersistence

import (
	"context"
	"database/sql"

	"github.com/dogmatiq/eventcore/event"
	"github.com/dogmatiq/eventcore/persistence"
	"github.com/google/uuid"
)

// LoadAggregateRootVersion loads the current version of an aggregate root
// instance.
func (ds *dataStore) LoadAggregateRootVersion(
	ctx context.Context,
	source event.EventSourceID,
	root uuid.UUID,
) (event.AggregateRootVersion, error) {
	var v event.AggregateRootVersion

	err := ds.withDB(func(db *sql.DB) (err error) {
		v, err = ds.driver.SelectAggregateRootVersion(ctx, db, ds.tenantKey, source, root)
		return err
	})

	return v, err
}

// VisitIncrementAggregateRootVersion applies the changes in an
// "IncrementAggregateRootVersion" operation to the database.
func (c *committer) VisitIncrementAggregateRootVersion(
	ctx context.Context,
	op persistence.IncrementAggregateRootVersion,
) error {
	var (
		ok  bool
		err error
	)

	if op.ExpectedVersion == event.InitialAggregateRootVersion {
		ok, err = c.driver.InsertAggregateRootVersion(
			ctx,
			c.tx,
			c.tenantKey,
			op.EventSource,
			op.AggregateRoot,
			op.NextVersion,
		)
	} else {
		ok, err = c.driver.UpdateAggregateRootVersion(
			ctx,
			c.tx,
			c.tenantKey,
			op.EventSource,
			op.AggregateRoot,
			op.ExpectedVersion,
			op.NextVersion,
		)
	}

	if ok || err != nil {
		return err
	}

	return persistence.ConflictError{
		Cause: op,
	}
}
