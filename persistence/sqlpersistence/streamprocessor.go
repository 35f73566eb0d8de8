package sqlpersistence

import (
	"context"
	"database/sql"

	"github.com/dogmatiq/eventcore/persistence"
)

// LoadStreamProcessorState loads the state of a stream processor.
func (ds *dataStore) LoadStreamProcessorState(
	ctx context.Context,
	key string,
) (persistence.StreamProcessorState, bool, error) {
	var (
		s  persistence.StreamProcessorState
		ok bool
	)

	err := ds.withDB(func(db *sql.DB) (err error) {
		s, ok, err = ds.driver.SelectStreamProcessorState(ctx, db, ds.tenantKey, key)
		return err
	})

	return s, ok, err
}

// VisitSaveStreamProcessorState applies the changes in a
// "SaveStreamProcessorState" operation to the database.
func (c *committer) VisitSaveStreamProcessorState(
	ctx context.Context,
	op persistence.SaveStreamProcessorState,
) error {
	return c.driver.UpsertStreamProcessorState(ctx, c.tx, c.tenantKey, op.State)
}

// VisitRemoveStreamProcessorState applies the changes in a
// "RemoveStreamProcessorState" operation to the database.
func (c *committer) VisitRemoveStreamProcessorState(
	ctx context.Context,
	op persistence.RemoveStreamProcessorState,
) error {
	return c.driver.DeleteStreamProcessorState(ctx, c.tx, c.tenantKey, op.Key)
}
