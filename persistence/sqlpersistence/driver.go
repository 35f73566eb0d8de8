package sqlpersistence

import (
	"context"
	"database/sql"

	"github.com/dogmatiq/eventcore/event"
	"github.com/dogmatiq/eventcore/internal/x/sqlx"
	"github.com/dogmatiq/eventcore/persistence"
	"github.com/google/uuid"
)

// Driver is used to interface with the underlying SQL database.
//
// Every method accepts the tenant key, tk, which partitions the data of each
// tenant within the same tables.
type Driver interface {
	AggregateDriver
	EventDriver
	StreamDriver
	StreamProcessorDriver

	// IsCompatibleWith returns nil if this driver can be used with db.
	IsCompatibleWith(ctx context.Context, db *sql.DB) error

	// Begin starts a transaction for use in a call to Persist().
	Begin(ctx context.Context, db *sql.DB) (*sql.Tx, error)

	// CreateSchema creates any SQL schema elements required by the driver.
	CreateSchema(ctx context.Context, db *sql.DB) error

	// DropSchema removes any SQL schema elements created by CreateSchema().
	DropSchema(ctx context.Context, db *sql.DB) error
}

// AggregateDriver is the subset of the Driver interface that is concerned
// with aggregate root versions.
type AggregateDriver interface {
	// InsertAggregateRootVersion inserts the version of an aggregate root
	// instance.
	//
	// It returns false if the row already exists.
	InsertAggregateRootVersion(
		ctx context.Context,
		tx *sql.Tx,
		tk string,
		source event.EventSourceID,
		root uuid.UUID,
		v event.AggregateRootVersion,
	) (bool, error)

	// UpdateAggregateRootVersion updates the version of an aggregate root
	// instance.
	//
	// It returns false if the row does not exist or its version is not equal
	// to expected.
	UpdateAggregateRootVersion(
		ctx context.Context,
		tx *sql.Tx,
		tk string,
		source event.EventSourceID,
		root uuid.UUID,
		expected, next event.AggregateRootVersion,
	) (bool, error)

	// SelectAggregateRootVersion selects the version of an aggregate root
	// instance.
	SelectAggregateRootVersion(
		ctx context.Context,
		db sqlx.DB,
		tk string,
		source event.EventSourceID,
		root uuid.UUID,
	) (event.AggregateRootVersion, error)
}

// EventDriver is the subset of the Driver interface that is concerned with the
// event log.
type EventDriver interface {
	// IncrementNextSequenceNumber increments the next unused sequence number
	// by n and returns its previous value.
	IncrementNextSequenceNumber(
		ctx context.Context,
		tx *sql.Tx,
		tk string,
		n uint64,
	) (event.SequenceNumber, error)

	// InsertEvent saves an event at its sequence number.
	InsertEvent(
		ctx context.Context,
		tx *sql.Tx,
		tk string,
		ev event.CommittedEvent,
	) error

	// SelectNextSequenceNumber selects the next unused sequence number.
	SelectNextSequenceNumber(
		ctx context.Context,
		db sqlx.DB,
		tk string,
	) (event.SequenceNumber, error)

	// SelectEvents selects up to limit events, beginning with sequence number
	// n.
	SelectEvents(
		ctx context.Context,
		db sqlx.DB,
		tk string,
		n event.SequenceNumber,
		limit int,
	) ([]event.CommittedEvent, error)

	// SelectAggregateEvents selects the events committed by an aggregate root
	// instance.
	SelectAggregateEvents(
		ctx context.Context,
		db sqlx.DB,
		tk string,
		source event.EventSourceID,
		root uuid.UUID,
	) ([]event.CommittedEvent, error)
}

// StreamDriver is the subset of the Driver interface that is concerned with
// persisted streams.
type StreamDriver interface {
	// IncrementNextStreamPosition increments the next unused position of a
	// stream and returns its previous value.
	IncrementNextStreamPosition(
		ctx context.Context,
		tx *sql.Tx,
		tk, streamID string,
	) (uint64, error)

	// InsertStreamEvent saves an event at its position within a stream.
	InsertStreamEvent(
		ctx context.Context,
		tx *sql.Tx,
		tk string,
		ev persistence.StreamEvent,
	) error

	// SelectNextStreamPosition selects the next unused position of a stream.
	SelectNextStreamPosition(
		ctx context.Context,
		db sqlx.DB,
		tk, streamID string,
	) (uint64, error)

	// SelectStreamEvent selects the event at a specific position of a stream.
	SelectStreamEvent(
		ctx context.Context,
		db sqlx.DB,
		tk, streamID string,
		pos uint64,
	) (persistence.StreamEvent, bool, error)
}

// StreamProcessorDriver is the subset of the Driver interface that is
// concerned with stream processor state.
type StreamProcessorDriver interface {
	// UpsertStreamProcessorState inserts or replaces the state of a stream
	// processor, including its failing partitions.
	UpsertStreamProcessorState(
		ctx context.Context,
		tx *sql.Tx,
		tk string,
		s persistence.StreamProcessorState,
	) error

	// DeleteStreamProcessorState deletes the state of a stream processor.
	DeleteStreamProcessorState(
		ctx context.Context,
		tx *sql.Tx,
		tk, key string,
	) error

	// SelectStreamProcessorState selects the state of a stream processor.
	SelectStreamProcessorState(
		ctx context.Context,
		db sqlx.DB,
		tk, key string,
	) (persistence.StreamProcessorState, bool, error)
}
