package postgres

import (
	"context"
	"database/sql"

	"github.com/dogmatiq/eventcore/internal/x/sqlx"
	"github.com/dogmatiq/eventcore/persistence"
	"github.com/dogmatiq/eventcore/persistence/sqlpersistence/internal/sqlrow"
	"github.com/doug-martin/goqu/v9"
)

// UpsertStreamProcessorState inserts or replaces the state of a stream
// processor, including its failing partitions.
func (driver) UpsertStreamProcessorState(
	ctx context.Context,
	tx *sql.Tx,
	tk string,
	s persistence.StreamProcessorState,
) (err error) {
	defer sqlx.Recover(&err)

	query, args := build(
		dialect.
			Insert(table("stream_processor")).
			Rows(goqu.Record{
				"tenant_key":                  tk,
				"processor_key":               s.Key,
				"position":                    int64(s.Position),
				"last_successfully_processed": sqlrow.TimeValue(s.LastSuccessfullyProcessed),
			}).
			OnConflict(goqu.DoUpdate(
				"tenant_key, processor_key",
				goqu.Record{
					"position":                    goqu.I("excluded.position"),
					"last_successfully_processed": goqu.I("excluded.last_successfully_processed"),
				},
			)).
			Prepared(true),
	)

	sqlx.Exec(ctx, tx, query, args...)

	deleteFailingPartitions(ctx, tx, tk, s.Key)

	if len(s.FailingPartitions) == 0 {
		return nil
	}

	insert := dialect.
		Insert(table("stream_processor_failing_partition")).
		Cols(append(
			columns("tenant_key", "processor_key"),
			columns(sqlrow.FailingPartitionColumns...)...,
		)...).
		Prepared(true)

	for _, p := range s.FailingPartitions {
		insert = insert.Vals(append(
			[]interface{}{tk, s.Key},
			sqlrow.FailingPartitionValues(p)...,
		))
	}

	query, args = build(insert)
	sqlx.Exec(ctx, tx, query, args...)

	return nil
}

// DeleteStreamProcessorState deletes the state of a stream processor.
func (driver) DeleteStreamProcessorState(
	ctx context.Context,
	tx *sql.Tx,
	tk, key string,
) (err error) {
	defer sqlx.Recover(&err)

	query, args := build(
		dialect.
			Delete(table("stream_processor")).
			Where(goqu.Ex{
				"tenant_key":    tk,
				"processor_key": key,
			}).
			Prepared(true),
	)

	sqlx.Exec(ctx, tx, query, args...)
	deleteFailingPartitions(ctx, tx, tk, key)

	return nil
}

// SelectStreamProcessorState selects the state of a stream processor.
func (driver) SelectStreamProcessorState(
	ctx context.Context,
	db sqlx.DB,
	tk, key string,
) (_ persistence.StreamProcessorState, _ bool, err error) {
	defer sqlx.Recover(&err)

	where := goqu.Ex{
		"tenant_key":    tk,
		"processor_key": key,
	}

	query, args := build(
		dialect.
			From(table("stream_processor")).
			Select("position", "last_successfully_processed").
			Where(where).
			Prepared(true),
	)

	s := persistence.StreamProcessorState{
		Key: key,
	}

	var (
		pos         int64
		lastSuccess sql.NullString
	)

	if !sqlx.TryQueryRow(ctx, db, query, args, &pos, &lastSuccess) {
		return persistence.StreamProcessorState{}, false, nil
	}

	s.Position = uint64(pos)
	s.LastSuccessfullyProcessed = sqlrow.ScanTime(lastSuccess)

	query, args = build(
		dialect.
			From(table("stream_processor_failing_partition")).
			Select(columns(sqlrow.FailingPartitionColumns...)...).
			Where(where).
			Order(goqu.C("partition_id").Asc()).
			Prepared(true),
	)

	rows := sqlx.Query(ctx, db, query, args...)
	s.FailingPartitions = sqlrow.ScanFailingPartitions(rows)

	return s, true, nil
}

func deleteFailingPartitions(ctx context.Context, tx *sql.Tx, tk, key string) {
	query, args := build(
		dialect.
			Delete(table("stream_processor_failing_partition")).
			Where(goqu.Ex{
				"tenant_key":    tk,
				"processor_key": key,
			}).
			Prepared(true),
	)

	sqlx.Exec(ctx, tx, query, args...)
}

// createStreamProcessorSchema creates the schema elements for stream
// processor state.
func createStreamProcessorSchema(ctx context.Context, db sqlx.DB) {
	sqlx.Exec(
		ctx,
		db,
		`CREATE TABLE IF NOT EXISTS eventcore.stream_processor (
			tenant_key                  TEXT NOT NULL,
			processor_key               TEXT NOT NULL,
			position                    BIGINT NOT NULL,
			last_successfully_processed TEXT,

			PRIMARY KEY (tenant_key, processor_key)
		)`,
	)

	sqlx.Exec(
		ctx,
		db,
		`CREATE TABLE IF NOT EXISTS eventcore.stream_processor_failing_partition (
			tenant_key          TEXT NOT NULL,
			processor_key       TEXT NOT NULL,
			partition_id        TEXT NOT NULL,
			position            BIGINT NOT NULL,
			retry_time          TEXT,
			reason              TEXT NOT NULL,
			processing_attempts BIGINT NOT NULL,
			last_failed         TEXT,

			PRIMARY KEY (tenant_key, processor_key, partition_id)
		)`,
	)
}
