package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/dogmatiq/eventcore/internal/x/sqlx"
	"github.com/dogmatiq/eventcore/persistence"
	"github.com/dogmatiq/eventcore/persistence/sqlpersistence/internal/sqlrow"
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

	sqlx.Exec(
		ctx,
		tx,
		`INSERT INTO stream_processor (
			tenant_key,
			processor_key,
			position,
			last_successfully_processed
		) VALUES (
			?, ?, ?, ?
		) ON CONFLICT (tenant_key, processor_key) DO UPDATE SET
			position = excluded.position,
			last_successfully_processed = excluded.last_successfully_processed`,
		tk,
		s.Key,
		int64(s.Position),
		sqlrow.TimeValue(s.LastSuccessfullyProcessed),
	)

	deleteFailingPartitions(ctx, tx, tk, s.Key)

	for _, p := range s.FailingPartitions {
		args := append(
			[]interface{}{tk, s.Key},
			sqlrow.FailingPartitionValues(p)...,
		)

		sqlx.Exec(
			ctx,
			tx,
			`INSERT INTO stream_processor_failing_partition (
				tenant_key,
				processor_key,
				`+strings.Join(sqlrow.FailingPartitionColumns, ", ")+`
			) VALUES (
				?, ?`+strings.Repeat(", ?", len(sqlrow.FailingPartitionColumns))+`
			)`,
			args...,
		)
	}

	return nil
}

// DeleteStreamProcessorState deletes the state of a stream processor.
func (driver) DeleteStreamProcessorState(
	ctx context.Context,
	tx *sql.Tx,
	tk, key string,
) (err error) {
	defer sqlx.Recover(&err)

	sqlx.Exec(
		ctx,
		tx,
		`DELETE FROM stream_processor
		WHERE tenant_key = ?
		AND processor_key = ?`,
		tk,
		key,
	)

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

	s := persistence.StreamProcessorState{
		Key: key,
	}

	var lastSuccess sql.NullString

	if !sqlx.TryQueryRow(
		ctx,
		db,
		`SELECT
			position,
			last_successfully_processed
		FROM stream_processor
		WHERE tenant_key = ?
		AND processor_key = ?`,
		[]interface{}{tk, key},
		&s.Position,
		&lastSuccess,
	) {
		return persistence.StreamProcessorState{}, false, nil
	}

	s.LastSuccessfullyProcessed = sqlrow.ScanTime(lastSuccess)

	rows := sqlx.Query(
		ctx,
		db,
		`SELECT `+strings.Join(sqlrow.FailingPartitionColumns, ", ")+`
		FROM stream_processor_failing_partition
		WHERE tenant_key = ?
		AND processor_key = ?
		ORDER BY partition_id`,
		tk,
		key,
	)

	s.FailingPartitions = sqlrow.ScanFailingPartitions(rows)

	return s, true, nil
}

func deleteFailingPartitions(ctx context.Context, tx *sql.Tx, tk, key string) {
	sqlx.Exec(
		ctx,
		tx,
		`DELETE FROM stream_processor_failing_partition
		WHERE tenant_key = ?
		AND processor_key = ?`,
		tk,
		key,
	)
}

// createStreamProcessorSchema creates the schema elements for stream
// processor state.
func createStreamProcessorSchema(ctx context.Context, db sqlx.DB) {
	sqlx.Exec(
		ctx,
		db,
		`CREATE TABLE IF NOT EXISTS stream_processor (
			tenant_key                  TEXT NOT NULL,
			processor_key               TEXT NOT NULL,
			position                    INTEGER NOT NULL,
			last_successfully_processed TEXT,

			PRIMARY KEY (tenant_key, processor_key)
		)`,
	)

	sqlx.Exec(
		ctx,
		db,
		`CREATE TABLE IF NOT EXISTS stream_processor_failing_partition (
			tenant_key          TEXT NOT NULL,
			processor_key       TEXT NOT NULL,
			partition_id        TEXT NOT NULL,
			position            INTEGER NOT NULL,
			retry_time          TEXT,
			reason              TEXT NOT NULL,
			processing_attempts INTEGER NOT NULL,
			last_failed         TEXT,

			PRIMARY KEY (tenant_key, processor_key, partition_id)
		)`,
	)
}

// dropStreamProcessorSchema drops the schema elements for stream processor
// state.
func dropStreamProcessorSchema(ctx context.Context, db sqlx.DB) {
	sqlx.Exec(ctx, db, `DROP TABLE IF EXISTS stream_processor`)
	sqlx.Exec(ctx, db, `DROP TABLE IF EXISTS stream_processor_failing_partition`)
}
