package sqlrow

import (
	"database/sql"

	"github.com/dogmatiq/eventcore/internal/x/sqlx"
	"github.com/dogmatiq/eventcore/persistence"
)

// FailingPartitionColumns is the list of columns of the failing partition
// table, excluding the tenant and processor keys, in the order used by
// FailingPartitionValues() and ScanFailingPartitions().
var FailingPartitionColumns = []string{
	"partition_id",
	"position",
	"retry_time",
	"reason",
	"processing_attempts",
	"last_failed",
}

// FailingPartitionValues returns the column values for p, in the order of
// FailingPartitionColumns.
func FailingPartitionValues(p persistence.FailingPartition) []interface{} {
	return []interface{}{
		p.Partition,
		int64(p.Position),
		TimeValue(p.RetryTime),
		p.Reason,
		int64(p.ProcessingAttempts),
		TimeValue(p.LastFailed),
	}
}

// ScanFailingPartitions scans all of the rows produced by a query that selects
// FailingPartitionColumns.
//
// It panics with a sqlx.PanicSentinel on failure.
func ScanFailingPartitions(rows *sql.Rows) []persistence.FailingPartition {
	defer rows.Close()

	var result []persistence.FailingPartition

	for rows.Next() {
		var (
			p                     persistence.FailingPartition
			retryTime, lastFailed sql.NullString
		)

		sqlx.Must(rows.Scan(
			&p.Partition,
			&p.Position,
			&retryTime,
			&p.Reason,
			&p.ProcessingAttempts,
			&lastFailed,
		))

		p.RetryTime = ScanTime(retryTime)
		p.LastFailed = ScanTime(lastFailed)

		result = append(result, p)
	}

	sqlx.Must(rows.Err())

	return result
}
