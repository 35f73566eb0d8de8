// Package sqlrow maps event-log and stream processor records to and from SQL
// rows in a way that is shared by the SQL drivers.
package sqlrow

import (
	"database/sql"
	"time"

	"github.com/dogmatiq/eventcore/event"
	"github.com/dogmatiq/eventcore/internal/x/sqlx"
	"github.com/google/uuid"
)

// EventColumns is the list of columns of the event table, in the order used by
// EventValues() and ScanEvent().
var EventColumns = []string{
	"sequence_number",
	"occurred",
	"event_source",
	"tenant_id",
	"correlation_id",
	"microservice_id",
	"environment",
	"type_id",
	"type_generation",
	"public",
	"content",
	"aggregate_root_id",
	"aggregate_root_generation",
	"aggregate_version",
}

// EventValues returns the column values for ev, in the order of
// EventColumns.
//
// Non-aggregate events have an empty aggregate_root_id.
func EventValues(ev event.CommittedEvent) []interface{} {
	var (
		rootID     string
		generation uint32
		version    event.AggregateRootVersion
	)

	if md := ev.Aggregate; md != nil {
		rootID = md.AggregateRoot.ID.String()
		generation = md.AggregateRoot.Generation
		version = md.Version
	}

	content := ev.Content
	if content == nil {
		content = []byte{}
	}

	return []interface{}{
		int64(ev.SequenceNumber),
		TimeValue(ev.Occurred),
		string(ev.EventSource),
		ev.ExecutionContext.Tenant.String(),
		ev.ExecutionContext.Correlation.String(),
		ev.ExecutionContext.Microservice.String(),
		ev.ExecutionContext.Environment,
		ev.Type.ID.String(),
		int64(ev.Type.Generation),
		ev.Public,
		content,
		rootID,
		int64(generation),
		int64(version),
	}
}

// ScanEvents scans all of the rows produced by a query that selects
// EventColumns.
//
// It panics with a sqlx.PanicSentinel on failure.
func ScanEvents(rows *sql.Rows) []event.CommittedEvent {
	defer rows.Close()

	var result []event.CommittedEvent

	for rows.Next() {
		result = append(result, ScanEvent(rows))
	}

	sqlx.Must(rows.Err())

	return result
}

// ScanEvent scans a single row that contains EventColumns.
func ScanEvent(s sqlx.Scanner) event.CommittedEvent {
	var (
		ev                                                       event.CommittedEvent
		occurred                                                 sql.NullString
		tenant, correlation, microservice, typeID, aggregateRoot string
		generation, aggregateGeneration                          uint32
		version                                                  uint64
	)

	sqlx.Must(s.Scan(
		&ev.SequenceNumber,
		&occurred,
		&ev.EventSource,
		&tenant,
		&correlation,
		&microservice,
		&ev.ExecutionContext.Environment,
		&typeID,
		&generation,
		&ev.Public,
		&ev.Content,
		&aggregateRoot,
		&aggregateGeneration,
		&version,
	))

	ev.Occurred = ScanTime(occurred)
	ev.ExecutionContext.Tenant = ParseUUID(tenant)
	ev.ExecutionContext.Correlation = ParseUUID(correlation)
	ev.ExecutionContext.Microservice = ParseUUID(microservice)
	ev.Type = event.Artifact{
		ID:         ParseUUID(typeID),
		Generation: generation,
	}

	if aggregateRoot != "" {
		ev.Aggregate = &event.AggregateMetaData{
			AggregateRoot: event.Artifact{
				ID:         ParseUUID(aggregateRoot),
				Generation: aggregateGeneration,
			},
			Version: event.AggregateRootVersion(version),
		}
	}

	return ev
}

// ParseUUID parses a UUID stored in a TEXT column.
func ParseUUID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	sqlx.Must(err)
	return id
}

// TimeValue returns the value to store in a nullable TEXT column for t.
//
// The zero time is stored as NULL.
func TimeValue(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}

	return t.Format(time.RFC3339Nano)
}

// ScanTime returns the time stored in a nullable TEXT column.
func ScanTime(s sql.NullString) time.Time {
	if !s.Valid {
		return time.Time{}
	}

	t, err := time.Parse(time.RFC3339Nano, s.String)
	sqlx.Must(err)
	return t
}
