// Package streamprocessor delivers the events in a stream to a handler,
// tracking per-partition failures so that a failing partition does not block
// the rest of the stream.
package streamprocessor

import (
	"fmt"

	"github.com/dogmatiq/eventcore/stream"
	"github.com/google/uuid"
)

// ID uniquely identifies a stream processor within a tenant.
type ID struct {
	// Scope is the scope that the processor belongs to, such as the
	// microservice that hosts it.
	Scope string

	// Processor is the ID of the processor itself.
	Processor uuid.UUID

	// SourceStream is the stream that the processor consumes.
	SourceStream stream.ID
}

// Key returns the key used to store the processor's state.
func (id ID) Key() string {
	return fmt.Sprintf("%s/%s/%s", id.Scope, id.Processor, id.SourceStream)
}

func (id ID) String() string {
	return id.Key()
}
