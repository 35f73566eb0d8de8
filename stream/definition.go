package stream

import (
	"github.com/dogmatiq/eventcore/event"
	"github.com/google/uuid"
)

// Definition describes the events that belong to a stream, and how they are
// partitioned.
type Definition struct {
	ID ID

	// Partitioned is true if the stream's events are partitioned.
	Partitioned bool

	// Public is true if the stream only contains public events.
	Public bool

	// Types is the set of event types that belong to the stream. Types are
	// matched by ID, regardless of generation. If it is empty, events of any
	// type belong to the stream.
	Types []uuid.UUID
}

// Matches returns true if ev belongs to the stream.
func (d Definition) Matches(ev event.CommittedEvent) bool {
	if d.Public && !ev.Public {
		return false
	}

	if len(d.Types) == 0 {
		return true
	}

	for _, id := range d.Types {
		if id == ev.Type.ID {
			return true
		}
	}

	return false
}

// EventLogDefinition is the definition of the EventLog stream.
var EventLogDefinition = Definition{
	ID:          EventLog,
	Partitioned: true,
}

// PublicEventsDefinition is the definition of the PublicEvents stream.
var PublicEventsDefinition = Definition{
	ID:          PublicEvents,
	Partitioned: true,
	Public:      true,
}
