package event

import "fmt"

// Validate returns an error if events can not be committed.
func (e UncommittedEvents) Validate() error {
	if len(e) == 0 {
		return ErrNoEvents
	}

	for i, ev := range e {
		if ev.EventSource == "" {
			return fmt.Errorf("event at index %d has an empty event source", i)
		}
	}

	return nil
}

// Validate returns an error if the aggregate events can not be committed.
func (e UncommittedAggregateEvents) Validate() error {
	if len(e.Events) == 0 {
		return ErrNoEvents
	}

	if e.EventSource == "" {
		return fmt.Errorf("aggregate events have an empty event source")
	}

	for i, ev := range e.Events {
		if ev.EventSource != "" && ev.EventSource != e.EventSource {
			return fmt.Errorf(
				"event at index %d has event source '%s', expected '%s'",
				i,
				ev.EventSource,
				e.EventSource,
			)
		}
	}

	return nil
}
