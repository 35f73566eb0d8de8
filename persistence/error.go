package persistence

import "fmt"

// ConflictError is returned by Persister.Persist() when an operation's
// optimistic concurrency check fails. None of the batch's operations are
// applied.
type ConflictError struct {
	// Cause is the operation that failed its check.
	Cause Operation
}

func (e ConflictError) Error() string {
	return fmt.Sprintf(
		"optimistic concurrency conflict on %s (%T)",
		e.Cause.entityKey(),
		e.Cause,
	)
}
