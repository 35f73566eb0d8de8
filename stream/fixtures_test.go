package stream_test

import (
	"context"

	"github.com/dogmatiq/eventcore/event"
	"github.com/dogmatiq/eventcore/persistence"
	"github.com/google/uuid"
	. "github.com/onsi/gomega"
)

var (
	typeA = event.Artifact{
		ID:         uuid.MustParse("0a8c6f4e-2d1b-4e7a-9c3f-5b6a7d8e9f01"),
		Generation: 1,
	}

	typeB = event.Artifact{
		ID:         uuid.MustParse("1b9d7a5f-3e2c-4f8b-8d4a-6c7b8e9f0a12"),
		Generation: 1,
	}
)

// appendEvents commits events to the log of ds and returns the committed
// events.
func appendEvents(
	ctx context.Context,
	ds persistence.DataStore,
	events ...event.CommittedEvent,
) []event.CommittedEvent {
	res, err := ds.Persist(
		ctx,
		persistence.Batch{
			persistence.AppendEvents{Events: events},
		},
	)
	ExpectWithOffset(1, err).ShouldNot(HaveOccurred())
	return res.Events
}
