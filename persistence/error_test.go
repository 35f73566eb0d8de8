package persistence_test

import (
	. "github.com/dogmatiq/eventcore/persistence"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type ConflictError", func() {
	root := uuid.MustParse("1c0dd4d1-7a39-4bd0-b2c6-60a0c64c8c4e")

	Describe("func Error()", func() {
		It("identifies the conflicting entity and operation type", func() {
			err := ConflictError{
				Cause: IncrementAggregateRootVersion{
					EventSource:   "<source>",
					AggregateRoot: root,
				},
			}

			Expect(err).To(MatchError(
				"optimistic concurrency conflict on aggregate 1c0dd4d1-7a39-4bd0-b2c6-60a0c64c8c4e/<source> (persistence.IncrementAggregateRootVersion)",
			))
		})
	})
})
