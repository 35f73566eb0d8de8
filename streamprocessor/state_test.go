package streamprocessor_test

import (
	"time"

	"github.com/dogmatiq/eventcore/retry"
	. "github.com/dogmatiq/eventcore/streamprocessor"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type State", func() {
	It("does not modify the original when a failing partition is added", func() {
		original := State{
			FailingPartitions: FailingPartitions{
				"<a>": {Position: 1},
			},
		}

		modified := original.WithFailingPartition("<b>", FailingPartition{Position: 2})

		Expect(original.FailingPartitions).To(HaveLen(1))
		Expect(modified.FailingPartitions).To(HaveLen(2))
		Expect(modified.IsFailing("<b>")).To(BeTrue())
		Expect(original.IsFailing("<b>")).To(BeFalse())
	})

	It("does not modify the original when a failing partition is removed", func() {
		original := State{
			FailingPartitions: FailingPartitions{
				"<a>": {Position: 1},
				"<b>": {Position: 2},
			},
		}

		modified := original.WithoutFailingPartition("<a>")

		Expect(original.IsFailing("<a>")).To(BeTrue())
		Expect(modified.IsFailing("<a>")).To(BeFalse())
		Expect(modified.IsFailing("<b>")).To(BeTrue())
	})

	It("returns copies with the given position and last-success time", func() {
		t := time.Now()
		original := State{}

		modified := original.
			WithPosition(10).
			WithLastSuccessfullyProcessed(t)

		Expect(original).To(Equal(State{}))
		Expect(modified.Position).To(BeNumerically("==", 10))
		Expect(modified.LastSuccessfullyProcessed).To(Equal(t))
	})
})

var _ = Describe("type FailingPartition", func() {
	Describe("func IsParked()", func() {
		It("returns true if the partition is never retried", func() {
			Expect(FailingPartition{RetryTime: retry.Never}.IsParked()).To(BeTrue())
		})

		It("returns false if the partition has a retry time", func() {
			Expect(FailingPartition{RetryTime: time.Now()}.IsParked()).To(BeFalse())
		})
	})
})
