package streamprocessor_test

import (
	"context"
	"time"

	"github.com/dogmatiq/eventcore/internal/x/gomegax"
	"github.com/dogmatiq/eventcore/retry"
	. "github.com/dogmatiq/eventcore/streamprocessor"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type PersistedStateRepository", func() {
	var (
		ctx    context.Context
		cancel context.CancelFunc
		env    *environment
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		env = newEnvironment(ctx)
	})

	AfterEach(func() {
		env.DataStore.Close()
		cancel()
	})

	It("returns false if there is no state", func() {
		_, ok, err := env.Repository.TryGet(ctx, processorID)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("returns the persisted state", func() {
		now := time.Now().Truncate(time.Millisecond)
		expect := State{
			Position: 10,
			FailingPartitions: FailingPartitions{
				"<a>": {
					Position:           3,
					RetryTime:          now.Add(time.Minute),
					Reason:             "<reason>",
					ProcessingAttempts: 2,
					LastFailed:         now,
				},
				"<b>": {
					Position:           7,
					RetryTime:          retry.Never,
					Reason:             "<other reason>",
					ProcessingAttempts: 1,
					LastFailed:         now,
				},
			},
			LastSuccessfullyProcessed: now,
		}

		err := env.Repository.Persist(ctx, processorID, expect)
		Expect(err).ShouldNot(HaveOccurred())

		s, ok, err := env.Repository.TryGet(ctx, processorID)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(s).To(gomegax.EqualX(expect))
	})

	It("replaces the existing state", func() {
		err := env.Repository.Persist(
			ctx,
			processorID,
			State{
				Position: 1,
				FailingPartitions: FailingPartitions{
					"<a>": {Position: 0},
				},
			},
		)
		Expect(err).ShouldNot(HaveOccurred())

		err = env.Repository.Persist(ctx, processorID, State{Position: 2})
		Expect(err).ShouldNot(HaveOccurred())

		s, _, err := env.Repository.TryGet(ctx, processorID)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(s).To(gomegax.EqualX(State{Position: 2}))
	})

	It("removes the state", func() {
		err := env.Repository.Persist(ctx, processorID, State{Position: 1})
		Expect(err).ShouldNot(HaveOccurred())

		err = env.Repository.Remove(ctx, processorID)
		Expect(err).ShouldNot(HaveOccurred())

		_, ok, err := env.Repository.TryGet(ctx, processorID)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("does not return an error when removing state that does not exist", func() {
		err := env.Repository.Remove(ctx, processorID)
		Expect(err).ShouldNot(HaveOccurred())
	})
})
