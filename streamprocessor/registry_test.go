package streamprocessor_test

import (
	"context"
	"time"

	"github.com/dogmatiq/eventcore/stream"
	. "github.com/dogmatiq/eventcore/streamprocessor"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type Registry", func() {
	var (
		ctx      context.Context
		cancel   context.CancelFunc
		env      *environment
		registry *Registry
		driver   *Driver
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		env = newEnvironment(ctx)
		registry = &Registry{
			Repository: env.Repository,
		}
		driver = env.driver(&recorder{})
	})

	AfterEach(func() {
		cancel()
		env.DataStore.Close()
	})

	Describe("func Start()", func() {
		It("runs the processor", func() {
			env.commit(ctx, "<a>")

			err := registry.Start(ctx, driver)
			Expect(err).ShouldNot(HaveOccurred())

			Eventually(func() stream.Position {
				return driver.CurrentState().Position
			}).Should(BeNumerically("==", 1))
		})

		It("returns an error if the processor is already registered", func() {
			err := registry.Start(ctx, driver)
			Expect(err).ShouldNot(HaveOccurred())

			err = registry.Start(ctx, env.driver(&recorder{}))
			Expect(err).To(Equal(AlreadyRegisteredError{Key: processorID.Key()}))

			d, ok := registry.Get(processorID)
			Expect(ok).To(BeTrue())
			Expect(d).To(BeIdenticalTo(driver))
			Eventually(driver.Status).Should(Equal(Running))
		})

		It("unregisters the processor when it stops", func() {
			pctx, pcancel := context.WithCancel(ctx)

			err := registry.Start(pctx, driver)
			Expect(err).ShouldNot(HaveOccurred())

			Eventually(driver.Status).Should(Equal(Running))
			pcancel()

			Eventually(func() bool {
				_, ok := registry.Get(processorID)
				return ok
			}).Should(BeFalse())

			Expect(driver.Status()).To(Equal(Stopped))
		})
	})

	Describe("func Stop()", func() {
		It("stops the processor and waits for it to finish", func() {
			err := registry.Start(ctx, driver)
			Expect(err).ShouldNot(HaveOccurred())

			ok, err := registry.Stop(ctx, processorID)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(driver.Status()).To(Equal(Stopped))
		})

		It("returns false if the processor is not registered", func() {
			ok, err := registry.Stop(ctx, processorID)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(ok).To(BeFalse())
		})
	})

	Describe("func Processors()", func() {
		It("returns the registered processors ordered by key", func() {
			other := env.driver(&recorder{})
			other.ID = ID{
				Scope:        "<another scope>",
				Processor:    uuid.MustParse("6f5e4d3c-2b1a-4f0e-9dc8-b7a695847362"),
				SourceStream: stream.EventLog,
			}

			Expect(registry.Start(ctx, driver)).To(Succeed())
			Expect(registry.Start(ctx, other)).To(Succeed())

			Expect(registry.Processors()).To(Equal([]*Driver{other, driver}))
		})
	})

	Describe("func Unregister()", func() {
		It("stops the processor and removes its state", func() {
			env.commit(ctx, "<a>")

			err := registry.Start(ctx, driver)
			Expect(err).ShouldNot(HaveOccurred())

			Eventually(func() bool {
				_, ok, err := env.Repository.TryGet(ctx, processorID)
				Expect(err).ShouldNot(HaveOccurred())
				return ok
			}).Should(BeTrue())

			err = registry.Unregister(ctx, processorID)
			Expect(err).ShouldNot(HaveOccurred())

			_, ok := registry.Get(processorID)
			Expect(ok).To(BeFalse())

			_, ok, err = env.Repository.TryGet(ctx, processorID)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(ok).To(BeFalse())
		})
	})
})
