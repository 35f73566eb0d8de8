package persistence_test

import (
	"context"
	"errors"

	. "github.com/dogmatiq/eventcore/persistence"
	"github.com/dogmatiq/eventcore/persistence/memorypersistence"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type DataStoreSet", func() {
	var (
		ctx    context.Context
		opened []string
		memory *memorypersistence.Provider
		set    *DataStoreSet
	)

	BeforeEach(func() {
		ctx = context.Background()
		opened = nil
		memory = &memorypersistence.Provider{}

		set = &DataStoreSet{
			Provider: providerFunc(func(ctx context.Context, k string) (DataStore, error) {
				opened = append(opened, k)
				return memory.Open(ctx, k)
			}),
		}

		DeferCleanup(set.Close)
	})

	Describe("func Get()", func() {
		It("opens each tenant's data-store once", func() {
			a1, err := set.Get(ctx, "<tenant-a>")
			Expect(err).ShouldNot(HaveOccurred())

			a2, err := set.Get(ctx, "<tenant-a>")
			Expect(err).ShouldNot(HaveOccurred())

			b, err := set.Get(ctx, "<tenant-b>")
			Expect(err).ShouldNot(HaveOccurred())

			Expect(a1).To(BeIdenticalTo(a2))
			Expect(a1).NotTo(BeIdenticalTo(b))
			Expect(opened).To(Equal([]string{"<tenant-a>", "<tenant-b>"}))
		})

		It("returns the provider's error", func() {
			set.Provider = providerFunc(func(context.Context, string) (DataStore, error) {
				return nil, errors.New("<error>")
			})

			_, err := set.Get(ctx, "<tenant>")
			Expect(err).To(MatchError("<error>"))
		})
	})

	Describe("func Close()", func() {
		It("closes every data-store in the set", func() {
			a, err := set.Get(ctx, "<tenant-a>")
			Expect(err).ShouldNot(HaveOccurred())

			b, err := set.Get(ctx, "<tenant-b>")
			Expect(err).ShouldNot(HaveOccurred())

			Expect(set.Close()).To(Succeed())

			_, err = a.Persist(ctx, Batch{})
			Expect(err).To(Equal(ErrDataStoreClosed))

			_, err = b.Persist(ctx, Batch{})
			Expect(err).To(Equal(ErrDataStoreClosed))
		})

		It("causes Get() to open the data-store again", func() {
			_, err := set.Get(ctx, "<tenant>")
			Expect(err).ShouldNot(HaveOccurred())

			Expect(set.Close()).To(Succeed())

			_, err = set.Get(ctx, "<tenant>")
			Expect(err).ShouldNot(HaveOccurred())
			Expect(opened).To(Equal([]string{"<tenant>", "<tenant>"}))
		})
	})
})

type providerFunc func(context.Context, string) (DataStore, error)

func (fn providerFunc) Open(ctx context.Context, k string) (DataStore, error) {
	return fn(ctx, k)
}
