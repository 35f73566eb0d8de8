package providertest

import (
	"github.com/dogmatiq/eventcore/persistence"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

// declareProviderTests declares a functional test-suite for a specific
// persistence.Provider implementation.
func declareProviderTests(tc *TestContext) {
	ginkgo.Describe("type persistence.Provider", func() {
		var (
			provider persistence.Provider
			close    func()
		)

		ginkgo.BeforeEach(func() {
			provider, close = tc.Out.NewProvider()
		})

		ginkgo.AfterEach(func() {
			if close != nil {
				close()
			}
		})

		ginkgo.Describe("func Open()", func() {
			ginkgo.It("returns different instances for different tenants", func() {
				ds1, err := provider.Open(tc.Context, "<tenant-1>")
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				defer ds1.Close()

				ds2, err := provider.Open(tc.Context, "<tenant-2>")
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				defer ds2.Close()

				gomega.Expect(ds1).ToNot(gomega.BeIdenticalTo(ds2))
			})

			ginkgo.It("allows the data-store to be re-opened after it is closed", func() {
				ds, err := provider.Open(tc.Context, tc.In.TenantKey)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				err = ds.Close()
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				ds, err = provider.Open(tc.Context, tc.In.TenantKey)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				ds.Close()
			})

			ginkgo.When("the provider is shared", func() {
				ginkgo.BeforeEach(func() {
					if !tc.Out.IsShared {
						ginkgo.Skip("provider is exclusive")
					}
				})

				ginkgo.It("allows multiple data-stores for the same tenant", func() {
					ds1, err := provider.Open(tc.Context, tc.In.TenantKey)
					gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
					defer ds1.Close()

					ds2, err := provider.Open(tc.Context, tc.In.TenantKey)
					gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
					defer ds2.Close()
				})
			})

			ginkgo.When("the provider is exclusive", func() {
				ginkgo.BeforeEach(func() {
					if tc.Out.IsShared {
						ginkgo.Skip("provider is shared")
					}
				})

				ginkgo.It("returns an error if the tenant's data-store is already open", func() {
					ds, err := provider.Open(tc.Context, tc.In.TenantKey)
					gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
					defer ds.Close()

					_, err = provider.Open(tc.Context, tc.In.TenantKey)
					gomega.Expect(err).To(gomega.Equal(persistence.ErrDataStoreLocked))
				})
			})
		})
	})
}
