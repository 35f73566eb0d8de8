// Package providertest contains the behavioral tests that every
// persistence.Provider implementation must satisfy.
package providertest

import (
	"context"
	"time"

	"github.com/dogmatiq/eventcore/persistence"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

const (
	// DefaultTestTimeout is used when Out.TestTimeout is zero.
	DefaultTestTimeout = 10 * time.Second

	// DefaultTenantKey is the tenant used by tests that need only one
	// data-store.
	DefaultTenantKey = "<tenant>"
)

// In holds the values the tests pass to the provider's setup function.
type In struct {
	// TenantKey is the tenant used by tests that need only one data-store.
	TenantKey string
}

// Out holds the values the provider's setup function passes to the tests.
type Out struct {
	// NewProvider returns a new provider and an optional function that
	// releases its resources.
	NewProvider func() (p persistence.Provider, close func())

	// IsShared is true if separate provider instances see the same data.
	IsShared bool

	// TestTimeout bounds the duration of each test.
	TestTimeout time.Duration
}

// TestContext is shared by every test for a single provider.
type TestContext struct {
	Context context.Context
	In      In
	Out     Out
}

// Declare declares the provider tests.
//
// before is called before each test to configure the provider. after, if
// non-nil, is called once each test has finished.
func Declare(
	before func(context.Context, In) Out,
	after func(),
) {
	tc := &TestContext{}

	ginkgo.Context("standard provider test suite", func() {
		ginkgo.BeforeEach(func() {
			setup, cancelSetup := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancelSetup()

			tc.In = In{TenantKey: DefaultTenantKey}
			tc.Out = before(setup, tc.In)

			timeout := tc.Out.TestTimeout
			if timeout <= 0 {
				timeout = DefaultTestTimeout
			}

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			tc.Context = ctx

			// Cleanups run in reverse order, so the test context outlives
			// the provider's teardown.
			ginkgo.DeferCleanup(cancel)
			if after != nil {
				ginkgo.DeferCleanup(after)
			}
		})

		declareProviderTests(tc)
		declareDataStoreTests(tc)
		declareEventTests(tc)
		declareAggregateTests(tc)
		declareStreamTests(tc)
		declareStreamProcessorTests(tc)
	})
}

// SetupDataStore opens the data-store of the default tenant.
//
// The returned function closes the data-store and releases the provider.
func (tc *TestContext) SetupDataStore() (persistence.DataStore, func()) {
	p, release := tc.Out.NewProvider()
	if release == nil {
		release = func() {}
	}

	ds, err := p.Open(tc.Context, tc.In.TenantKey)
	if err != nil {
		release()
	}
	gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

	return ds, func() {
		ds.Close()
		release()
	}
}
