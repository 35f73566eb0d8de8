package streamprocessor_test

import (
	"context"
	"time"

	. "github.com/dogmatiq/eventcore/streamprocessor"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var _ = Describe("type Metrics", func() {
	var (
		ctx      context.Context
		cancel   context.CancelFunc
		env      *environment
		registry *prometheus.Registry
		metrics  *Metrics
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		env = newEnvironment(ctx)
		registry = prometheus.NewRegistry()

		var err error
		metrics, err = NewMetrics(registry)
		Expect(err).ShouldNot(HaveOccurred())
	})

	AfterEach(func() {
		cancel()
		env.DataStore.Close()
	})

	It("records the activity of a processor", func() {
		handler := &recorder{
			fn: func(_ context.Context, c call) Result {
				if c.Partition == "<a>" {
					return Failed("<reason>", true, time.Hour)
				}
				return Succeeded()
			},
		}

		d := env.driver(handler)
		d.Metrics = metrics

		env.commit(ctx, "<a>", "<b>", "<a>")
		go d.BeginProcessing(ctx)

		Eventually(func() (int, error) {
			return testutil.GatherAndCount(
				registry,
				"eventcore_stream_processor_dispatches_total",
			)
		}).Should(Equal(3)) // fresh/failed, fresh/succeeded, fresh/skipped

		Eventually(func() float64 {
			return gaugeValue(registry, "eventcore_stream_processor_position")
		}).Should(Equal(3.0))

		Expect(gaugeValue(registry, "eventcore_stream_processor_failing_partitions")).To(Equal(1.0))
		Expect(gaugeValue(registry, "eventcore_stream_processor_in_flight")).To(Equal(0.0))
	})

	It("returns an error if the metrics are already registered", func() {
		_, err := NewMetrics(registry)
		Expect(err).Should(HaveOccurred())
	})
})

// gaugeValue returns the value of the gauge with the given name, assuming
// there is a single processor.
func gaugeValue(g prometheus.Gatherer, name string) float64 {
	families, err := g.Gather()
	ExpectWithOffset(1, err).ShouldNot(HaveOccurred())

	for _, f := range families {
		if f.GetName() == name {
			for _, m := range f.GetMetric() {
				return m.GetGauge().GetValue()
			}
		}
	}

	return -1
}
