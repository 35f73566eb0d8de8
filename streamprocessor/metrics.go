package streamprocessor

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is a set of Prometheus metrics that describe the activity of stream
// processors.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	inFlight          *prometheus.GaugeVec
	dispatches        *prometheus.CounterVec
	failingPartitions *prometheus.GaugeVec
	position          *prometheus.GaugeVec
}

// NewMetrics returns a new set of metrics registered with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		inFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "eventcore",
				Subsystem: "stream_processor",
				Name:      "in_flight",
				Help:      "The number of events currently being handled.",
			},
			[]string{"processor"},
		),
		dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "eventcore",
				Subsystem: "stream_processor",
				Name:      "dispatches_total",
				Help:      "The number of events dispatched, by kind and outcome.",
			},
			[]string{"processor", "kind", "outcome"},
		),
		failingPartitions: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "eventcore",
				Subsystem: "stream_processor",
				Name:      "failing_partitions",
				Help:      "The number of partitions that are currently failing.",
			},
			[]string{"processor"},
		),
		position: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "eventcore",
				Subsystem: "stream_processor",
				Name:      "position",
				Help:      "The position of the earliest unfinished event in the stream.",
			},
			[]string{"processor"},
		),
	}

	for _, c := range []prometheus.Collector{
		m.inFlight,
		m.dispatches,
		m.failingPartitions,
		m.position,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) dispatched(id ID) {
	if m != nil {
		m.inFlight.WithLabelValues(id.Key()).Inc()
	}
}

func (m *Metrics) completed(id ID, k DispatchKind, outcome string) {
	if m != nil {
		m.inFlight.WithLabelValues(id.Key()).Dec()
		m.dispatches.WithLabelValues(id.Key(), k.String(), outcome).Inc()
	}
}

func (m *Metrics) skipped(id ID) {
	if m != nil {
		m.dispatches.WithLabelValues(id.Key(), Fresh.String(), "skipped").Inc()
	}
}

func (m *Metrics) observe(id ID, s State) {
	if m != nil {
		m.failingPartitions.WithLabelValues(id.Key()).Set(float64(len(s.FailingPartitions)))
		m.position.WithLabelValues(id.Key()).Set(float64(s.Position))
	}
}
