// Package prometheus implements metrics.Collector on top of
// prometheus/client_golang, grounded on the vector-metric registration
// pattern used throughout the retrieval pack's Tendermint-derived
// consensus code (prometheus.NewCounterVec/GaugeOpts registered once via
// prometheus.MustRegister). No example repo in the pack ships a metrics
// client of its own, so this is the new domain dependency this expansion
// introduces for spec.md §11's injectable Collector.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Dorico-Dynamics/txova-tcc/metrics"
)

// Collector implements metrics.Collector, registering one CounterVec,
// one HistogramVec, and one GaugeVec keyed by metric name and an
// arbitrary label set, rather than pre-declaring one vector per metric
// name — the coordinator's metric set is small and fixed (see
// metrics.Metric* constants) but this keeps the registration path
// generic for any labels a caller passes.
type Collector struct {
	counters   *prometheus.CounterVec
	histograms *prometheus.HistogramVec
	gauges     *prometheus.GaugeVec
}

// New creates a Collector and registers its vectors with reg. Pass
// prometheus.DefaultRegisterer for the global registry.
func New(reg prometheus.Registerer, namespace string) (*Collector, error) {
	c := &Collector{
		counters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Coordinator event counters, keyed by metric name.",
		}, []string{"metric", "label"}),
		histograms: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "duration_seconds",
			Help:      "Coordinator operation durations, keyed by metric name.",
		}, []string{"metric", "label"}),
		gauges: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gauge",
			Help:      "Coordinator point-in-time gauges, keyed by metric name.",
		}, []string{"metric", "label"}),
	}

	for _, collector := range []prometheus.Collector{c.counters, c.histograms, c.gauges} {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func joinLabels(labels []string) string {
	if len(labels) == 0 {
		return ""
	}
	joined := labels[0]
	for _, l := range labels[1:] {
		joined += "," + l
	}
	return joined
}

func (c *Collector) IncCounter(name string, labels ...string) {
	c.counters.WithLabelValues(name, joinLabels(labels)).Inc()
}

func (c *Collector) ObserveDuration(name string, d time.Duration, labels ...string) {
	c.histograms.WithLabelValues(name, joinLabels(labels)).Observe(d.Seconds())
}

func (c *Collector) SetGauge(name string, v float64, labels ...string) {
	c.gauges.WithLabelValues(name, joinLabels(labels)).Set(v)
}

var _ metrics.Collector = (*Collector)(nil)
