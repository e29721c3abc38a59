// Package metrics exports learned secondary index diagnostics as Prometheus
// metrics.
package metrics

import (
	"LearnedIndex/lsi"
	"LearnedIndex/utils"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "lsi"

// Source is the read-only view of an index the collector scrapes.
// *lsi.Index satisfies it for every key and model type.
type Source interface {
	Name() string
	Len() int
	MaxError() int
	Stats() lsi.Stats
	MemDetailed() utils.MemReport
}

// Collector implements prometheus.Collector over a single index. Values are
// read at scrape time, so the collector never holds stale copies.
type Collector struct {
	src Source

	baseAccesses  *prometheus.Desc
	falsePositive *prometheus.Desc
	keys          *prometheus.Desc
	maxError      *prometheus.Desc
	bytes         *prometheus.Desc
}

// NewCollector returns a collector labelled with src.Name(). Register one
// collector per index.
func NewCollector(src Source) *Collector {
	labels := prometheus.Labels{"index": src.Name()}
	return &Collector{
		src: src,
		baseAccesses: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "base_data_accesses_total"),
			"Reads of the caller's key array performed by lookups.",
			nil, labels,
		),
		falsePositive: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "false_positive_accesses_total"),
			"Key array reads that landed on a key smaller than the query.",
			nil, labels,
		),
		keys: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "keys"),
			"Number of indexed keys.",
			nil, labels,
		),
		maxError: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "max_error"),
			"Largest model prediction error observed on the training keys.",
			nil, labels,
		),
		bytes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "bytes"),
			"Index size in bytes by component.",
			[]string{"component"}, labels,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.baseAccesses
	ch <- c.falsePositive
	ch <- c.keys
	ch <- c.maxError
	ch <- c.bytes
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	stats := c.src.Stats()
	ch <- prometheus.MustNewConstMetric(c.baseAccesses, prometheus.CounterValue, float64(stats.BaseDataAccesses))
	ch <- prometheus.MustNewConstMetric(c.falsePositive, prometheus.CounterValue, float64(stats.FalsePositiveAccesses))
	ch <- prometheus.MustNewConstMetric(c.keys, prometheus.GaugeValue, float64(c.src.Len()))
	ch <- prometheus.MustNewConstMetric(c.maxError, prometheus.GaugeValue, float64(c.src.MaxError()))

	report := c.src.MemDetailed()
	ch <- prometheus.MustNewConstMetric(c.bytes, prometheus.GaugeValue, float64(report.TotalBytes), "total")
	for _, child := range report.Children {
		ch <- prometheus.MustNewConstMetric(c.bytes, prometheus.GaugeValue, float64(child.TotalBytes), child.Name)
	}
}
