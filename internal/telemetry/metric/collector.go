package metric

import "github.com/prometheus/client_golang/prometheus"

// Sources are sampled on every scrape.
type Sources struct {
	Keys          func() int
	Channels      func() int
	Subscriptions func() int
}

// Collector reports sizes that are cheaper to sample than to track.
type Collector struct {
	src Sources

	keys          *prometheus.Desc
	channels      *prometheus.Desc
	subscriptions *prometheus.Desc
}

// NewCollector creates a collector reading from src. Nil sources are skipped.
func NewCollector(src Sources) *Collector {
	return &Collector{
		src: src,
		keys: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "keyspace", "keys"),
			"Keys currently held, including expired keys not yet evicted.",
			nil, nil),
		channels: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "pubsub", "channels"),
			"Channels known to the subscription registry.",
			nil, nil),
		subscriptions: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "pubsub", "subscriptions"),
			"Registered (channel, subscriber) pairs, duplicates included.",
			nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.keys
	ch <- c.channels
	ch <- c.subscriptions
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	emit := func(d *prometheus.Desc, fn func() int) {
		if fn == nil {
			return
		}
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, float64(fn()))
	}
	emit(c.keys, c.src.Keys)
	emit(c.channels, c.src.Channels)
	emit(c.subscriptions, c.src.Subscriptions)
}
