package segio

import "github.com/prometheus/client_golang/prometheus"

// poolCollector exports a Pool's counters. Values are read from the pool on
// every scrape, so the collector holds no state of its own.
type poolCollector struct {
	pool      *Pool
	idleBytes *prometheus.Desc
	takes     *prometheus.Desc
	hits      *prometheus.Desc
	recycled  *prometheus.Desc
	dropped   *prometheus.Desc
	discarded *prometheus.Desc
}

// NewPoolCollector returns a prometheus.Collector for p. Metric names are
// prefixed with namespace, e.g. "<namespace>_segment_pool_idle_bytes".
func NewPoolCollector(p *Pool, namespace string, constLabels prometheus.Labels) prometheus.Collector {
	name := func(n string) string {
		return prometheus.BuildFQName(namespace, "segment_pool", n)
	}
	return &poolCollector{
		pool: p,
		idleBytes: prometheus.NewDesc(name("idle_bytes"),
			"Bytes held by idle segments in the pool.", nil, constLabels),
		takes: prometheus.NewDesc(name("takes_total"),
			"Segments handed out by the pool.", nil, constLabels),
		hits: prometheus.NewDesc(name("hits_total"),
			"Segments handed out from the free list rather than allocated.", nil, constLabels),
		recycled: prometheus.NewDesc(name("recycled_total"),
			"Segments returned to the free list.", nil, constLabels),
		dropped: prometheus.NewDesc(name("dropped_shared_total"),
			"Returned segments not pooled because their block was still shared.", nil, constLabels),
		discarded: prometheus.NewDesc(name("discarded_total"),
			"Returned segments not pooled because the pool was full.", nil, constLabels),
	}
}

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.idleBytes
	ch <- c.takes
	ch <- c.hits
	ch <- c.recycled
	ch <- c.dropped
	ch <- c.discarded
}

func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.pool.Stats()
	ch <- prometheus.MustNewConstMetric(c.idleBytes, prometheus.GaugeValue, float64(s.ByteCount))
	ch <- prometheus.MustNewConstMetric(c.takes, prometheus.CounterValue, float64(s.Takes))
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(s.Hits))
	ch <- prometheus.MustNewConstMetric(c.recycled, prometheus.CounterValue, float64(s.Recycled))
	ch <- prometheus.MustNewConstMetric(c.dropped, prometheus.CounterValue, float64(s.Dropped))
	ch <- prometheus.MustNewConstMetric(c.discarded, prometheus.CounterValue, float64(s.Discarded))
}
