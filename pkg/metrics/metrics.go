// Package metrics exposes alloc.Pool accounting as a Prometheus collector.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/srediag/safemem/pkg/alloc"
)

// Collector implements prometheus.Collector over a pool's Stats snapshot.
type Collector struct {
	pool *alloc.Pool

	allocations *prometheus.Desc
	releases    *prometheus.Desc
	liveRegions *prometheus.Desc
	bytesInUse  *prometheus.Desc
	arenaSlots  *prometheus.Desc
	arenaFree   *prometheus.Desc
}

// NewCollector wraps pool. Register it with a prometheus.Registerer.
func NewCollector(pool *alloc.Pool) *Collector {
	return &Collector{
		pool: pool,
		allocations: prometheus.NewDesc(
			"safemem_allocations_total",
			"Total regions handed out by the pool.",
			nil, nil),
		releases: prometheus.NewDesc(
			"safemem_releases_total",
			"Total regions returned to the pool.",
			nil, nil),
		liveRegions: prometheus.NewDesc(
			"safemem_live_regions",
			"Regions currently held by callers.",
			nil, nil),
		bytesInUse: prometheus.NewDesc(
			"safemem_bytes_in_use",
			"Bytes currently held by callers.",
			nil, nil),
		arenaSlots: prometheus.NewDesc(
			"safemem_arena_slots",
			"Total slots in the non-paged arena.",
			nil, nil),
		arenaFree: prometheus.NewDesc(
			"safemem_arena_free_slots",
			"Free slots in the non-paged arena.",
			nil, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.allocations
	ch <- c.releases
	ch <- c.liveRegions
	ch <- c.bytesInUse
	ch <- c.arenaSlots
	ch <- c.arenaFree
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.pool.Stats()
	ch <- prometheus.MustNewConstMetric(c.allocations, prometheus.CounterValue, float64(s.Allocations))
	ch <- prometheus.MustNewConstMetric(c.releases, prometheus.CounterValue, float64(s.Releases))
	ch <- prometheus.MustNewConstMetric(c.liveRegions, prometheus.GaugeValue, float64(s.LiveRegions))
	ch <- prometheus.MustNewConstMetric(c.bytesInUse, prometheus.GaugeValue, float64(s.BytesInUse))
	ch <- prometheus.MustNewConstMetric(c.arenaSlots, prometheus.GaugeValue, float64(s.ArenaSlots))
	ch <- prometheus.MustNewConstMetric(c.arenaFree, prometheus.GaugeValue, float64(s.ArenaFree))
}
