// Package prom implements the observability hooks with Prometheus
// collectors.
//
// Batch runs have no scrape endpoint, so the CLI registers the collectors on
// a private registry and dumps them in the text exposition format when the
// run ends (see [WriteFile]), ready for a node exporter textfile collector.
package prom

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics implements observability.PartitionHooks, EvolutionHooks and
// CacheHooks.
type Metrics struct {
	partitions    *prometheus.CounterVec
	partitionTime prometheus.Histogram
	selectedQ     prometheus.Gauge
	chunks        *prometheus.CounterVec
	chunkTime     prometheus.Histogram
	samples       *prometheus.CounterVec
	samplesTotal  prometheus.Gauge
	evolutionTime prometheus.Histogram
	cache         *prometheus.CounterVec
	cacheBytes    *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		partitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "panpart_partitions_total",
			Help: "Partition runs by result",
		}, []string{"result"}),
		partitionTime: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "panpart_partition_duration_seconds",
			Help:    "Partition run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		}),
		selectedQ: f.NewGauge(prometheus.GaugeOpts{
			Name: "panpart_selected_q",
			Help: "Number of components chosen by the last partition run",
		}),
		chunks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "panpart_chunks_total",
			Help: "Solved chunks by result",
		}, []string{"result"}),
		chunkTime: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "panpart_chunk_duration_seconds",
			Help:    "Chunk solve duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		samples: f.NewCounterVec(prometheus.CounterOpts{
			Name: "panpart_evolution_samples_total",
			Help: "Completed evolution samples by subset size and result",
		}, []string{"size", "result"}),
		samplesTotal: f.NewGauge(prometheus.GaugeOpts{
			Name: "panpart_evolution_samples_scheduled",
			Help: "Samples scheduled by the last evolution run",
		}),
		evolutionTime: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "panpart_evolution_duration_seconds",
			Help:    "Evolution run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 4, 10),
		}),
		cache: f.NewCounterVec(prometheus.CounterOpts{
			Name: "panpart_cache_requests_total",
			Help: "Cache lookups and writes by key type and outcome",
		}, []string{"key_type", "outcome"}),
		cacheBytes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "panpart_cache_written_bytes_total",
			Help: "Bytes written to the cache by key type",
		}, []string{"key_type"}),
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) OnPartitionStart(context.Context, int, int, int) {}

func (m *Metrics) OnPartitionComplete(_ context.Context, q int, d time.Duration, err error) {
	m.partitions.WithLabelValues(result(err)).Inc()
	m.partitionTime.Observe(d.Seconds())
	if err == nil {
		m.selectedQ.Set(float64(q))
	}
}

func (m *Metrics) OnChunkStart(context.Context, int, int) {}

func (m *Metrics) OnChunkComplete(_ context.Context, _ int, _ int, d time.Duration, err error) {
	m.chunks.WithLabelValues(result(err)).Inc()
	m.chunkTime.Observe(d.Seconds())
}

func (m *Metrics) OnEvolutionStart(_ context.Context, samples int) {
	m.samplesTotal.Set(float64(samples))
}

func (m *Metrics) OnSampleComplete(_ context.Context, size int, err error) {
	m.samples.WithLabelValues(strconv.Itoa(size), result(err)).Inc()
}

func (m *Metrics) OnEvolutionComplete(_ context.Context, _ int, d time.Duration) {
	m.evolutionTime.Observe(d.Seconds())
}

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cache.WithLabelValues(keyType, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cache.WithLabelValues(keyType, "miss").Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, size int) {
	m.cache.WithLabelValues(keyType, "set").Inc()
	m.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

// WriteFile writes every metric gathered by g to path in the text
// exposition format.
func WriteFile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
