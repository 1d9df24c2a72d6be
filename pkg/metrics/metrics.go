// Package metrics exposes Prometheus metrics for the storage layer:
// elements appended, pages sealed, compressed and uncompressed page bytes,
// and cluster commits.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ElementsAppended counts elements appended per column kind.
	ElementsAppended = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strata_elements_appended_total",
			Help: "Total number of column elements appended",
		},
		[]string{"kind"},
	)

	// PagesSealed counts sealed pages per column kind.
	PagesSealed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strata_pages_sealed_total",
			Help: "Total number of pages sealed",
		},
		[]string{"kind"},
	)

	// PageBytesUncompressed counts sealed page payload bytes before
	// compression.
	PageBytesUncompressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strata_page_bytes_uncompressed_total",
			Help: "Sealed page bytes before compression",
		},
		[]string{"algorithm"},
	)

	// PageBytesCompressed counts sealed page payload bytes after
	// compression.
	PageBytesCompressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strata_page_bytes_compressed_total",
			Help: "Sealed page bytes after compression",
		},
		[]string{"algorithm"},
	)

	// ClustersCommitted counts committed clusters per store.
	ClustersCommitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "strata_clusters_committed_total",
			Help: "Total number of committed clusters",
		},
	)

	// PageReadLatency tracks the distribution of sealed-page read and
	// decompression latencies in nanoseconds.
	PageReadLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "strata_page_read_latency_nanoseconds",
			Help: "Sealed page read latency in nanoseconds",
			Buckets: []float64{
				1000,  // 1μs - open page hits
				10000, // 10μs - small page decompression
				1e5,   // 100μs
				1e6,   // 1ms
				1e7,   // 10ms - large compressed pages
			},
		},
	)
)

// Timer measures the duration of one operation.
type Timer struct {
	start time.Time
}

// NewTimer starts timing immediately.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Stop returns the elapsed time since creation.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
