// Package metrics exposes prometheus counters for record reading, trace
// assembly and packing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Merge operations.
const (
	MergeAdd  = "add"
	MergeHeal = "heal"
)

// Metrics holds all prometheus metrics. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	recordsRead    prometheus.Counter
	bytesRead      prometheus.Counter
	recordsSkipped prometheus.Counter
	readErrors     *prometheus.CounterVec
	detections     *prometheus.CounterVec

	segmentsCreated prometheus.Counter
	merges          *prometheus.CounterVec

	recordsPacked prometheus.Counter
	samplesPacked prometheus.Counter
	packDuration  prometheus.Histogram
}

// NewMetrics creates the metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		recordsRead: factory.NewCounter(prometheus.CounterOpts{
			Name: "mstrace_records_read_total",
			Help: "Total number of data records read",
		}),
		bytesRead: factory.NewCounter(prometheus.CounterOpts{
			Name: "mstrace_record_bytes_read_total",
			Help: "Total number of record bytes read",
		}),
		recordsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "mstrace_records_skipped_total",
			Help: "Total number of non-data blocks skipped",
		}),
		readErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mstrace_read_errors_total",
			Help: "Total number of failed record reads",
		}, []string{"kind"}),
		detections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mstrace_record_length_detections_total",
			Help: "Total number of record lengths detected",
		}, []string{"length"}),

		segmentsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "mstrace_segments_created_total",
			Help: "Total number of trace segments created",
		}),
		merges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mstrace_segment_merges_total",
			Help: "Total number of coverage spans merged into segments",
		}, []string{"operation"}),

		recordsPacked: factory.NewCounter(prometheus.CounterOpts{
			Name: "mstrace_records_packed_total",
			Help: "Total number of records packed",
		}),
		samplesPacked: factory.NewCounter(prometheus.CounterOpts{
			Name: "mstrace_samples_packed_total",
			Help: "Total number of samples packed",
		}),
		packDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "mstrace_pack_duration_seconds",
			Help:    "Time spent packing a segment",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// RecordRead records a record of n bytes read from a stream.
func (m *Metrics) RecordRead(n int) {
	if m == nil {
		return
	}
	m.recordsRead.Inc()
	m.bytesRead.Add(float64(n))
}

// RecordSkipped records a non-data block passed over.
func (m *Metrics) RecordSkipped() {
	if m == nil {
		return
	}
	m.recordsSkipped.Inc()
}

// ReadError records a failed read of the given kind.
func (m *Metrics) ReadError(kind string) {
	if m == nil {
		return
	}
	m.readErrors.WithLabelValues(kind).Inc()
}

// LengthDetected records a detected record length.
func (m *Metrics) LengthDetected(length int) {
	if m == nil {
		return
	}
	m.detections.WithLabelValues(strconv.Itoa(length)).Inc()
}

// SegmentCreated records a new trace segment.
func (m *Metrics) SegmentCreated() {
	if m == nil {
		return
	}
	m.segmentsCreated.Inc()
}

// Merged records n merges of the given operation.
func (m *Metrics) Merged(operation string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.merges.WithLabelValues(operation).Add(float64(n))
}

// Packed records the output of packing one segment.
func (m *Metrics) Packed(records, samples int, duration time.Duration) {
	if m == nil {
		return
	}
	m.recordsPacked.Add(float64(records))
	m.samplesPacked.Add(float64(samples))
	m.packDuration.Observe(duration.Seconds())
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
