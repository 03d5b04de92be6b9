// Package metrics provides Prometheus instrumentation for the archiver.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the archiver.
type Metrics struct {
	// Segment metrics
	SegmentsKept      prometheus.Counter
	SegmentsDiscarded prometheus.Counter
	SegmentsFailed    prometheus.Counter
	SegmentPeak       prometheus.Histogram
	SegmentBytes      prometheus.Histogram

	// Retention metrics
	FilesEvicted    prometheus.Counter
	DeleteFailures  prometheus.Counter
	ArchivedFiles   prometheus.Gauge
	PublishFailures prometheus.Counter
	FilesPublished  prometheus.Counter

	// Engine metrics
	WriteFailures   prometheus.Counter
	JournalFailures prometheus.Counter
	BlocksCaptured  prometheus.Counter
	State           *prometheus.GaugeVec
}

// States lists the engine state label values.
var States = []string{"COLD_START", "RECORDING", "CLASSIFYING", "PADDING", "STOPPED"}

// New creates and registers all metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SegmentsKept: factory.NewCounter(prometheus.CounterOpts{
			Name: "wcfm_segments_kept_total",
			Help: "Total number of segments archived",
		}),
		SegmentsDiscarded: factory.NewCounter(prometheus.CounterOpts{
			Name: "wcfm_segments_discarded_total",
			Help: "Total number of segments discarded as silent or failed",
		}),
		SegmentsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "wcfm_segments_failed_total",
			Help: "Total number of segments whose file could not be written",
		}),
		SegmentPeak: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "wcfm_segment_peak_amplitude",
			Help:    "Peak absolute sample amplitude per segment",
			Buckets: prometheus.ExponentialBuckets(16, 2, 12), // 16 to 32768
		}),
		SegmentBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "wcfm_segment_size_bytes",
			Help:    "Size of archived segment files in bytes",
			Buckets: prometheus.ExponentialBuckets(1<<20, 2, 12), // 1MB to ~2GB
		}),

		FilesEvicted: factory.NewCounter(prometheus.CounterOpts{
			Name: "wcfm_files_evicted_total",
			Help: "Total number of archive files evicted by retention",
		}),
		DeleteFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "wcfm_delete_failures_total",
			Help: "Total number of failed archive file deletions",
		}),
		ArchivedFiles: factory.NewGauge(prometheus.GaugeOpts{
			Name: "wcfm_archived_files",
			Help: "Current number of files held by the retention ledger",
		}),
		PublishFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "wcfm_publish_failures_total",
			Help: "Total number of failed archive uploads",
		}),
		FilesPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "wcfm_files_published_total",
			Help: "Total number of archive files uploaded",
		}),

		WriteFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "wcfm_write_failures_total",
			Help: "Total number of archive file create or write failures",
		}),
		JournalFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "wcfm_journal_failures_total",
			Help: "Total number of failed segment log writes",
		}),
		BlocksCaptured: factory.NewCounter(prometheus.CounterOpts{
			Name: "wcfm_blocks_captured_total",
			Help: "Total number of audio blocks read from the source",
		}),
		State: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "wcfm_engine_state",
			Help: "Current engine state (1 for the active state)",
		}, []string{"state"}),
	}
}

// SetState marks state as the only active engine state.
func (m *Metrics) SetState(state string) {
	for _, s := range States {
		v := 0.0
		if s == state {
			v = 1
		}
		m.State.WithLabelValues(s).Set(v)
	}
}

// RecordKept records an archived segment.
func (m *Metrics) RecordKept(peak int64) {
	m.SegmentsKept.Inc()
	m.SegmentPeak.Observe(float64(peak))
}

// RecordDiscarded records a discarded segment.
func (m *Metrics) RecordDiscarded(peak int64, failed bool) {
	m.SegmentsDiscarded.Inc()
	m.SegmentPeak.Observe(float64(peak))
	if failed {
		m.SegmentsFailed.Inc()
	}
}

// RecordEviction records a retention eviction and its deletion outcome.
func (m *Metrics) RecordEviction(deleteErr error) {
	m.FilesEvicted.Inc()
	if deleteErr != nil {
		m.DeleteFailures.Inc()
	}
}

// RecordArchived records the final size of a closed kept file.
func (m *Metrics) RecordArchived(sizeBytes int64) {
	m.SegmentBytes.Observe(float64(sizeBytes))
}

// RecordPublish records the result of uploading an archive file.
func (m *Metrics) RecordPublish(err error) {
	if err != nil {
		m.PublishFailures.Inc()
		return
	}
	m.FilesPublished.Inc()
}
