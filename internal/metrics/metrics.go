// Package metrics exposes Prometheus collectors for result ingestion.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeConflict = "conflict"
	OutcomeFailed   = "failed"

	// OutcomeMissing marks a cleanup whose object was already gone.
	OutcomeMissing = "missing"
)

// Metrics is safe to use as a nil pointer; every method becomes a no-op.
type Metrics struct {
	uploads        *prometheus.CounterVec
	records        prometheus.Counter
	uploadDuration prometheus.Histogram
	deletes        prometheus.Counter
	cleanups       *prometheus.CounterVec
}

type Option func(*options)

type options struct {
	namespace string
	buckets   []float64
}

func WithNamespace(namespace string) Option {
	return func(o *options) {
		if namespace != "" {
			o.namespace = namespace
		}
	}
}

func WithHistogramBuckets(buckets []float64) Option {
	return func(o *options) {
		if len(buckets) > 0 {
			o.buckets = buckets
		}
	}
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer, opts ...Option) *Metrics {
	o := options{namespace: "results", buckets: prometheus.DefBuckets}
	for _, opt := range opts {
		opt(&o)
	}

	auto := promauto.With(reg)
	return &Metrics{
		uploads: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "uploads_total",
			Help:      "Result spreadsheet uploads by outcome",
		}, []string{"outcome"}),
		records: auto.NewCounter(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "records_ingested_total",
			Help:      "Exam result rows committed to the store",
		}),
		uploadDuration: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: o.namespace,
			Name:      "upload_duration_seconds",
			Help:      "Time spent processing an upload",
			Buckets:   o.buckets,
		}),
		deletes: auto.NewCounter(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "deletes_total",
			Help:      "Uploads deleted together with their results",
		}),
		cleanups: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "archive_cleanups_total",
			Help:      "Archived spreadsheet cleanups by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) ObserveUpload(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(outcome).Inc()
	m.uploadDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) AddRecords(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.records.Add(float64(n))
}

func (m *Metrics) IncDeletes() {
	if m == nil {
		return
	}
	m.deletes.Inc()
}

func (m *Metrics) ObserveCleanup(outcome string) {
	if m == nil {
		return
	}
	m.cleanups.WithLabelValues(outcome).Inc()
}
