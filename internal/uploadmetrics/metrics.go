// Package uploadmetrics counts upload outcomes for a batch.
package uploadmetrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wandb/multiupload/internal/filetransfer"
)

const namespace = "multiupload"

// Metrics holds the collectors of one CLI run on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	uploads  *prometheus.CounterVec
	bytes    prometheus.Counter
	duration prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		uploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "uploads_total",
				Help:      "Finished upload tasks by status and error kind.",
			},
			[]string{"status", "kind"},
		),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_bytes_total",
			Help:      "File bytes sent by successful uploads.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_duration_seconds",
			Help:      "Wall time of each upload task.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
	}

	m.registry.MustRegister(m.uploads, m.bytes, m.duration)
	return m
}

// Observe records one finished task. Safe for concurrent use.
func (m *Metrics) Observe(outcome filetransfer.Outcome) {
	kind := filetransfer.Classify(outcome.Err)
	if kind == "" {
		kind = "none"
	}

	m.uploads.WithLabelValues(outcome.Status.String(), kind).Inc()
	m.bytes.Add(float64(outcome.Bytes))
	m.duration.Observe(outcome.Duration.Seconds())
}

// Registry exposes the collectors, e.g. for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes all metrics to path in the Prometheus text format,
// replacing the file atomically.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
