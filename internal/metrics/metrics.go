// Package metrics records pipeline counters and stage latencies with Prometheus.
// There is no scrape endpoint; WriteTextfile dumps the registry in the text exposition format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for the uploads and events counters.
const (
	OutcomeOK             = "ok"
	OutcomeSourceNotFound = "source_not_found"
	OutcomeObjectNotFound = "object_not_found"
	OutcomeMalformed      = "malformed"
	OutcomeError          = "error"
)

// Pipeline stages timed by ObserveStage.
const (
	StagePut     = "put"
	StageAnalyze = "analyze"
	StageAppend  = "append"
)

// Recorder holds the pipeline metrics. A nil *Recorder is valid and records nothing.
type Recorder struct {
	uploads       *prometheus.CounterVec
	events        *prometheus.CounterVec
	analyzedBytes prometheus.Counter
	stageDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// NewRecorder creates the metrics and registers them on reg.
func NewRecorder(reg *prometheus.Registry) (*Recorder, error) {
	r := &Recorder{
		uploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uploadsim_uploads_total",
				Help: "Total number of uploads handled, by outcome.",
			},
			[]string{"status"},
		),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uploadsim_events_total",
				Help: "Total number of object-created events processed, by outcome.",
			},
			[]string{"status"},
		),
		analyzedBytes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "uploadsim_analyzed_bytes_total",
				Help: "Total number of object bytes read by the analyzer.",
			},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "uploadsim_stage_duration_seconds",
				Help:    "Duration of each pipeline stage.",
				Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
			},
			[]string{"stage"},
		),
		gatherer: reg,
	}

	for _, c := range []prometheus.Collector{r.uploads, r.events, r.analyzedBytes, r.stageDuration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}
	return r, nil
}

// ObserveUpload counts one upload with the given outcome.
func (r *Recorder) ObserveUpload(outcome string) {
	if r == nil {
		return
	}
	r.uploads.WithLabelValues(outcome).Inc()
}

// ObserveEvent counts one processed event with the given outcome.
func (r *Recorder) ObserveEvent(outcome string) {
	if r == nil {
		return
	}
	r.events.WithLabelValues(outcome).Inc()
}

// AddAnalyzedBytes adds n to the analyzed bytes counter.
func (r *Recorder) AddAnalyzedBytes(n int64) {
	if r == nil || n <= 0 {
		return
	}
	r.analyzedBytes.Add(float64(n))
}

// ObserveStage records how long a stage took.
func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// WriteTextfile writes every metric of the registry to path, replacing it atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.gatherer)
}
