// Package metrics records pipeline counters and timings through a pluggable
// Backend. The default backend discards everything, so callers never need to
// check whether metrics are configured.
//
// Concrete systems live in subpackages (prompush, datadog) so the warehouse
// and runner only depend on this package.
package metrics

import (
	"sync"
	"time"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Metric names emitted by the helpers below.
const (
	StepTotal          = "etl_step_total"
	StepDuration       = "etl_step_duration_seconds"
	RecordsTotal       = "etl_records_total"
	BatchesTotal       = "etl_batches_total"
	RunsTotal          = "etl_runs_total"
	RunDuration        = "etl_run_duration_seconds"
	LastSuccessSeconds = "etl_last_success_timestamp_seconds"
)

// Backend is implemented by each metrics system.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a duration style value.
	ObserveHistogram(name string, value float64, labels Labels)
	// SetGauge sets a gauge to value.
	SetGauge(name string, value float64, labels Labels)
	// Flush pushes buffered metrics, if the backend needs it.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) SetGauge(string, float64, Labels)         {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs b. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush delegates to the current backend.
func Flush() error {
	return current().Flush()
}

func status(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// RecordStep counts one execution of a warehouse step (provision_schema,
// transform_and_load, build_views) and observes its duration.
func RecordStep(job, step string, err error, d time.Duration) {
	lbls := Labels{"job": job, "step": step, "status": status(err)}
	b := current()
	b.IncCounter(StepTotal, 1, lbls)
	b.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRow adds delta to the record counter of kind. Kinds used by the
// warehouse are "inserted" and "<entity>_kept" / "<entity>_dropped".
func RecordRow(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(RecordsTotal, float64(delta), Labels{"job": job, "kind": kind})
}

// RecordBatches counts insert batches written by the loader.
func RecordBatches(job string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(BatchesTotal, float64(delta), Labels{"job": job})
}

// RecordRun counts a whole pipeline run. A successful run also moves the
// last-success gauge to finished.
func RecordRun(job string, err error, d time.Duration, finished time.Time) {
	lbls := Labels{"job": job, "status": status(err)}
	b := current()
	b.IncCounter(RunsTotal, 1, lbls)
	b.ObserveHistogram(RunDuration, d.Seconds(), lbls)
	if err == nil {
		b.SetGauge(LastSuccessSeconds, float64(finished.Unix()), Labels{"job": job})
	}
}
