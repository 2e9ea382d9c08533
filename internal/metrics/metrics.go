// Package metrics provides a small, backend-agnostic abstraction for
// recording operational metrics from the load engine.
//
// It exposes a narrow Backend interface (counters and timing observations)
// behind a global, pluggable instance that defaults to a no-op, so metric
// calls are always safe even when no real backend is configured. Concrete
// systems (Prometheus Pushgateway) live in subpackages; the core load code
// depends only on this package.
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a duration-style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes metrics if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing one.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordLoad measures one load invocation: latency plus success/failure,
// partitioned by strategy.
func RecordLoad(strategy string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"strategy": strategy,
		"status":   status,
	}

	backend.IncCounter("staging_load_total", 1, lbls)
	backend.ObserveHistogram("staging_load_duration_seconds", d.Seconds(), lbls)
}

// RecordRows increments a row-level counter for the given strategy and kind
// (typically "inserted").
func RecordRows(strategy, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("staging_rows_total", float64(delta), Labels{
		"strategy": strategy,
		"kind":     kind,
	})
}
