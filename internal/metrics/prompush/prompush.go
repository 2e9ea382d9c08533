// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// Load runs are short-lived batch jobs, so metrics are pushed to a
// Pushgateway on Flush rather than exposed on a scrape endpoint. All
// Prometheus-specific dependencies live here; the load engine depends only
// on metrics.Backend and can run with no backend at all.
package prompush

import (
	"fmt"

	"stageload/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	reg        *prometheus.Registry

	loadCounter  *prometheus.CounterVec // "staging_load_total"
	loadDuration *prometheus.SummaryVec // "staging_load_duration_seconds"
	rowCounter   *prometheus.CounterVec // "staging_rows_total"
}

// NewBackend constructs a Prometheus Pushgateway backend.
// jobName is the Pushgateway "job" grouping key; empty defaults to
// "stageload". gatewayURL is the base URL of the Pushgateway server.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "stageload"
	}

	reg := prometheus.NewRegistry()

	loadCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "staging_load_total",
			Help: "Completed staging loads, partitioned by strategy and status.",
		},
		[]string{"strategy", "status"},
	)
	loadDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "staging_load_duration_seconds",
			Help:       "Wall-clock duration of staging loads, partitioned by strategy and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"strategy", "status"},
	)
	rowCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "staging_rows_total",
			Help: "Row-level counts per strategy and kind (inserted, etc.).",
		},
		[]string{"strategy", "kind"},
	)

	if err := reg.Register(loadCounter); err != nil {
		return nil, fmt.Errorf("prompush: register load counter: %w", err)
	}
	if err := reg.Register(loadDuration); err != nil {
		return nil, fmt.Errorf("prompush: register load summary: %w", err)
	}
	if err := reg.Register(rowCounter); err != nil {
		return nil, fmt.Errorf("prompush: register row counter: %w", err)
	}

	return &Backend{
		gatewayURL:   gatewayURL,
		jobName:      jobName,
		reg:          reg,
		loadCounter:  loadCounter,
		loadDuration: loadDuration,
		rowCounter:   rowCounter,
	}, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case "staging_load_total":
		if b.loadCounter == nil {
			return
		}
		b.loadCounter.WithLabelValues(labels["strategy"], labels["status"]).Add(delta)

	case "staging_rows_total":
		if b.rowCounter == nil {
			return
		}
		b.rowCounter.WithLabelValues(labels["strategy"], labels["kind"]).Add(delta)

	default:
		// unknown metric name: ignore
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != "staging_load_duration_seconds" || b.loadDuration == nil {
		return
	}
	b.loadDuration.WithLabelValues(labels["strategy"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
