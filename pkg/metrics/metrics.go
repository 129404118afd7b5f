// Package metrics provides performance tracking and observability for Helix
// using Prometheus metrics. Collectors cover the extraction hot path: pages
// fetched, records emitted, request latency, and degraded-mode events such
// as suppressed fan-out sub-fetches.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordsExtracted counts records emitted per connector and stream.
	RecordsExtracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helix_records_extracted_total",
			Help: "Total number of records extracted",
		},
		[]string{"connector", "stream"},
	)

	// PagesFetched counts API pages fetched per connector and stream.
	PagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helix_pages_fetched_total",
			Help: "Total number of API pages fetched",
		},
		[]string{"connector", "stream"},
	)

	// RequestDuration tracks API request latency.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "helix_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"connector", "stream"},
	)

	// SuppressedFailures counts tolerated per-combination failures in
	// fan-out extraction and benign empty responses.
	SuppressedFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helix_suppressed_failures_total",
			Help: "Total number of tolerated sub-fetch failures",
		},
		[]string{"connector", "stream", "kind"},
	)

	// RecordsWritten counts records written per destination connector.
	RecordsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helix_records_written_total",
			Help: "Total number of records written to destinations",
		},
		[]string{"connector"},
	)
)

// Timer measures the duration of a single operation.
type Timer struct {
	start time.Time
}

// NewTimer starts a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Stop returns the elapsed duration
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// Collector aggregates ad-hoc metrics for a single connector instance.
// It backs the Metrics() surface of the connector interface; Prometheus
// collectors above cover cross-connector observability.
type Collector struct {
	name      string
	startTime time.Time
	values    map[string]interface{}
	mu        sync.RWMutex
}

// NewCollector creates a collector for the named connector
func NewCollector(name string) *Collector {
	return &Collector{
		name:      name,
		startTime: time.Now(),
		values:    make(map[string]interface{}),
	}
}

// Record stores a metric value
func (c *Collector) Record(name string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[name] = value
}

// Increment adds delta to a counter-style metric
func (c *Collector) Increment(name string, delta int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	current, _ := c.values[name].(int64)
	c.values[name] = current + delta
}

// GetAll returns a snapshot of all recorded values
func (c *Collector) GetAll() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snapshot := make(map[string]interface{}, len(c.values))
	for k, v := range c.values {
		snapshot[k] = v
	}
	return snapshot
}

// StartTime returns when the collector was created
func (c *Collector) StartTime() time.Time {
	return c.startTime
}

// Name returns the connector name the collector belongs to
func (c *Collector) Name() string {
	return c.name
}
