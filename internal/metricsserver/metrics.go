// Package metricsserver exposes job-engine counters over a plain-text
// /metrics endpoint, adapted from the teacher's dispatcher metrics into
// the engine's own concerns (scheduled/claimed/succeeded/retried/failed
// job counts plus the active worker gauge) rather than queue-depth and
// inflight counts a heap-backed in-process dispatcher would track.
package metricsserver

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

// Recorder is the counters side the worker pool writes to.
type Recorder interface {
	IncScheduled()
	IncClaimed()
	IncSucceeded()
	IncRetried()
	IncFailed()

	IncActiveWorkers()
	DecActiveWorkers()
}

// Metrics is the reference Recorder implementation: atomic counters
// served as Prometheus-style plain text, the same shape as the
// teacher's /metrics handler.
type Metrics struct {
	scheduled uint64
	claimed   uint64
	succeeded uint64
	retried   uint64
	failed    uint64

	activeWorkers int64
}

func New() *Metrics { return &Metrics{} }

func (m *Metrics) IncScheduled() { atomic.AddUint64(&m.scheduled, 1) }
func (m *Metrics) IncClaimed()   { atomic.AddUint64(&m.claimed, 1) }
func (m *Metrics) IncSucceeded() { atomic.AddUint64(&m.succeeded, 1) }
func (m *Metrics) IncRetried()   { atomic.AddUint64(&m.retried, 1) }
func (m *Metrics) IncFailed()    { atomic.AddUint64(&m.failed, 1) }

func (m *Metrics) IncActiveWorkers() { atomic.AddInt64(&m.activeWorkers, 1) }
func (m *Metrics) DecActiveWorkers() { atomic.AddInt64(&m.activeWorkers, -1) }

// Handler serves the counters as plain text, in the same ad hoc format
// as the teacher's /metrics handler.
func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w,
			"jobs_scheduled_total %d\n"+
				"jobs_claimed_total %d\n"+
				"jobs_succeeded_total %d\n"+
				"jobs_retried_total %d\n"+
				"jobs_failed_total %d\n"+
				"active_workers %d\n",
			atomic.LoadUint64(&m.scheduled),
			atomic.LoadUint64(&m.claimed),
			atomic.LoadUint64(&m.succeeded),
			atomic.LoadUint64(&m.retried),
			atomic.LoadUint64(&m.failed),
			atomic.LoadInt64(&m.activeWorkers),
		)
	})
}
