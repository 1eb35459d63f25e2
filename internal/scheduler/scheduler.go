// Package scheduler is the thin entry point application code schedules
// jobs through: it resolves the process-wide configured adapter and
// forwards to Adapter.Schedule, the way the teacher's Dispatcher sat
// between callers and the store.
package scheduler

import (
	"context"
	"sync"

	"github.com/ryanb006/rwjobs/internal/adapter"
	"github.com/ryanb006/rwjobs/internal/metricsserver"
)

// AdapterNotConfiguredError is raised when Schedule is called before
// Configure has set a process-wide adapter.
type AdapterNotConfiguredError struct{}

func (e *AdapterNotConfiguredError) Error() string {
	return "scheduler: no adapter configured; call scheduler.Configure at boot"
}

var (
	mu       sync.RWMutex
	adapterI adapter.Adapter
	metrics  metricsserver.Recorder
)

// Configure sets the process-wide adapter used by Schedule. It is
// intended to be called once at process boot; call it again explicitly
// (e.g. in test setup/teardown) rather than relying on implicit
// reassignment elsewhere.
func Configure(a adapter.Adapter) {
	mu.Lock()
	defer mu.Unlock()
	adapterI = a
}

// ConfigureMetrics sets an optional Recorder that Schedule reports
// scheduling activity to. Calling it with nil disables reporting.
func ConfigureMetrics(m metricsserver.Recorder) {
	mu.Lock()
	defer mu.Unlock()
	metrics = m
}

// Configured reports the currently configured adapter, or nil.
func Configured() adapter.Adapter {
	mu.RLock()
	defer mu.RUnlock()
	return adapterI
}

// Reset clears the configured adapter and metrics recorder. Test hook
// only.
func Reset() {
	Configure(nil)
	ConfigureMetrics(nil)
}

// Schedule resolves the configured adapter and forwards spec to its
// Schedule method, wrapping any underlying failure in a
// SchedulingError.
func Schedule(ctx context.Context, spec adapter.ScheduleSpec) (*adapter.JobRecord, error) {
	mu.RLock()
	a := adapterI
	m := metrics
	mu.RUnlock()

	if a == nil {
		return nil, &AdapterNotConfiguredError{}
	}

	rec, err := a.Schedule(ctx, spec)
	if err != nil {
		return nil, adapter.NewSchedulingError(err)
	}
	if m != nil {
		m.IncScheduled()
	}
	return rec, nil
}
