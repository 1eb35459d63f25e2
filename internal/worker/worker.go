// Package worker implements the long-lived poll loop that pulls one
// job at a time from an Adapter and hands it to an Executor.
package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ryanb006/rwjobs/internal/adapter"
	"github.com/ryanb006/rwjobs/internal/executor"
	"github.com/ryanb006/rwjobs/internal/jobclass"
	"github.com/ryanb006/rwjobs/internal/joblog"
	"github.com/ryanb006/rwjobs/internal/metricsserver"
)

// Defaults mirror the engine's retry and poll configuration.
const (
	DefaultMaxRuntime = 4 * time.Hour
	DefaultWaitTime   = 5 * time.Second
)

// Config constructs a Worker. Adapter and ProcessName are required;
// everything else falls back to the documented defaults.
type Config struct {
	Adapter     adapter.Adapter
	ProcessName string
	Logger      joblog.Logger
	Registry    *jobclass.Registry
	Metrics     metricsserver.Recorder

	Queue      string // empty means any queue
	MaxRuntime time.Duration
	WaitTime   time.Duration

	// MaxAttempts is the retry cap applied to records that do not carry
	// their own override (JobRecord.MaxAttempts). Zero defaults to
	// adapter.DefaultMaxAttempts.
	MaxAttempts int

	// Clear, when true, makes Run call Adapter.Clear and exit
	// immediately without entering the poll loop.
	Clear bool

	// Workoff, when true, makes the loop exit once Find returns no
	// work instead of sleeping and polling again.
	Workoff bool
}

// Worker is one polling loop for a single queue. Its state machine is
// RUNNING -> (Stop, i.e. SIGINT) -> DRAINING (finish current job, then
// exit) -> STOPPED. SIGTERM's immediate-stop semantics are a process
// concern handled by the CLI (see cmd/rwjobs): it exits without waiting
// for Run to return, rather than asking the loop to abort mid-Perform,
// since there is no cooperative cancellation delivered into user code.
type Worker struct {
	cfg Config

	forever int32 // atomic bool: 1 while the loop should keep polling
}

// New constructs a Worker from cfg, applying defaults.
func New(cfg Config) *Worker {
	if cfg.MaxRuntime == 0 {
		cfg.MaxRuntime = DefaultMaxRuntime
	}
	if cfg.WaitTime == 0 {
		cfg.WaitTime = DefaultWaitTime
	}
	if cfg.Logger == nil {
		cfg.Logger = joblog.NoOp()
	}
	if cfg.Registry == nil {
		cfg.Registry = jobclass.Default
	}
	if cfg.Metrics == nil {
		cfg.Metrics = noopRecorder{}
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = adapter.DefaultMaxAttempts
	}
	w := &Worker{cfg: cfg}
	w.forever = 1
	return w
}

// Stop requests a graceful drain: the current job (if any) finishes and
// is acknowledged before the loop exits. Equivalent to SIGINT.
func (w *Worker) Stop() {
	atomic.StoreInt32(&w.forever, 0)
}

// Run executes the poll loop described in the Worker component: if
// Clear is set, clear the store and return; otherwise poll, execute,
// and repeat until told to stop (or, in Workoff mode, until the queue
// is empty).
func (w *Worker) Run(ctx context.Context) error {
	if w.cfg.Clear {
		return w.cfg.Adapter.Clear(ctx)
	}

	w.cfg.Metrics.IncActiveWorkers()
	defer w.cfg.Metrics.DecActiveWorkers()

	for atomic.LoadInt32(&w.forever) == 1 {
		record, err := w.cfg.Adapter.Find(ctx, adapter.FindOptions{
			ProcessName: w.cfg.ProcessName,
			MaxRuntime:  w.cfg.MaxRuntime,
			Queue:       w.cfg.Queue,
		})
		if err != nil {
			w.cfg.Logger.Error("find failed", "error", err, "process", w.cfg.ProcessName)
			w.sleep(ctx)
			continue
		}

		if record == nil {
			if w.cfg.Workoff {
				return nil
			}
			w.sleep(ctx)
			continue
		}
		w.cfg.Metrics.IncClaimed()

		ex, err := executor.New(w.cfg.Adapter, record, w.cfg.Registry, w.cfg.Logger, w.cfg.MaxAttempts)
		if err != nil {
			w.cfg.Logger.Error("executor construction failed", "error", err)
			continue
		}

		switch ex.Perform(ctx) {
		case executor.Succeeded:
			w.cfg.Metrics.IncSucceeded()
		case executor.Retried:
			w.cfg.Metrics.IncRetried()
		case executor.TerminallyFailed:
			w.cfg.Metrics.IncFailed()
		}
		// Back-to-back claims do not sleep between them.
	}

	return nil
}

type noopRecorder struct{}

func (noopRecorder) IncScheduled()     {}
func (noopRecorder) IncClaimed()       {}
func (noopRecorder) IncSucceeded()     {}
func (noopRecorder) IncRetried()       {}
func (noopRecorder) IncFailed()        {}
func (noopRecorder) IncActiveWorkers() {}
func (noopRecorder) DecActiveWorkers() {}

func (w *Worker) sleep(ctx context.Context) {
	timer := time.NewTimer(w.cfg.WaitTime)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
