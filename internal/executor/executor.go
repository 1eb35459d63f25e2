// Package executor runs a single claimed job record: load the user
// class, invoke it, and route the outcome back to the adapter. It
// never retries in-process; retry is expressed only by re-scheduling
// via the adapter.
package executor

import (
	"context"

	"github.com/ryanb006/rwjobs/internal/adapter"
	"github.com/ryanb006/rwjobs/internal/jobclass"
	"github.com/ryanb006/rwjobs/internal/joblog"
)

// Executor is stateless; construct one per job execution.
type Executor struct {
	adapter            adapter.Adapter
	record             *adapter.JobRecord
	registry           *jobclass.Registry
	log                joblog.Logger
	defaultMaxAttempts int
}

// New constructs an Executor for one record. adapter and record are
// required; reg defaults to jobclass.Default and log to a no-op sink
// when nil. defaultMaxAttempts is the worker-level retry cap fallback
// used when record.MaxAttempts is unset (zero); it is itself run
// through adapter.EffectiveMaxAttempts, so zero there falls back to
// adapter.DefaultMaxAttempts.
func New(a adapter.Adapter, record *adapter.JobRecord, reg *jobclass.Registry, log joblog.Logger, defaultMaxAttempts int) (*Executor, error) {
	if a == nil {
		return nil, &AdapterRequiredError{}
	}
	if record == nil {
		return nil, &JobRequiredError{}
	}
	if reg == nil {
		reg = jobclass.Default
	}
	if log == nil {
		log = joblog.NoOp()
	}
	return &Executor{adapter: a, record: record, registry: reg, log: log, defaultMaxAttempts: defaultMaxAttempts}, nil
}

// maxAttempts resolves the effective retry cap for e.record: a
// per-record override wins, falling back to the worker-level default
// passed to New, falling back to adapter.DefaultMaxAttempts.
func (e *Executor) maxAttempts() int {
	if e.record.MaxAttempts > 0 {
		return adapter.EffectiveMaxAttempts(e.record.MaxAttempts)
	}
	return adapter.EffectiveMaxAttempts(e.defaultMaxAttempts)
}

// Outcome reports what Perform did with the record, so callers (the
// Worker) can drive metrics without Executor depending on a metrics
// package itself.
type Outcome int

const (
	Succeeded Outcome = iota
	Retried           // failed, but rescheduled with backoff
	TerminallyFailed  // failed, max attempts exhausted
)

// Perform deserializes the record's handler payload, resolves and
// invokes the job class, and routes the outcome back to the adapter.
// It swallows every error after routing it to Adapter.Failure; it
// never returns an error to the caller (the Worker), matching the
// "errors during execution must not crash the worker process" policy.
func (e *Executor) Perform(ctx context.Context) (outcome Outcome) {
	payload, err := jobclass.DecodePayload(e.record.Args)
	if err != nil {
		return e.fail(ctx, wrapAsPerformError(err))
	}

	class, err := e.registry.Load(payload.Handler)
	if err != nil {
		return e.fail(ctx, wrapAsPerformError(err))
	}

	instance := class.New()
	if instance == nil {
		return e.fail(ctx, wrapAsPerformError(&PerformNotImplementedError{Handler: payload.Handler}))
	}

	if err := e.invoke(ctx, instance, payload.Args); err != nil {
		return e.fail(ctx, wrapAsPerformError(err))
	}

	if err := e.adapter.Success(ctx, e.record); err != nil {
		e.log.Error("mark success failed", "job", e.record.ID, "error", err)
	}
	return Succeeded
}

// invoke calls instance.Perform, recovering a panic from arbitrary job
// code and converting it into an error so a misbehaving handler cannot
// crash the worker process; it is routed to Adapter.Failure exactly
// like any other returned error.
func (e *Executor) invoke(ctx context.Context, instance jobclass.Performer, args []any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PerformPanicError{Handler: e.record.Handler, Value: r}
		}
	}()
	return instance.Perform(ctx, args...)
}

func (e *Executor) fail(ctx context.Context, cause error) Outcome {
	e.log.Warn("job failed", "job", e.record.ID, "handler", e.record.Handler, "error", cause)
	limit := e.maxAttempts()
	if err := e.adapter.Failure(ctx, e.record, cause, limit); err != nil {
		e.log.Error("mark failure failed", "job", e.record.ID, "error", err)
	}
	if e.record.Attempts >= limit {
		return TerminallyFailed
	}
	return Retried
}
