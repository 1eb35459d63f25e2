package executor

import (
	"fmt"
)

// AdapterRequiredError is raised when an Executor is constructed
// without an adapter. Programmer error; not recoverable.
type AdapterRequiredError struct{}

func (e *AdapterRequiredError) Error() string { return "executor: adapter is required" }

// JobRequiredError is raised when an Executor is constructed without a
// record to run.
type JobRequiredError struct{}

func (e *JobRequiredError) Error() string { return "executor: job record is required" }

// PerformNotImplementedError is raised when the resolved job class does
// not implement Perform.
type PerformNotImplementedError struct {
	Handler string
}

func (e *PerformNotImplementedError) Error() string {
	return fmt.Sprintf("executor: job %q does not implement Perform", e.Handler)
}

// PerformPanicError is raised when a job's Perform method panics.
// Executor.invoke recovers the panic and wraps it here so it is routed
// to Adapter.Failure like any other error, instead of crashing the
// worker process.
type PerformPanicError struct {
	Handler string
	Value   any
}

func (e *PerformPanicError) Error() string {
	return fmt.Sprintf("executor: job %q panicked: %v", e.Handler, e.Value)
}

// PerformError wraps any failure encountered while loading, building, or
// invoking a job's Perform method. It is the only error kind routed to
// Adapter.Failure; the Executor itself never re-raises it.
type PerformError struct {
	Cause error
}

func (e *PerformError) Error() string {
	return fmt.Sprintf("perform error: %s", e.Cause)
}

func (e *PerformError) Unwrap() error { return e.Cause }

func wrapAsPerformError(err error) error {
	if err == nil {
		return nil
	}
	if pe, ok := err.(*PerformError); ok {
		return pe
	}
	return &PerformError{Cause: err}
}
