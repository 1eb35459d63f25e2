package adapter

import "context"

// Adapter is the sole gateway to durable job state. Implementations must
// guarantee that two concurrent callers of Find cannot both receive the
// same record (the at-most-one-worker-per-job invariant), using a
// conditional update keyed on a freshness token (updatedAt or
// equivalent) so the claim cannot ABA.
type Adapter interface {
	// Schedule persists a new JobRecord and returns it. Failures are
	// wrapped in a SchedulingError by callers (the Scheduler facade),
	// not by the Adapter itself.
	Schedule(ctx context.Context, spec ScheduleSpec) (*JobRecord, error)

	// Find atomically claims one runnable record for opts.ProcessName,
	// or returns (nil, nil) if none are eligible.
	Find(ctx context.Context, opts FindOptions) (*JobRecord, error)

	// Success removes the record from the store.
	Success(ctx context.Context, record *JobRecord) error

	// Failure records the error, clears the lock, and either
	// reschedules with backoff or marks the record terminally failed,
	// depending on whether record.Attempts has reached maxAttempts.
	Failure(ctx context.Context, record *JobRecord, cause error, maxAttempts int) error

	// Clear deletes all records. For tests and admin tooling only.
	Clear(ctx context.Context) error
}

// DefaultMaxAttempts is the retry cap applied when neither a job class
// nor a worker overrides it.
const DefaultMaxAttempts = 24

// EffectiveMaxAttempts returns n if it is a positive override, else
// DefaultMaxAttempts. Every caller that threads a max-attempts value
// (Class.MaxAttempts, Worker.Config.MaxAttempts, JobRecord.MaxAttempts)
// runs it through here so a zero value always means "use the default"
// rather than "never retry".
func EffectiveMaxAttempts(n int) int {
	if n <= 0 {
		return DefaultMaxAttempts
	}
	return n
}
