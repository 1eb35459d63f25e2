// Package adapter defines the durable-queue contract used by the job
// engine and the reference implementations backing it.
package adapter

import "time"

// JobRecord is one row per scheduled job invocation. Fields mirror the
// persisted layout recommended in the reference SQL schema: indexes on
// (queue, priority, runAt) and (lockedBy).
type JobRecord struct {
	ID      string
	Handler string
	Args    []byte // JSON-encoded args

	Queue    string
	Priority int

	RunAt    *time.Time
	LockedAt *time.Time
	LockedBy *string

	Attempts    int
	MaxAttempts int
	LastError   *string
	FailedAt    *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Claimable reports whether the record is eligible to be claimed by a
// worker at the given instant, per the claim algorithm in the Adapter
// contract: not terminally failed, due, and either unlocked or stuck
// past maxRuntime.
func (j *JobRecord) Claimable(now time.Time, maxRuntime time.Duration) bool {
	if j.FailedAt != nil {
		return false
	}
	if j.RunAt == nil || j.RunAt.After(now) {
		return false
	}
	if j.LockedAt == nil {
		return true
	}
	return j.LockedAt.Before(now.Add(-maxRuntime))
}

// ScheduleSpec is the input to Adapter.Schedule.
type ScheduleSpec struct {
	Handler  string
	Args     []byte
	Queue    string
	Priority int
	RunAt    time.Time

	// MaxAttempts overrides the retry cap applied to this job's
	// Failure decisions. Zero means "use the engine default"
	// (EffectiveMaxAttempts fills it in at Schedule time).
	MaxAttempts int
}

// FindOptions parameterizes a single claim attempt.
type FindOptions struct {
	ProcessName string
	MaxRuntime  time.Duration
	Queue       string // empty means any queue
}
