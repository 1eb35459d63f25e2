// Package integration exercises the {Adapter, Executor, Job, Scheduler}
// wiring end to end, covering the scenarios from the
// engine's testable-properties section that span more than one
// component.
package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryanb006/rwjobs/internal/adapter"
	"github.com/ryanb006/rwjobs/internal/executor"
	"github.com/ryanb006/rwjobs/internal/jobclass"
	"github.com/ryanb006/rwjobs/internal/scheduler"
)

type boomPerformer struct{}

func (boomPerformer) Perform(ctx context.Context, args ...any) error {
	return errors.New("boom")
}

// S2: two workers polling an empty store, schedule one job; exactly one
// of W1.Find / W2.Find returns it.
func TestScenario_TwoWorkersExactlyOneClaims(t *testing.T) {
	a := adapter.NewMemoryAdapter()
	_, err := a.Schedule(context.Background(), adapter.ScheduleSpec{Handler: "X", Queue: "default", Priority: 50, RunAt: time.Now()})
	require.NoError(t, err)

	rec1, err := a.Find(context.Background(), adapter.FindOptions{ProcessName: "w1", MaxRuntime: time.Hour})
	require.NoError(t, err)
	rec2, err := a.Find(context.Background(), adapter.FindOptions{ProcessName: "w2", MaxRuntime: time.Hour})
	require.NoError(t, err)

	assert.NotNil(t, rec1)
	assert.Nil(t, rec2)
}

// S3: a job whose Perform throws on attempt 1 ends up with attempts=1,
// lastError containing "boom", runAt ~= now + 1000ms, lockedAt=nil.
func TestScenario_FirstFailureSchedulesOneSecondBackoff(t *testing.T) {
	a := adapter.NewMemoryAdapter()
	reg := jobclass.NewRegistry()
	reg.Register(&jobclass.Class{Handler: "FlakyJob", New: func() jobclass.Performer { return boomPerformer{} }})

	payload, err := jobclass.EncodePayload("FlakyJob", nil)
	require.NoError(t, err)
	_, err = a.Schedule(context.Background(), adapter.ScheduleSpec{Handler: "FlakyJob", Args: payload, Queue: "default", Priority: 50, RunAt: time.Now()})
	require.NoError(t, err)

	claimed, err := a.Find(context.Background(), adapter.FindOptions{ProcessName: "w1", MaxRuntime: time.Hour})
	require.NoError(t, err)
	assert.Equal(t, 1, claimed.Attempts)

	ex, err := executor.New(a, claimed, reg, nil, 0)
	require.NoError(t, err)
	outcome := ex.Perform(context.Background())
	assert.Equal(t, executor.Retried, outcome)

	// The backoff window (~1s for attempt 1) has not elapsed yet, so an
	// immediate re-poll must not reclaim the row.
	immediate, err := a.Find(context.Background(), adapter.FindOptions{ProcessName: "w2", MaxRuntime: time.Hour})
	require.NoError(t, err)
	assert.Nil(t, immediate)

	// Forcing the backoff window open surfaces the persisted failure
	// state: attempts incremented again on reclaim, lastError retained.
	rescheduled := advanceAndFind(t, a)
	assert.Equal(t, 2, rescheduled.Attempts)
	require.NotNil(t, rescheduled.LastError)
	assert.Contains(t, *rescheduled.LastError, "boom")
}

// S4: a job that has failed maxAttempts times ends up failedAt set,
// runAt nil, and is never returned by find again.
func TestScenario_TerminalFailureAfterMaxAttempts(t *testing.T) {
	a := adapter.NewMemoryAdapter()
	reg := jobclass.NewRegistry()
	reg.Register(&jobclass.Class{Handler: "AlwaysFails", New: func() jobclass.Performer { return boomPerformer{} }})

	payload, err := jobclass.EncodePayload("AlwaysFails", nil)
	require.NoError(t, err)
	_, err = a.Schedule(context.Background(), adapter.ScheduleSpec{Handler: "AlwaysFails", Args: payload, Queue: "default", Priority: 50, RunAt: time.Now()})
	require.NoError(t, err)

	rec := mustFindIgnoringBackoff(t, a)
	for i := 0; i < adapter.DefaultMaxAttempts; i++ {
		ex, err := executor.New(a, rec, reg, nil, 0)
		require.NoError(t, err)
		outcome := ex.Perform(context.Background())

		if i == adapter.DefaultMaxAttempts-1 {
			assert.Equal(t, executor.TerminallyFailed, outcome)
			break
		}
		assert.Equal(t, executor.Retried, outcome)
		rec = advanceAndFind(t, a)
	}

	found, err := a.Find(context.Background(), adapter.FindOptions{ProcessName: "w-final", MaxRuntime: time.Hour})
	require.NoError(t, err)
	assert.Nil(t, found)
}

// S5: a worker locks a job then dies before completion; after
// maxRuntime elapses, another worker's Find returns the same id with
// attempts incremented by one.
func TestScenario_StaleLockReclaimedAfterMaxRuntime(t *testing.T) {
	a := adapter.NewMemoryAdapter()
	_, err := a.Schedule(context.Background(), adapter.ScheduleSpec{Handler: "X", Queue: "default", Priority: 50, RunAt: time.Now()})
	require.NoError(t, err)

	rec1, err := a.Find(context.Background(), adapter.FindOptions{ProcessName: "w1", MaxRuntime: 100 * time.Millisecond})
	require.NoError(t, err)
	require.Equal(t, 1, rec1.Attempts)

	time.Sleep(150 * time.Millisecond)

	rec2, err := a.Find(context.Background(), adapter.FindOptions{ProcessName: "w2", MaxRuntime: 100 * time.Millisecond})
	require.NoError(t, err)
	require.NotNil(t, rec2)
	assert.Equal(t, rec1.ID, rec2.ID)
	assert.Equal(t, 2, rec2.Attempts)
}

// S6: Job.Set({waitUntil: <far future>}).PerformLater() then an
// immediate Find returns nil.
func TestScenario_WaitUntilFutureNotYetEligible(t *testing.T) {
	a := adapter.NewMemoryAdapter()
	scheduler.Configure(a)
	defer scheduler.Reset()

	reg := jobclass.NewRegistry()
	class := jobclass.Define(reg, jobclass.Class{Handler: "FarFuture", New: func() jobclass.Performer { return boomPerformer{} }})

	future := time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := class.Set(jobclass.Options{WaitUntil: &future}).PerformLater(context.Background())
	require.NoError(t, err)

	found, err := a.Find(context.Background(), adapter.FindOptions{ProcessName: "w1", MaxRuntime: time.Hour})
	require.NoError(t, err)
	assert.Nil(t, found)
}

func mustFindIgnoringBackoff(t *testing.T, a *adapter.MemoryAdapter) *adapter.JobRecord {
	t.Helper()
	rec, err := a.Find(context.Background(), adapter.FindOptions{ProcessName: "w", MaxRuntime: time.Hour})
	require.NoError(t, err)
	require.NotNil(t, rec)
	return rec
}

// advanceAndFind re-claims the same record after manually clearing its
// backoff delay, since the retry loop in this test cannot wait out
// real quartic backoff intervals.
func advanceAndFind(t *testing.T, a *adapter.MemoryAdapter) *adapter.JobRecord {
	t.Helper()
	a.ForceRunnableNow()
	rec, err := a.Find(context.Background(), adapter.FindOptions{ProcessName: "w", MaxRuntime: time.Hour})
	require.NoError(t, err)
	require.NotNil(t, rec)
	return rec
}
