package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryanb006/rwjobs/internal/adapter"
	"github.com/ryanb006/rwjobs/internal/jobclass"
)

type countingPerformer struct {
	calls int32
}

func (c *countingPerformer) Perform(ctx context.Context, args ...any) error {
	atomic.AddInt32(&c.calls, 1)
	return nil
}

func TestWorker_WorkoffExitsWhenQueueEmpty(t *testing.T) {
	a := adapter.NewMemoryAdapter()
	reg := jobclass.NewRegistry()
	perf := &countingPerformer{}
	reg.Register(&jobclass.Class{Handler: "Noop", New: func() jobclass.Performer { return perf }})

	for i := 0; i < 3; i++ {
		payload, err := jobclass.EncodePayload("Noop", nil)
		require.NoError(t, err)
		_, err = a.Schedule(context.Background(), adapter.ScheduleSpec{
			Handler: "Noop", Args: payload, Queue: "default", Priority: 50, RunAt: time.Now(),
		})
		require.NoError(t, err)
	}

	w := New(Config{Adapter: a, ProcessName: "w1", Registry: reg, Workoff: true, WaitTime: 10 * time.Millisecond})

	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("workoff worker did not exit")
	}

	assert.Equal(t, int32(3), atomic.LoadInt32(&perf.calls))
}

func TestWorker_ClearCallsAdapterClearAndExits(t *testing.T) {
	a := adapter.NewMemoryAdapter()
	_, err := a.Schedule(context.Background(), adapter.ScheduleSpec{Handler: "X", RunAt: time.Now()})
	require.NoError(t, err)

	w := New(Config{Adapter: a, ProcessName: "w1", Clear: true})
	require.NoError(t, w.Run(context.Background()))

	found, err := a.Find(context.Background(), adapter.FindOptions{ProcessName: "w2", MaxRuntime: time.Hour})
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestWorker_MaxAttemptsConfigAppliesToRecordsWithoutOwnOverride(t *testing.T) {
	a := adapter.NewMemoryAdapter()
	reg := jobclass.NewRegistry()
	reg.Register(&jobclass.Class{Handler: "Flaky", New: func() jobclass.Performer {
		return failingPerformer{}
	}})

	payload, err := jobclass.EncodePayload("Flaky", nil)
	require.NoError(t, err)
	_, err = a.Schedule(context.Background(), adapter.ScheduleSpec{
		Handler: "Flaky", Args: payload, Queue: "default", Priority: 50, RunAt: time.Now(),
	})
	require.NoError(t, err)

	w := New(Config{Adapter: a, ProcessName: "w1", Registry: reg, Workoff: true, MaxAttempts: 1})
	require.NoError(t, w.Run(context.Background()))

	found, err := a.Find(context.Background(), adapter.FindOptions{ProcessName: "w2", MaxRuntime: time.Hour})
	require.NoError(t, err)
	assert.Nil(t, found, "record should be terminally failed after one attempt, not reclaimable")
}

type failingPerformer struct{}

func (failingPerformer) Perform(ctx context.Context, args ...any) error {
	return assert.AnError
}

func TestWorker_StopDrainsGracefully(t *testing.T) {
	a := adapter.NewMemoryAdapter()
	reg := jobclass.NewRegistry()
	perf := &countingPerformer{}
	reg.Register(&jobclass.Class{Handler: "Noop", New: func() jobclass.Performer { return perf }})

	w := New(Config{Adapter: a, ProcessName: "w1", Registry: reg, WaitTime: 10 * time.Millisecond})

	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background()) }()

	time.Sleep(30 * time.Millisecond)
	w.Stop()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after Stop()")
	}
}
