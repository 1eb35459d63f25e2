package adapter

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryAdapter is an in-process Adapter backed by a map guarded by a
// mutex, used for tests and local development without a database. The
// candidate ordering reuses a binary heap the way the teacher's
// in-process priority queue did, but here it orders claim candidates
// by (priority ASC, runAt ASC, id ASC) per the Adapter contract rather
// than the age-boosted "effective priority" an in-memory dispatch queue
// would use.
type MemoryAdapter struct {
	mu      sync.Mutex
	records map[string]*JobRecord
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{records: make(map[string]*JobRecord)}
}

func (a *MemoryAdapter) Schedule(ctx context.Context, spec ScheduleSpec) (*JobRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	runAt := spec.RunAt
	rec := &JobRecord{
		ID:          uuid.NewString(),
		Handler:     spec.Handler,
		Args:        spec.Args,
		Queue:       spec.Queue,
		Priority:    spec.Priority,
		RunAt:       &runAt,
		Attempts:    0,
		MaxAttempts: EffectiveMaxAttempts(spec.MaxAttempts),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	a.records[rec.ID] = rec
	return cloneRecord(rec), nil
}

// candidateHeap orders claimable records by (priority ASC, runAt ASC,
// id ASC), the same tiebreak chain required of Adapter.Find.
type candidateHeap []*JobRecord

func (h candidateHeap) Len() int { return len(h) }
func (h candidateHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority < h[j].Priority
	}
	if !h[i].RunAt.Equal(*h[j].RunAt) {
		return h[i].RunAt.Before(*h[j].RunAt)
	}
	return h[i].ID < h[j].ID
}
func (h candidateHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *candidateHeap) Push(x any)        { *h = append(*h, x.(*JobRecord)) }
func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

func (a *MemoryAdapter) Find(ctx context.Context, opts FindOptions) (*JobRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()

	var candidates candidateHeap
	for _, rec := range a.records {
		if !rec.Claimable(now, opts.MaxRuntime) {
			continue
		}
		if opts.Queue != "" && rec.Queue != opts.Queue {
			continue
		}
		candidates = append(candidates, rec)
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	heap.Init(&candidates)
	winner := heap.Pop(&candidates).(*JobRecord)

	winner.LockedAt = &now
	processName := opts.ProcessName
	winner.LockedBy = &processName
	winner.Attempts++
	winner.UpdatedAt = now

	return cloneRecord(winner), nil
}

func (a *MemoryAdapter) Success(ctx context.Context, record *JobRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.records, record.ID)
	return nil
}

func (a *MemoryAdapter) Failure(ctx context.Context, record *JobRecord, cause error, maxAttempts int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	rec, ok := a.records[record.ID]
	if !ok {
		return nil
	}

	now := time.Now()
	errMsg := FormatError(cause)
	rec.LastError = &errMsg
	rec.LockedAt = nil
	rec.LockedBy = nil
	rec.UpdatedAt = now

	if rec.Attempts < EffectiveMaxAttempts(maxAttempts) {
		runAt := now.Add(backoffDuration(rec.Attempts))
		rec.RunAt = &runAt
		return nil
	}

	rec.FailedAt = &now
	rec.RunAt = nil
	return nil
}

func (a *MemoryAdapter) Clear(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = make(map[string]*JobRecord)
	return nil
}

func cloneRecord(rec *JobRecord) *JobRecord {
	cp := *rec
	return &cp
}

// ForceRunnableNow clears the lock and backoff delay on every
// unfailed record so the next Find call can reclaim it immediately,
// for tests that exercise many retry iterations without waiting out
// real quartic backoff intervals. Test-only helper.
func (a *MemoryAdapter) ForceRunnableNow() {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	for _, rec := range a.records {
		if rec.FailedAt != nil {
			continue
		}
		rec.RunAt = &now
		rec.LockedAt = nil
		rec.LockedBy = nil
	}
}
