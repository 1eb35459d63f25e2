package jobclass

import (
	"context"
	"time"

	"github.com/ryanb006/rwjobs/internal/adapter"
	"github.com/ryanb006/rwjobs/internal/scheduler"
)

// Options overrides a Class's defaults for one scheduled invocation via
// Set. Wait and WaitUntil are mutually exclusive; when both are given,
// WaitUntil wins (the source this engine was distilled from leaves the
// precedence undocumented — this implementation picks WaitUntil).
type Options struct {
	Wait        *time.Duration
	WaitUntil   *time.Time
	Queue       *string
	Priority    *int
	MaxAttempts *int
}

// Builder is the value returned by Class.Set, layering Options over a
// Class's declarative defaults.
type Builder struct {
	class *Class
	opts  Options
}

// Set returns a Builder that layers opts over c's defaults, without
// mutating c.
func (c *Class) Set(opts Options) *Builder {
	return &Builder{class: c, opts: opts}
}

func (b *Builder) runAt(now time.Time) time.Time {
	if b.opts.WaitUntil != nil {
		return *b.opts.WaitUntil
	}
	if b.opts.Wait != nil {
		return now.Add(*b.opts.Wait)
	}
	return now
}

func (b *Builder) queue() string {
	if b.opts.Queue != nil {
		return *b.opts.Queue
	}
	return b.class.Queue
}

func (b *Builder) priority() int {
	if b.opts.Priority != nil {
		return *b.opts.Priority
	}
	return b.class.Priority
}

func (b *Builder) maxAttempts() int {
	if b.opts.MaxAttempts != nil {
		return *b.opts.MaxAttempts
	}
	return b.class.MaxAttempts
}

// PerformLater schedules args for later execution via the scheduler
// facade and returns the persisted record.
func (b *Builder) PerformLater(ctx context.Context, args ...any) (*adapter.JobRecord, error) {
	payload, err := EncodePayload(b.class.Handler, args)
	if err != nil {
		return nil, err
	}

	return scheduler.Schedule(ctx, adapter.ScheduleSpec{
		Handler:     b.class.Handler,
		Args:        payload,
		Queue:       b.queue(),
		Priority:    b.priority(),
		RunAt:       b.runAt(time.Now()),
		MaxAttempts: b.maxAttempts(),
	})
}

// PerformLater is shorthand for Set(Options{}).PerformLater(args...).
func (c *Class) PerformLater(ctx context.Context, args ...any) (*adapter.JobRecord, error) {
	return c.Set(Options{}).PerformLater(ctx, args...)
}

// PerformNow instantiates the class and invokes Perform in-process
// immediately, bypassing the adapter entirely.
func (c *Class) PerformNow(ctx context.Context, args ...any) error {
	instance := c.New()
	return instance.Perform(ctx, args...)
}
