package adapter

import (
	"fmt"
	"runtime/debug"
)

// SchedulingError wraps any failure raised while persisting a new
// JobRecord. The original error's message follows the wrapper's header,
// and the stack of the goroutine that created the wrapper is appended
// after it.
type SchedulingError struct {
	Cause error
	stack string
}

func NewSchedulingError(cause error) *SchedulingError {
	return &SchedulingError{Cause: cause, stack: string(debug.Stack())}
}

func (e *SchedulingError) Error() string {
	return fmt.Sprintf("scheduling error: %s\n%s", e.Cause, e.stack)
}

func (e *SchedulingError) Unwrap() error { return e.Cause }

// ModelNameError is raised at adapter construction when configured
// with an unknown backing model/table name.
type ModelNameError struct {
	Name string
}

func (e *ModelNameError) Error() string {
	return fmt.Sprintf("adapter: unknown model %q", e.Name)
}
