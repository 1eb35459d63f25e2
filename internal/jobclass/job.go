// Package jobclass provides the declarative job base: per-class
// defaults (queue, priority, retry cap) plus the fluent scheduling
// surface described in the Job base component of the engine.
package jobclass

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ryanb006/rwjobs/internal/adapter"
)

// Performer is implemented by user job classes. Perform receives the
// args the job was scheduled with, already JSON-decoded into concrete
// Go values (strings, numbers, maps, slices — whatever json.Unmarshal
// produces for an interface{} target).
type Performer interface {
	Perform(ctx context.Context, args ...any) error
}

// Class declares a job's defaults and how to construct a fresh
// Performer for each invocation. It plays the role the spec assigns to
// an inheriting Job subclass: a per-class config struct read by the
// scheduler, with no language-level subtype dispatch required.
type Class struct {
	// Handler is the unique name persisted with every scheduled
	// invocation of this class and used to look it up again at
	// execution time.
	Handler string

	// Defaults applied when Set is not used to override them.
	Queue       string
	Priority    int
	MaxAttempts int

	// New constructs a fresh Performer instance for one invocation.
	New func() Performer
}

// DefaultQueue and DefaultPriority are applied by Define when a Class
// does not specify them.
const (
	DefaultQueue    = "default"
	DefaultPriority = 50
)

// Define registers class with reg (or the package-level default
// registry if reg is nil) and returns it, filling in queue/priority
// defaults.
func Define(reg *Registry, class Class) *Class {
	if class.Queue == "" {
		class.Queue = DefaultQueue
	}
	if class.Priority == 0 {
		class.Priority = DefaultPriority
	}
	if class.MaxAttempts == 0 {
		class.MaxAttempts = adapter.DefaultMaxAttempts
	}
	c := class
	if reg == nil {
		reg = Default
	}
	reg.Register(&c)
	return &c
}

// JobNotFoundError is raised when loadJob cannot resolve a handler name
// to any registered class at all.
type JobNotFoundError struct {
	Handler string
}

func (e *JobNotFoundError) Error() string {
	return fmt.Sprintf("job: handler %q not found", e.Handler)
}

// JobExportNotFoundError is raised when a handler resolves to a source
// location (e.g. a registered module) but that location exports no
// class of the requested name.
type JobExportNotFoundError struct {
	Handler string
}

func (e *JobExportNotFoundError) Error() string {
	return fmt.Sprintf("job: handler %q has no matching export", e.Handler)
}

// Payload is the persisted shape of JobRecord.Handler/Args: the handler
// name and its JSON-serializable arguments combined into one blob, per
// the data model's "persisted handler payload" requirement.
type Payload struct {
	Handler string `json:"handler"`
	Args    []any  `json:"args"`
}

// EncodePayload serializes handler+args into the blob stored in a
// JobRecord.
func EncodePayload(handler string, args []any) ([]byte, error) {
	return json.Marshal(Payload{Handler: handler, Args: args})
}

// DecodePayload reverses EncodePayload.
func DecodePayload(blob []byte) (Payload, error) {
	var p Payload
	err := json.Unmarshal(blob, &p)
	return p, err
}
