package jobclass

import "sync"

// Registry maps handler names to Classes. It is the JobRegistry
// abstraction called for in the engine's design notes: a mapping from
// handler name to constructor, populated here by explicit registration.
// Scanning a jobs directory on disk is an application concern, left to
// the embedding program (out of the core's scope).
type Registry struct {
	mu      sync.RWMutex
	classes map[string]*Class
}

// Default is the package-level registry Define populates when no
// explicit Registry is supplied, mirroring how application job classes
// are typically registered once at process boot.
var Default = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{classes: make(map[string]*Class)}
}

func (r *Registry) Register(c *Class) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classes[c.Handler] = c
}

// Load resolves handler to its registered Class, the injectable
// loadJob(handler) -> JobClass capability the Executor depends on.
func (r *Registry) Load(handler string) (*Class, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.classes[handler]
	if !ok {
		return nil, &JobNotFoundError{Handler: handler}
	}
	if c.New == nil {
		return nil, &JobExportNotFoundError{Handler: handler}
	}
	return c, nil
}
