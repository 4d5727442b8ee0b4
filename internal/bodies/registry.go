// Package bodies is a named registry of builtin coroutine bodies, used
// by internal/program to resolve a YAML task entry's "body: demo.xxx"
// name into a sched.Body. Registration happens at startup before any
// dispatch begins, so no locking is needed once a Registry is built.
package bodies

import (
	"fmt"
	"log/slog"

	"github.com/me/cosched/pkg/sched"
)

// Constructor builds a fresh sched.Body from a task's YAML args. Each
// call must return an independent body: two tasks registered against
// the same name must not share mutable state unless args says so (e.g.
// the same *sched.Mutex under args["mutex"]).
type Constructor func(args map[string]any) sched.Body

// Registry maps body names to their Constructor.
type Registry struct {
	constructors map[string]Constructor
	logger       *slog.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		constructors: make(map[string]Constructor),
		logger:       logger.With("component", "body-registry"),
	}
}

// Register adds a Constructor under name, overwriting any prior entry.
func (r *Registry) Register(name string, ctor Constructor) {
	r.constructors[name] = ctor
	r.logger.Debug("body registered", "name", name)
}

// Get returns the Constructor registered under name, or an error if
// none is registered.
func (r *Registry) Get(name string) (Constructor, error) {
	ctor, ok := r.constructors[name]
	if !ok {
		return nil, fmt.Errorf("no body registered for name %q", name)
	}
	return ctor, nil
}
