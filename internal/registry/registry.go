package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrUnknownAction   = errors.New("registry: unknown action")
	ErrDuplicateAction = errors.New("registry: action already defined")
)

// ActionFunc handles one invocation of a named action with a raw JSON
// request body.
type ActionFunc func(ctx context.Context, input json.RawMessage) (any, error)

// Registry holds the named actions this plugin exposes to its host, e.g.
// "postgres/documents" for indexing into the documents table.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]ActionFunc
}

func New() *Registry {
	return &Registry{actions: make(map[string]ActionFunc)}
}

func (r *Registry) Define(name string, fn ActionFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.actions[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateAction, name)
	}
	r.actions[name] = fn
	return nil
}

func (r *Registry) Lookup(name string) (ActionFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.actions[name]
	return fn, ok
}

func (r *Registry) Run(ctx context.Context, name string, input json.RawMessage) (any, error) {
	fn, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, name)
	}
	return fn(ctx, input)
}

// Names returns all defined action names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
