package migrate

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownSource is returned for unregistered source plugin ids.
var ErrUnknownSource = errors.New("unknown migration source plugin")

// SourceConstructor builds a source for one migration.
type SourceConstructor func(m *Migration, db *DB) (Source, error)

// Registry maps source plugin ids to constructors.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]SourceConstructor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{constructors: make(map[string]SourceConstructor)}
}

// DefaultRegistry returns a registry with the built-in sources.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(VariableSourceID, NewVariableSource)
	r.Register(UserPictureSourceID, NewUserPictureSource)
	return r
}

// Register binds id to fn.
func (r *Registry) Register(id string, fn SourceConstructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[id] = fn
}

// IDs returns the registered plugin ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.constructors))
	for id := range r.constructors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Source instantiates the source of m.
func (r *Registry) Source(m *Migration, db *DB) (Source, error) {
	r.mu.RLock()
	fn, ok := r.constructors[m.SourcePlugin()]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, m.SourcePlugin())
	}
	return fn(m, db)
}
