package plugin

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Manager keeps base plugin definitions and expands them through their
// derivers. Expanded definitions are cached until ClearCachedDefinitions.
type Manager struct {
	mu       sync.Mutex
	name     string
	order    []string
	bases    map[string]Definition
	derivers map[string]Deriver
	cache    map[string]Definition
	logger   *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager returns an empty manager for the named plugin type.
func NewManager(name string, opts ...Option) *Manager {
	m := &Manager{
		name:     name,
		bases:    make(map[string]Definition),
		derivers: make(map[string]Deriver),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register adds a base definition. deriver may be nil.
func (m *Manager) Register(def Definition, deriver Deriver) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.bases[def.ID]; !exists {
		m.order = append(m.order, def.ID)
	}
	m.bases[def.ID] = def
	if deriver != nil {
		m.derivers[def.ID] = deriver
	} else {
		delete(m.derivers, def.ID)
	}
	m.cache = nil
}

// Definitions returns every definition, derivatives expanded.
func (m *Manager) Definitions() map[string]Definition {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.build()
	out := make(map[string]Definition, len(m.cache))
	for id, def := range m.cache {
		out[id] = def.Clone()
	}
	return out
}

// IDs returns every plugin id, sorted.
func (m *Manager) IDs() []string {
	defs := m.Definitions()
	ids := make([]string, 0, len(defs))
	for id := range defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Definition returns one definition. Derivatives are resolved through the
// deriver without a full expansion when nothing is cached yet.
func (m *Manager) Definition(id string) (Definition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cache != nil {
		if def, ok := m.cache[id]; ok {
			return def.Clone(), nil
		}
		return Definition{}, fmt.Errorf("%s plugin %q: %w", m.name, id, ErrPluginNotFound)
	}

	baseID, derivativeID := SplitID(id)
	base, ok := m.bases[baseID]
	if !ok {
		return Definition{}, fmt.Errorf("%s plugin %q: %w", m.name, id, ErrPluginNotFound)
	}
	deriver := m.derivers[baseID]
	if deriver == nil {
		if derivativeID != "" {
			return Definition{}, fmt.Errorf("%s plugin %q: %w", m.name, id, ErrPluginNotFound)
		}
		return base.Clone(), nil
	}
	def, ok := deriver.DerivativeDefinition(derivativeID, base)
	if !ok {
		return Definition{}, fmt.Errorf("%s plugin %q: %w", m.name, id, ErrPluginNotFound)
	}
	def.ID = id
	return def, nil
}

// HasDefinition reports whether id resolves to a definition.
func (m *Manager) HasDefinition(id string) bool {
	_, err := m.Definition(id)
	return err == nil
}

// ClearCachedDefinitions drops expanded definitions.
func (m *Manager) ClearCachedDefinitions() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache = nil
}

func (m *Manager) build() {
	if m.cache != nil {
		return
	}
	cache := make(map[string]Definition)
	for _, baseID := range m.order {
		base := m.bases[baseID]
		deriver, ok := m.derivers[baseID]
		if !ok {
			cache[baseID] = base.Clone()
			continue
		}
		derivatives := deriver.DerivativeDefinitions(base)
		for derivativeID, def := range derivatives {
			id := DerivativeID(baseID, derivativeID)
			def.ID = id
			cache[id] = def
		}
		m.logger.Debug("Expanded plugin derivatives", "plugin_type", m.name, "base_id", baseID, "count", len(derivatives))
	}
	m.cache = cache
}
