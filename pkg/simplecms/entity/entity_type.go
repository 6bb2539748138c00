package entity

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrEntityTypeNotFound indicates an unknown entity type id.
var ErrEntityTypeNotFound = errors.New("entity type not found")

// EntityType is the metadata of one entity type.
type EntityType struct {
	ID              string            `yaml:"id" json:"id"`
	Label           string            `yaml:"label" json:"label"`
	Class           string            `yaml:"class" json:"class"`
	Group           string            `yaml:"group" json:"group,omitempty"`
	BaseTable       string            `yaml:"base_table" json:"base_table,omitempty"`
	DataTable       string            `yaml:"data_table" json:"data_table,omitempty"`
	ConfigPrefix    string            `yaml:"config_prefix" json:"config_prefix,omitempty"`
	Translatable    bool              `yaml:"translatable" json:"translatable"`
	Fieldable       bool              `yaml:"fieldable" json:"fieldable"`
	AdminPermission string            `yaml:"admin_permission" json:"admin_permission,omitempty"`
	Keys            map[string]string `yaml:"entity_keys" json:"entity_keys,omitempty"`
	Links           map[string]string `yaml:"links" json:"links,omitempty"`
	Handlers        map[string]any    `yaml:"handlers" json:"handlers,omitempty"`
}

// Key returns the field name behind an entity key ("id", "bundle", ...).
func (t *EntityType) Key(name string) string {
	return t.Keys[name]
}

// HasKey reports whether the entity key is defined.
func (t *EntityType) HasKey(name string) bool {
	return t.Keys[name] != ""
}

// LinkTemplate returns the route name registered for a link relation.
func (t *EntityType) LinkTemplate(rel string) (string, bool) {
	route, ok := t.Links[rel]
	return route, ok && route != ""
}

// Handler returns a handler class. Nested handler groups such as "form"
// are addressed as Handler("form", "delete").
func (t *EntityType) Handler(path ...string) string {
	var cur any = t.Handlers
	for _, p := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur = m[p]
	}
	s, _ := cur.(string)
	return s
}

// BundleInfo describes one bundle of an entity type.
type BundleInfo struct {
	Label        string `yaml:"label" json:"label"`
	Translatable bool   `yaml:"translatable" json:"translatable"`
}

// TypeRegistry exposes entity type metadata and bundle listings.
type TypeRegistry interface {
	// Definitions returns every entity type keyed by id.
	Definitions() map[string]*EntityType
	// Bundles lists the bundles of an entity type. Types without registered
	// bundles have a single bundle named after the type.
	Bundles(entityTypeID string) map[string]BundleInfo
}

// MemoryRegistry is an in-memory TypeRegistry.
type MemoryRegistry struct {
	mu      sync.RWMutex
	types   map[string]*EntityType
	bundles map[string]map[string]BundleInfo
}

// NewMemoryRegistry returns an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		types:   make(map[string]*EntityType),
		bundles: make(map[string]map[string]BundleInfo),
	}
}

// RegisterType adds or replaces an entity type.
func (r *MemoryRegistry) RegisterType(t *EntityType) error {
	if t == nil || t.ID == "" {
		return errors.New("entity type id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	typeCopy := *t
	r.types[t.ID] = &typeCopy
	return nil
}

// RegisterBundle adds a bundle to a registered entity type.
func (r *MemoryRegistry) RegisterBundle(entityTypeID, bundle string, info BundleInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.types[entityTypeID]; !ok {
		return fmt.Errorf("register bundle %q: %w: %s", bundle, ErrEntityTypeNotFound, entityTypeID)
	}
	if r.bundles[entityTypeID] == nil {
		r.bundles[entityTypeID] = make(map[string]BundleInfo)
	}
	r.bundles[entityTypeID][bundle] = info
	return nil
}

// Definition returns one entity type.
func (r *MemoryRegistry) Definition(id string) (*EntityType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntityTypeNotFound, id)
	}
	typeCopy := *t
	return &typeCopy, nil
}

// Definitions returns copies of all entity types.
func (r *MemoryRegistry) Definitions() map[string]*EntityType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*EntityType, len(r.types))
	for id, t := range r.types {
		typeCopy := *t
		out[id] = &typeCopy
	}
	return out
}

// Bundles implements TypeRegistry.
func (r *MemoryRegistry) Bundles(entityTypeID string) map[string]BundleInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]BundleInfo)
	if b := r.bundles[entityTypeID]; len(b) > 0 {
		for name, info := range b {
			out[name] = info
		}
		return out
	}
	if t, ok := r.types[entityTypeID]; ok {
		out[entityTypeID] = BundleInfo{Label: t.Label}
	}
	return out
}

// IDs returns the registered entity type ids, sorted.
func (r *MemoryRegistry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.types))
	for id := range r.types {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type registryDocument struct {
	EntityTypes []*EntityType                    `yaml:"entity_types"`
	Bundles     map[string]map[string]BundleInfo `yaml:"bundles"`
}

// LoadYAML registers the entity types and bundles of a document shaped as
//
//	entity_types:
//	  - id: node
//	    label: Content
//	bundles:
//	  node:
//	    article: {label: Article}
func (r *MemoryRegistry) LoadYAML(data []byte) error {
	var doc registryDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse entity types: %w", err)
	}
	for _, t := range doc.EntityTypes {
		if err := r.RegisterType(t); err != nil {
			return err
		}
	}
	for typeID, bundles := range doc.Bundles {
		for bundle, info := range bundles {
			if err := r.RegisterBundle(typeID, bundle, info); err != nil {
				return err
			}
		}
	}
	return nil
}

// LoadFile registers the entity types of a YAML file.
func (r *MemoryRegistry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read entity types: %w", err)
	}
	return r.LoadYAML(data)
}
