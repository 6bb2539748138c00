package migrate

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// IDField declares one id field of a source and its type.
type IDField struct {
	Name string
	Type string
}

// Source yields rows from a legacy data store.
type Source interface {
	// Fields describes the available source properties.
	Fields() map[string]string
	// IDs lists the properties that identify a row.
	IDs() []IDField
	Rows(ctx context.Context) ([]*Row, error)
	Count(ctx context.Context) (int, error)
}

// Provider is implemented by sources that need a module to be enabled.
type Provider interface {
	Provider() string
}

// Row is one source record plus its id values.
type Row struct {
	source map[string]any
	ids    map[string]any
}

// NewRow builds a row, taking the id values from values.
func NewRow(values map[string]any, ids []IDField) *Row {
	r := &Row{source: values, ids: make(map[string]any, len(ids))}
	for _, id := range ids {
		r.ids[id.Name] = values[id.Name]
	}
	return r
}

// Source returns the source properties.
func (r *Row) Source() map[string]any { return r.source }

// IDs returns the id values.
func (r *Row) IDs() map[string]any { return r.ids }

// Get returns one source property.
func (r *Row) Get(key string) (any, bool) {
	v, ok := r.source[key]
	return v, ok
}

// IDKey is a stable string form of the id values, e.g. "uid=1".
func (r *Row) IDKey() string {
	keys := make([]string, 0, len(r.ids))
	for k := range r.ids {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, r.ids[k]))
	}
	return strings.Join(parts, ",")
}

// ModuleHandler answers whether a module is enabled.
type ModuleHandler interface {
	ModuleExists(name string) bool
}

// StaticModules is a fixed list of enabled modules.
type StaticModules []string

// ModuleExists implements ModuleHandler.
func (m StaticModules) ModuleExists(name string) bool {
	for _, n := range m {
		if n == name {
			return true
		}
	}
	return false
}
