package configschema

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// maxTypeDepth bounds "type:" inheritance chains so a cycle cannot loop.
const maxTypeDepth = 32

// Registry holds named schema type definitions and builds typed element
// trees from configuration data.
type Registry struct {
	mu          sync.RWMutex
	definitions map[string]*TypeDefinition
	logger      *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used for schema loading diagnostics.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry returns a registry preloaded with the built-in types.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		definitions: builtinTypes(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add registers or replaces a named type.
func (r *Registry) Add(name string, def *TypeDefinition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.definitions[name] = def
}

// LoadYAML registers every top-level entry of a schema document.
func (r *Registry) LoadYAML(data []byte) error {
	var doc map[string]*TypeDefinition
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse schema: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, def := range doc {
		if def == nil {
			continue
		}
		r.definitions[name] = def
	}
	return nil
}

// LoadFile registers the types of one schema file.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read schema file: %w", err)
	}
	if err := r.LoadYAML(data); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// LoadDir registers every *.schema.yml file found under dir.
func (r *Registry) LoadDir(dir string) error {
	return r.LoadFS(os.DirFS(dir))
}

// LoadFS registers every *.schema.yml file found in fsys, in lexical order.
func (r *Registry) LoadFS(fsys fs.FS) error {
	var files []string
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".schema.yml") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan schema directory: %w", err)
	}
	sort.Strings(files)
	for _, f := range files {
		data, err := fs.ReadFile(fsys, f)
		if err != nil {
			return fmt.Errorf("read schema file: %w", err)
		}
		if err := r.LoadYAML(data); err != nil {
			return fmt.Errorf("%s: %w", f, err)
		}
		r.logger.Debug("Loaded config schema", "file", f)
	}
	return nil
}

// Names returns all registered type names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.definitions))
	for name := range r.definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasSchema reports whether name is covered by a registered type, either
// directly or through a wildcard fallback. Only the declared type is
// inspected; dynamic parents are resolved against data at check time.
func (r *Registry) HasSchema(name string) bool {
	def, _ := r.lookup(name)
	if def == nil {
		return false
	}
	if def.Type == "" {
		return def.kind != KindUndefined
	}
	return def.Type != "undefined"
}

// Definition returns the type registered for name, following wildcard
// fallbacks. Unknown names yield the "undefined" type.
func (r *Registry) Definition(name string) *TypeDefinition {
	def, resolved := r.lookup(name)
	if def == nil {
		return &TypeDefinition{Type: "undefined"}
	}
	// Point at the registered name so dynamic parents resolve consistently.
	return &TypeDefinition{Type: resolved, Label: def.Label}
}

// BuildDataDefinition flattens def's inheritance chain against data.
func (r *Registry) BuildDataDefinition(def *TypeDefinition, data any) *DataDefinition {
	return r.resolve(def, &tokenContext{value: data})
}

// Create instantiates the typed element tree for data.
func (r *Registry) Create(def *DataDefinition, data any) Element {
	return &element{
		registry: r,
		def:      def,
		value:    data,
	}
}

// lookup finds a definition by exact name, then by replacing trailing
// name parts with wildcards, most specific first.
func (r *Registry) lookup(name string) (*TypeDefinition, string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if def, ok := r.definitions[name]; ok {
		return def, name
	}
	parts := strings.Split(name, ".")
	for i := len(parts) - 1; i > 0; i-- {
		candidate := strings.Join(parts[:i], ".") + strings.Repeat(".*", len(parts)-i)
		if def, ok := r.definitions[candidate]; ok {
			return def, candidate
		}
	}
	for i := len(parts) - 1; i > 0; i-- {
		candidate := strings.Join(parts[:i], ".") + ".*"
		if def, ok := r.definitions[candidate]; ok {
			return def, candidate
		}
	}
	return nil, ""
}

func (r *Registry) resolve(def *TypeDefinition, ctx *tokenContext) *DataDefinition {
	out := &DataDefinition{Kind: KindUndefined, Class: "Undefined"}
	if def == nil {
		out.Type = "undefined"
		return out
	}

	merged := def.clone()
	kind := def.kind
	typeName := def.Type
	out.Type = typeName

	for depth := 0; kind == "" && depth < maxTypeDepth; depth++ {
		if typeName == "" {
			switch {
			case merged.Mapping != nil:
				kind, merged.Class = KindMapping, firstNonEmpty(merged.Class, "Mapping")
			case merged.Sequence != nil:
				kind, merged.Class = KindSequence, firstNonEmpty(merged.Class, "Sequence")
			default:
				kind = KindUndefined
			}
			break
		}

		name := replaceTokens(typeName, ctx)
		parent, resolved := r.lookup(name)
		if parent == nil {
			r.logger.Debug("Unresolved schema type", "type", name)
			kind = KindUndefined
			merged.Class = "Undefined"
			break
		}
		if depth == 0 {
			out.Type = resolved
		}
		merged.Label = firstNonEmpty(merged.Label, parent.Label)
		merged.Class = firstNonEmpty(merged.Class, parent.Class)
		if merged.Mapping != nil || parent.Mapping != nil {
			merged.Mapping = merged.Mapping.mergeParent(parent.Mapping)
		}
		if merged.Sequence == nil {
			merged.Sequence = parent.Sequence
		}
		kind = parent.kind
		typeName = parent.Type
	}
	if kind == "" {
		kind = KindUndefined
	}

	out.Kind = kind
	out.Label = merged.Label
	out.Class = firstNonEmpty(merged.Class, "Undefined")
	if kind == KindMapping {
		out.Mapping = merged.Mapping
		if out.Mapping == nil {
			out.Mapping = NewMapping()
		}
	}
	if kind == KindSequence {
		out.Sequence = merged.Sequence
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
