package configschema

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Kind is the base data kind a schema type resolves to.
type Kind string

const (
	KindUndefined Kind = "undefined"
	KindIgnore    Kind = "ignore"
	KindBoolean   Kind = "boolean"
	KindInteger   Kind = "integer"
	KindFloat     Kind = "float"
	KindString    Kind = "string"
	KindMapping   Kind = "mapping"
	KindSequence  Kind = "sequence"
)

// IsPrimitive reports whether values of this kind are scalars.
func (k Kind) IsPrimitive() bool {
	switch k {
	case KindBoolean, KindInteger, KindFloat, KindString:
		return true
	}
	return false
}

// IsArray reports whether the kind holds nested keys (mapping or sequence).
func (k Kind) IsArray() bool {
	return k == KindMapping || k == KindSequence
}

// TypeDefinition is one entry of a schema document. It either names a parent
// type through Type or, for built-in types, carries a base kind directly.
type TypeDefinition struct {
	Type     string
	Label    string
	Class    string
	Mapping  *Mapping
	Sequence *TypeDefinition

	kind Kind
}

// UnmarshalYAML accepts both the keyed and the legacy list form of
// "sequence".
func (d *TypeDefinition) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Type     string    `yaml:"type"`
		Label    string    `yaml:"label"`
		Class    string    `yaml:"class"`
		Mapping  *Mapping  `yaml:"mapping"`
		Sequence yaml.Node `yaml:"sequence"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	d.Type = raw.Type
	d.Label = raw.Label
	d.Class = raw.Class
	d.Mapping = raw.Mapping

	if raw.Sequence.Kind == 0 {
		return nil
	}
	node := &raw.Sequence
	if node.Kind == yaml.SequenceNode {
		if len(node.Content) == 0 {
			return errors.New("sequence definition is empty")
		}
		node = node.Content[0]
	}
	var item TypeDefinition
	if err := node.Decode(&item); err != nil {
		return fmt.Errorf("sequence item: %w", err)
	}
	d.Sequence = &item
	return nil
}

func (d *TypeDefinition) clone() *TypeDefinition {
	if d == nil {
		return nil
	}
	c := *d
	if d.Mapping != nil {
		c.Mapping = d.Mapping.clone()
	}
	return &c
}

// Mapping is an ordered set of keyed type definitions.
type Mapping struct {
	keys  []string
	items map[string]*TypeDefinition
}

// NewMapping returns an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{items: make(map[string]*TypeDefinition)}
}

// Set adds or replaces key, keeping the first insertion position.
func (m *Mapping) Set(key string, def *TypeDefinition) *Mapping {
	if _, ok := m.items[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.items[key] = def
	return m
}

// Get returns the definition for key, or nil.
func (m *Mapping) Get(key string) *TypeDefinition {
	if m == nil {
		return nil
	}
	return m.items[key]
}

// Keys returns the keys in declaration order.
func (m *Mapping) Keys() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.keys...)
}

// Len returns the number of keys.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

func (m *Mapping) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: mapping must be a YAML map", value.Line)
	}
	m.items = make(map[string]*TypeDefinition, len(value.Content)/2)
	m.keys = nil
	for i := 0; i+1 < len(value.Content); i += 2 {
		key := value.Content[i].Value
		var def TypeDefinition
		if err := value.Content[i+1].Decode(&def); err != nil {
			return fmt.Errorf("mapping key %q: %w", key, err)
		}
		m.Set(key, &def)
	}
	return nil
}

func (m *Mapping) clone() *Mapping {
	c := NewMapping()
	for _, k := range m.keys {
		c.Set(k, m.items[k])
	}
	return c
}

// mergeParent adds the parent's keys that the mapping does not override.
func (m *Mapping) mergeParent(parent *Mapping) *Mapping {
	if parent == nil {
		return m
	}
	merged := NewMapping()
	for _, k := range parent.keys {
		merged.Set(k, parent.items[k])
	}
	if m != nil {
		for _, k := range m.keys {
			merged.Set(k, m.items[k])
		}
	}
	return merged
}

// DataDefinition is a fully resolved type: inheritance flattened and
// dynamic type names replaced for one piece of data.
type DataDefinition struct {
	// Type is the resolved name this definition was built from.
	Type     string
	Label    string
	Class    string
	Kind     Kind
	Mapping  *Mapping
	Sequence *TypeDefinition
}

func builtin(kind Kind, class, label string) *TypeDefinition {
	return &TypeDefinition{kind: kind, Class: class, Label: label}
}

// builtinTypes are always registered. Names mirror the common schema
// vocabulary of config documents.
func builtinTypes() map[string]*TypeDefinition {
	configObject := NewMapping().
		Set("langcode", &TypeDefinition{Type: "string", Label: "Language code"})
	configEntity := NewMapping().
		Set("uuid", &TypeDefinition{Type: "string", Label: "UUID"}).
		Set("langcode", &TypeDefinition{Type: "string", Label: "Language code"}).
		Set("status", &TypeDefinition{Type: "boolean", Label: "Status"}).
		Set("dependencies", &TypeDefinition{Type: "ignore", Label: "Dependencies"}).
		Set("id", &TypeDefinition{Type: "string", Label: "ID"}).
		Set("label", &TypeDefinition{Type: "label", Label: "Label"})

	return map[string]*TypeDefinition{
		"undefined":     builtin(KindUndefined, "Undefined", "Undefined"),
		"ignore":        builtin(KindIgnore, "Ignore", "Ignore"),
		"boolean":       builtin(KindBoolean, "BooleanData", "Boolean"),
		"integer":       builtin(KindInteger, "IntegerData", "Integer"),
		"float":         builtin(KindFloat, "FloatData", "Float"),
		"string":        builtin(KindString, "StringData", "String"),
		"uri":           builtin(KindString, "Uri", "URI"),
		"email":         builtin(KindString, "Email", "Email"),
		"mapping":       builtin(KindMapping, "Mapping", "Mapping"),
		"sequence":      builtin(KindSequence, "Sequence", "Sequence"),
		"label":         {Type: "string", Label: "Label"},
		"text":          {Type: "string", Label: "Text"},
		"path":          {Type: "string", Label: "Path"},
		"date_format":   {Type: "string", Label: "Date format"},
		"color_hex":     {Type: "string", Label: "Color"},
		"config_object": {Type: "mapping", Mapping: configObject},
		"config_entity": {Type: "mapping", Mapping: configEntity},
	}
}
