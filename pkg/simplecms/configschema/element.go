package configschema

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Element is one node of a typed configuration tree.
type Element interface {
	// Kind is the resolved base kind of the node's schema.
	Kind() Kind
	// Class names the implementing type, used in diagnostics.
	Class() string
	// Definition is the resolved schema of the node.
	Definition() *DataDefinition
	// Value is the raw data held by the node.
	Value() any
	// Get returns the node at a dotted path below this one. Unknown keys
	// yield an element of kind KindUndefined.
	Get(path string) Element
}

type element struct {
	registry *Registry
	def      *DataDefinition
	value    any
	key      string
	parent   *element
}

func (e *element) Kind() Kind                  { return e.def.Kind }
func (e *element) Class() string               { return e.def.Class }
func (e *element) Definition() *DataDefinition { return e.def }
func (e *element) Value() any                  { return e.value }

func (e *element) Get(path string) Element {
	cur := e
	for _, key := range strings.Split(path, ".") {
		cur = cur.child(key)
	}
	return cur
}

func (e *element) child(key string) *element {
	var def *TypeDefinition
	switch e.def.Kind {
	case KindMapping:
		def = e.def.Mapping.Get(key)
	case KindSequence:
		def = e.def.Sequence
	}

	value, _ := childValue(e.value, key)
	c := &element{
		registry: e.registry,
		value:    value,
		key:      key,
		parent:   e,
	}
	if def == nil {
		c.def = &DataDefinition{Type: "undefined", Kind: KindUndefined, Class: "Undefined"}
		return c
	}
	c.def = e.registry.resolve(def, c.tokens())
	return c
}

func (e *element) tokens() *tokenContext {
	if e == nil {
		return nil
	}
	return &tokenContext{value: e.value, key: e.key, parent: e.parent.tokens()}
}

// tokenContext carries what dynamic type names may refer to: the element's
// own data, its key and its parent.
type tokenContext struct {
	value  any
	key    string
	parent *tokenContext
}

// replaceTokens substitutes "[name]", "[%key]" and "[%parent.name]" parts of a
// dynamic type name. Unresolvable tokens become "*" so that wildcard
// definitions can still match.
func replaceTokens(name string, ctx *tokenContext) string {
	if !strings.Contains(name, "[") {
		return name
	}
	var b strings.Builder
	for {
		start := strings.IndexByte(name, '[')
		if start < 0 {
			b.WriteString(name)
			break
		}
		end := strings.IndexByte(name[start:], ']')
		if end < 0 {
			b.WriteString(name)
			break
		}
		end += start
		b.WriteString(name[:start])
		b.WriteString(resolveToken(name[start+1:end], ctx))
		name = name[end+1:]
	}
	return b.String()
}

func resolveToken(token string, ctx *tokenContext) string {
	cur := ctx
	var value any
	if cur != nil {
		value = cur.value
	}
	parts := strings.Split(token, ".")
	for i, part := range parts {
		if cur == nil {
			return "*"
		}
		switch part {
		case "%parent":
			cur = cur.parent
			if cur == nil {
				return "*"
			}
			value = cur.value
		case "%key":
			if i != len(parts)-1 {
				return "*"
			}
			return cur.key
		default:
			v, ok := childValue(value, part)
			if !ok {
				return "*"
			}
			value = v
		}
	}
	if s, ok := scalarString(value); ok {
		return s
	}
	return "*"
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case nil:
		return "", false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return fmt.Sprint(v), true
	}
	return "", false
}

// childValue returns the value stored under key in a map or slice.
func childValue(container any, key string) (any, bool) {
	switch c := container.(type) {
	case map[string]any:
		v, ok := c[key]
		return v, ok
	case []any:
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 || i >= len(c) {
			return nil, false
		}
		return c[i], true
	case nil:
		return nil, false
	}

	rv := reflect.ValueOf(container)
	switch rv.Kind() {
	case reflect.Map:
		for _, k := range rv.MapKeys() {
			if fmt.Sprint(k.Interface()) == key {
				return rv.MapIndex(k).Interface(), true
			}
		}
	case reflect.Slice, reflect.Array:
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 || i >= rv.Len() {
			return nil, false
		}
		return rv.Index(i).Interface(), true
	}
	return nil, false
}

type entry struct {
	key   string
	value any
}

// children lists the nested entries of a non-scalar value in a stable order:
// sorted keys for maps, index order for slices.
func children(v any) []entry {
	switch c := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(c))
		for k := range c {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]entry, 0, len(keys))
		for _, k := range keys {
			out = append(out, entry{key: k, value: c[k]})
		}
		return out
	case []any:
		out := make([]entry, 0, len(c))
		for i, item := range c {
			out = append(out, entry{key: strconv.Itoa(i), value: item})
		}
		return out
	case nil:
		return nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		out := make([]entry, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			out = append(out, entry{key: fmt.Sprint(k.Interface()), value: rv.MapIndex(k).Interface()})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
		return out
	case reflect.Slice, reflect.Array:
		out := make([]entry, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out = append(out, entry{key: strconv.Itoa(i), value: rv.Index(i).Interface()})
		}
		return out
	}
	return nil
}
