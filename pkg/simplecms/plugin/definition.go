package plugin

import (
	"errors"
	"maps"
	"strings"
)

// ErrPluginNotFound indicates no definition exists for a plugin id.
var ErrPluginNotFound = errors.New("plugin not found")

// DerivativeSeparator joins a base plugin id and a derivative id.
const DerivativeSeparator = ":"

// Definition describes one plugin.
type Definition struct {
	ID          string
	Label       string
	Class       string
	Provider    string
	Constraints map[string]string
	// Extra holds plugin-type specific keys such as a block category.
	Extra map[string]any
}

// Clone returns a deep copy of the definition's maps.
func (d Definition) Clone() Definition {
	c := d
	c.Constraints = maps.Clone(d.Constraints)
	c.Extra = maps.Clone(d.Extra)
	return c
}

// Merge fills the fields d leaves empty from base. A non-nil constraint set
// on d replaces base's set as a whole; Extra keys are merged with d winning.
func (d Definition) Merge(base Definition) Definition {
	out := d.Clone()
	if out.ID == "" {
		out.ID = base.ID
	}
	if out.Label == "" {
		out.Label = base.Label
	}
	if out.Class == "" {
		out.Class = base.Class
	}
	if out.Provider == "" {
		out.Provider = base.Provider
	}
	if out.Constraints == nil {
		out.Constraints = maps.Clone(base.Constraints)
	}
	if len(base.Extra) > 0 {
		extra := maps.Clone(base.Extra)
		maps.Copy(extra, out.Extra)
		out.Extra = extra
	}
	return out
}

// ExtraString returns Extra[key] when it holds a string.
func (d Definition) ExtraString(key string) string {
	s, _ := d.Extra[key].(string)
	return s
}

// DerivativeID joins a base id and a derivative id. An empty derivative id
// stands for the base plugin itself.
func DerivativeID(baseID, derivativeID string) string {
	if derivativeID == "" {
		return baseID
	}
	return baseID + DerivativeSeparator + derivativeID
}

// SplitID separates a plugin id into its base and derivative parts.
func SplitID(id string) (baseID, derivativeID string) {
	baseID, derivativeID, _ = strings.Cut(id, DerivativeSeparator)
	return baseID, derivativeID
}

// Deriver expands one base definition into derivative definitions.
type Deriver interface {
	// DerivativeDefinition returns a single derivative.
	DerivativeDefinition(derivativeID string, base Definition) (Definition, bool)
	// DerivativeDefinitions returns every derivative keyed by derivative id.
	DerivativeDefinitions(base Definition) map[string]Definition
}
