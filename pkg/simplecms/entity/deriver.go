package entity

import (
	"sort"
	"sync"

	"github.com/tendant/simple-cms/pkg/simplecms/plugin"
)

// Deriver provides one data type plugin per entity type and per non-default
// bundle, keyed "<type>" and "<type>:<bundle>". The empty key keeps the base
// definition unchanged.
type Deriver struct {
	mu           sync.Mutex
	basePluginID string
	registry     TypeRegistry
	derivatives  map[string]plugin.Definition
}

// NewDeriver returns a deriver reading entity types from registry.
func NewDeriver(basePluginID string, registry TypeRegistry) *Deriver {
	return &Deriver{
		basePluginID: basePluginID,
		registry:     registry,
	}
}

// BasePluginID returns the plugin id the derivatives belong to.
func (d *Deriver) BasePluginID() string {
	return d.basePluginID
}

// DerivativeDefinition returns one derivative. The full set is recomputed
// only when nothing is cached or the id is missing from the cache.
func (d *Deriver) DerivativeDefinition(derivativeID string, base plugin.Definition) (plugin.Definition, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.derivatives) > 0 {
		if def, ok := d.derivatives[derivativeID]; ok {
			return def.Clone(), true
		}
	}
	d.compute(base)
	def, ok := d.derivatives[derivativeID]
	if !ok {
		return plugin.Definition{}, false
	}
	return def.Clone(), true
}

// DerivativeDefinitions returns all derivatives, computing them on first use.
func (d *Deriver) DerivativeDefinitions(base plugin.Definition) map[string]plugin.Definition {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.derivatives) == 0 {
		d.compute(base)
	}
	out := make(map[string]plugin.Definition, len(d.derivatives))
	for id, def := range d.derivatives {
		out[id] = def.Clone()
	}
	return out
}

// Reset drops cached derivatives so the next call re-reads the registry.
func (d *Deriver) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.derivatives = nil
}

func (d *Deriver) compute(base plugin.Definition) {
	derivatives := map[string]plugin.Definition{
		"": base.Clone(),
	}

	types := d.registry.Definitions()
	ids := make([]string, 0, len(types))
	for id := range types {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, typeID := range ids {
		t := types[typeID]
		derivatives[typeID] = plugin.Definition{
			Label:       t.Label,
			Class:       t.Class,
			Constraints: map[string]string{"EntityType": typeID},
		}.Merge(base)

		for bundle, info := range d.registry.Bundles(typeID) {
			if bundle == typeID {
				continue
			}
			derivatives[typeID+plugin.DerivativeSeparator+bundle] = plugin.Definition{
				Label: info.Label,
				Class: t.Class,
				Constraints: map[string]string{
					"EntityType": typeID,
					"Bundle":     bundle,
				},
			}.Merge(base)
		}
	}
	d.derivatives = derivatives
}
