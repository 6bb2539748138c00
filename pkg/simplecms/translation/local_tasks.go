// Package translation adds content translation tabs to translatable entity
// types.
package translation

import (
	"sort"

	"github.com/tendant/simple-cms/pkg/simplecms/entity"
	"github.com/tendant/simple-cms/pkg/simplecms/menu"
	"github.com/tendant/simple-cms/pkg/simplecms/plugin"
)

// Link relations an entity type needs for a translation tab.
const (
	OverviewLinkRel  = "drupal:content-translation-overview"
	CanonicalLinkRel = "canonical"
)

// LocalTasksDeriverID is the deriver name used in local task YAML.
const LocalTasksDeriverID = "content_translation.local_tasks"

// TabWeight places the translate tab after the core entity tabs.
const TabWeight = 100

// SupportedEntityTypes returns the translatable types that declare a
// translation overview route, keyed by id.
func SupportedEntityTypes(registry entity.TypeRegistry) map[string]*entity.EntityType {
	supported := make(map[string]*entity.EntityType)
	for id, t := range registry.Definitions() {
		if !t.Translatable {
			continue
		}
		if _, ok := t.LinkTemplate(OverviewLinkRel); ok {
			supported[id] = t
		}
	}
	return supported
}

// LocalTasksDeriver yields one "Translate" tab per supported entity type.
// The derivative id is the overview route name and the tab hangs off the
// type's canonical route.
type LocalTasksDeriver struct {
	registry entity.TypeRegistry
}

// NewLocalTasksDeriver returns a deriver reading types from registry.
func NewLocalTasksDeriver(registry entity.TypeRegistry) *LocalTasksDeriver {
	return &LocalTasksDeriver{registry: registry}
}

// DerivativeDefinition implements plugin.Deriver.
func (d *LocalTasksDeriver) DerivativeDefinition(derivativeID string, base plugin.Definition) (plugin.Definition, bool) {
	def, ok := d.DerivativeDefinitions(base)[derivativeID]
	return def, ok
}

// DerivativeDefinitions implements plugin.Deriver.
func (d *LocalTasksDeriver) DerivativeDefinitions(base plugin.Definition) map[string]plugin.Definition {
	types := SupportedEntityTypes(d.registry)
	ids := make([]string, 0, len(types))
	for id := range types {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	derivatives := make(map[string]plugin.Definition, len(types))
	for _, id := range ids {
		t := types[id]
		overview, _ := t.LinkTemplate(OverviewLinkRel)
		canonical, ok := t.LinkTemplate(CanonicalLinkRel)
		if !ok {
			continue
		}
		derivatives[overview] = menu.LocalTask{
			RouteName: overview,
			BaseRoute: canonical,
			Title:     "Translate",
			Weight:    TabWeight,
		}.Definition().Merge(base)
	}
	return derivatives
}
