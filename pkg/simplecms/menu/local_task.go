// Package menu manages local tasks, the tabs shown on entity and admin pages.
package menu

import (
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/tendant/simple-cms/pkg/simplecms/plugin"
	"gopkg.in/yaml.v3"
)

// Extra keys of a local task plugin definition.
const (
	KeyRouteName = "route_name"
	KeyBaseRoute = "base_route"
	KeyWeight    = "weight"
)

// LocalTask is one tab.
type LocalTask struct {
	ID        string `yaml:"-"`
	RouteName string `yaml:"route_name"`
	BaseRoute string `yaml:"base_route"`
	Title     string `yaml:"title"`
	Weight    int    `yaml:"weight"`
	// Deriver names a registered deriver, like "content_translation.local_tasks".
	Deriver string `yaml:"deriver,omitempty"`
}

// Definition converts the task to a plugin definition.
func (t LocalTask) Definition() plugin.Definition {
	return plugin.Definition{
		ID:    t.ID,
		Label: t.Title,
		Extra: map[string]any{
			KeyRouteName: t.RouteName,
			KeyBaseRoute: t.BaseRoute,
			KeyWeight:    t.Weight,
		},
	}
}

// LocalTaskFromDefinition is the inverse of LocalTask.Definition.
func LocalTaskFromDefinition(def plugin.Definition) LocalTask {
	weight, _ := def.Extra[KeyWeight].(int)
	return LocalTask{
		ID:        def.ID,
		RouteName: def.ExtraString(KeyRouteName),
		BaseRoute: def.ExtraString(KeyBaseRoute),
		Title:     def.Label,
		Weight:    weight,
	}
}

// LocalTaskManager keeps local task definitions, derivatives included.
type LocalTaskManager struct {
	plugins  *plugin.Manager
	derivers map[string]plugin.Deriver
}

// NewLocalTaskManager returns an empty manager. derivers maps the names
// used in task YAML to deriver implementations.
func NewLocalTaskManager(logger *slog.Logger, derivers map[string]plugin.Deriver) *LocalTaskManager {
	return &LocalTaskManager{
		plugins:  plugin.NewManager("local_task", plugin.WithLogger(logger)),
		derivers: derivers,
	}
}

// Register adds a task. deriver may be nil.
func (m *LocalTaskManager) Register(task LocalTask, deriver plugin.Deriver) {
	m.plugins.Register(task.Definition(), deriver)
}

// LoadYAML registers the tasks of a links.task.yml document, keyed by
// task id.
func (m *LocalTaskManager) LoadYAML(data []byte) error {
	var doc map[string]LocalTask
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse local tasks: %w", err)
	}
	ids := make([]string, 0, len(doc))
	for id := range doc {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		task := doc[id]
		task.ID = id
		var deriver plugin.Deriver
		if task.Deriver != "" {
			d, ok := m.derivers[task.Deriver]
			if !ok {
				return fmt.Errorf("local task %s: unknown deriver %q", id, task.Deriver)
			}
			deriver = d
		}
		m.Register(task, deriver)
	}
	return nil
}

// LoadFile reads tasks from a YAML file.
func (m *LocalTaskManager) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read local tasks: %w", err)
	}
	return m.LoadYAML(data)
}

// Tasks returns every task keyed by id.
func (m *LocalTaskManager) Tasks() map[string]LocalTask {
	defs := m.plugins.Definitions()
	tasks := make(map[string]LocalTask, len(defs))
	for id, def := range defs {
		tasks[id] = LocalTaskFromDefinition(def)
	}
	return tasks
}

// TasksForRoute returns the ids of the tabs shown on route: every task
// sharing the base route of the task that owns route, sorted by weight
// then id. A route no task owns has no tabs.
func (m *LocalTaskManager) TasksForRoute(route string) []string {
	tasks := m.Tasks()

	baseRoute := ""
	for _, t := range tasks {
		if t.RouteName == route {
			baseRoute = t.BaseRoute
			break
		}
	}
	if baseRoute == "" {
		return nil
	}

	var matched []LocalTask
	for _, t := range tasks {
		if t.BaseRoute == baseRoute {
			matched = append(matched, t)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Weight != matched[j].Weight {
			return matched[i].Weight < matched[j].Weight
		}
		return matched[i].ID < matched[j].ID
	})
	ids := make([]string, len(matched))
	for i, t := range matched {
		ids[i] = t.ID
	}
	return ids
}

// ClearCachedDefinitions drops expanded derivatives, e.g. after entity
// types change.
func (m *LocalTaskManager) ClearCachedDefinitions() {
	m.plugins.ClearCachedDefinitions()
}
