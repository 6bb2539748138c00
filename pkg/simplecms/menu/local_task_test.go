package menu

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-cms/pkg/simplecms/plugin"
)

const nodeTasks = `
entity.node.canonical:
  route_name: entity.node.canonical
  base_route: entity.node.canonical
  title: View
entity.node.edit_form:
  route_name: entity.node.edit_form
  base_route: entity.node.canonical
  title: Edit
entity.node.delete_form:
  route_name: entity.node.delete_form
  base_route: entity.node.canonical
  title: Delete
  weight: 10
entity.node.version_history:
  route_name: entity.node.version_history
  base_route: entity.node.canonical
  title: Revisions
  weight: 20
system.admin_content:
  route_name: system.admin_content
  base_route: system.admin_content
  title: Content
`

func TestTasksForRoute(t *testing.T) {
	m := NewLocalTaskManager(nil, nil)
	require.NoError(t, m.LoadYAML([]byte(nodeTasks)))

	want := []string{
		"entity.node.canonical",
		"entity.node.edit_form",
		"entity.node.delete_form",
		"entity.node.version_history",
	}
	assert.Equal(t, want, m.TasksForRoute("entity.node.canonical"))
	assert.Equal(t, want, m.TasksForRoute("entity.node.version_history"))
	assert.Equal(t, []string{"system.admin_content"}, m.TasksForRoute("system.admin_content"))
	assert.Nil(t, m.TasksForRoute("user.login"))
}

type staticDeriver map[string]plugin.Definition

func (d staticDeriver) DerivativeDefinition(id string, base plugin.Definition) (plugin.Definition, bool) {
	def, ok := d[id]
	return def.Merge(base), ok
}

func (d staticDeriver) DerivativeDefinitions(base plugin.Definition) map[string]plugin.Definition {
	out := make(map[string]plugin.Definition, len(d))
	for id, def := range d {
		out[id] = def.Merge(base)
	}
	return out
}

func TestLoadYAML_Deriver(t *testing.T) {
	deriver := staticDeriver{
		"extra": LocalTask{RouteName: "entity.node.extra", BaseRoute: "entity.node.canonical", Title: "Extra", Weight: 5}.Definition(),
	}
	m := NewLocalTaskManager(nil, map[string]plugin.Deriver{"test.extra": deriver})
	require.NoError(t, m.LoadYAML([]byte(nodeTasks+`
test.tasks:
  deriver: test.extra
`)))

	assert.Equal(t, []string{
		"entity.node.canonical",
		"entity.node.edit_form",
		"test.tasks:extra",
		"entity.node.delete_form",
		"entity.node.version_history",
	}, m.TasksForRoute("entity.node.extra"))
	_, hasBase := m.Tasks()["test.tasks"]
	assert.False(t, hasBase)
}

func TestLoadYAML_UnknownDeriver(t *testing.T) {
	m := NewLocalTaskManager(nil, nil)
	err := m.LoadYAML([]byte("x.tasks:\n  deriver: missing\n"))
	assert.ErrorContains(t, err, "unknown deriver")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.links.task.yml")
	require.NoError(t, os.WriteFile(path, []byte(nodeTasks), 0o644))

	m := NewLocalTaskManager(nil, nil)
	require.NoError(t, m.LoadFile(path))
	assert.Equal(t, "Revisions", m.Tasks()["entity.node.version_history"].Title)
	assert.Error(t, m.LoadFile(filepath.Join(t.TempDir(), "missing.yml")))
}
