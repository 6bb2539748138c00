// Package block keeps block plugin definitions and serves their categories.
package block

import (
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/tendant/simple-cms/pkg/simplecms/plugin"
	"gopkg.in/yaml.v3"
)

// CategoryKey is the definition Extra key holding a block's category.
const CategoryKey = "category"

// Manager is the block plugin manager.
type Manager struct {
	*plugin.Manager
}

// NewManager returns an empty block manager.
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{Manager: plugin.NewManager("block", plugin.WithLogger(logger))}
}

// Categories returns the distinct categories of every block definition,
// derivatives included, sorted. Blocks without a category are skipped.
func (m *Manager) Categories() []string {
	seen := make(map[string]struct{})
	for _, def := range m.Definitions() {
		if c := def.ExtraString(CategoryKey); c != "" {
			seen[c] = struct{}{}
		}
	}
	categories := make([]string, 0, len(seen))
	for c := range seen {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	return categories
}

type blockDefinition struct {
	Label    string `yaml:"admin_label"`
	Category string `yaml:"category"`
	Provider string `yaml:"provider"`
	Class    string `yaml:"class"`
}

// LoadYAML registers the blocks of a YAML document keyed by plugin id.
func (m *Manager) LoadYAML(data []byte) error {
	var doc map[string]blockDefinition
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse block definitions: %w", err)
	}
	ids := make([]string, 0, len(doc))
	for id := range doc {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		b := doc[id]
		def := plugin.Definition{ID: id, Label: b.Label, Class: b.Class, Provider: b.Provider}
		if b.Category != "" {
			def.Extra = map[string]any{CategoryKey: b.Category}
		}
		m.Register(def, nil)
	}
	return nil
}

// LoadFile reads block definitions from a YAML file.
func (m *Manager) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read block definitions: %w", err)
	}
	return m.LoadYAML(data)
}
