// Package migrate reads legacy site data through source plugins and hands
// it out as rows keyed by each source's id fields.
package migrate

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidMigration is returned for migration definitions that cannot run.
var ErrInvalidMigration = errors.New("invalid migration definition")

// HighWaterProperty names the source field tracked between runs.
type HighWaterProperty struct {
	Name  string `yaml:"name" json:"name"`
	Alias string `yaml:"alias,omitempty" json:"alias,omitempty"`
	Field string `yaml:"field,omitempty" json:"field,omitempty"`
}

// Property returns the row property holding the high water value.
func (h *HighWaterProperty) Property() string {
	if h == nil {
		return ""
	}
	if h.Name != "" {
		return h.Name
	}
	return h.Field
}

// Migration is one migration definition.
type Migration struct {
	ID                string             `yaml:"id" json:"id"`
	Label             string             `yaml:"label,omitempty" json:"label,omitempty"`
	Source            map[string]any     `yaml:"source" json:"source"`
	HighWaterProperty *HighWaterProperty `yaml:"highWaterProperty,omitempty" json:"highWaterProperty,omitempty"`
	IDList            []string           `yaml:"idlist,omitempty" json:"idlist,omitempty"`
}

// SourcePlugin returns the source plugin id.
func (m *Migration) SourcePlugin() string {
	p, _ := m.Source["plugin"].(string)
	return p
}

// SourceStrings reads a list-of-strings source option.
func (m *Migration) SourceStrings(key string) []string {
	switch t := m.Source[key].(type) {
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, v := range t {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Validate checks the fields every migration needs.
func (m *Migration) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidMigration)
	}
	if m.SourcePlugin() == "" {
		return fmt.Errorf("%w: %s: source plugin is required", ErrInvalidMigration, m.ID)
	}
	return nil
}

// ParseMigration decodes and validates a YAML migration definition.
func ParseMigration(data []byte) (*Migration, error) {
	var m Migration
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse migration: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadMigrationFile reads a YAML migration definition from path.
func LoadMigrationFile(path string) (*Migration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read migration: %w", err)
	}
	m, err := ParseMigration(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}
