// Package file stores config objects as YAML files, one "<name>.yml" per
// object, in a sync directory.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tendant/simple-cms/pkg/simplecms/configstore"
	"gopkg.in/yaml.v3"
)

const extension = ".yml"

// Storage is a directory-backed configstore.Storage.
type Storage struct {
	dir string
}

// New creates dir if needed.
func New(dir string) (*Storage, error) {
	if dir == "" {
		return nil, errors.New("config directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	return &Storage{dir: dir}, nil
}

func (s *Storage) path(name string) string {
	return filepath.Join(s.dir, name+extension)
}

func (s *Storage) Read(ctx context.Context, name string) (map[string]any, error) {
	if err := configstore.ValidateName(name); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(s.path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, configstore.ErrNotFound
		}
		return nil, fmt.Errorf("read config %s: %w", name, err)
	}
	data := map[string]any{}
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", name, err)
	}
	return data, nil
}

func (s *Storage) ReadMultiple(ctx context.Context, names []string) (map[string]map[string]any, error) {
	out := make(map[string]map[string]any, len(names))
	for _, name := range names {
		data, err := s.Read(ctx, name)
		if errors.Is(err, configstore.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[name] = data
	}
	return out, nil
}

func (s *Storage) Write(ctx context.Context, name string, data map[string]any) error {
	if err := configstore.ValidateName(name); err != nil {
		return err
	}
	raw, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode config %s: %w", name, err)
	}
	tmp := s.path(name) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", name, err)
	}
	if err := os.Rename(tmp, s.path(name)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write config %s: %w", name, err)
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, name string) error {
	if err := configstore.ValidateName(name); err != nil {
		return err
	}
	if err := os.Remove(s.path(name)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return configstore.ErrNotFound
		}
		return fmt.Errorf("delete config %s: %w", name, err)
	}
	return nil
}

func (s *Storage) ListAll(ctx context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list config directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), extension) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), extension))
	}
	return configstore.FilterNames(names, prefix), nil
}

func (s *Storage) Exists(ctx context.Context, name string) (bool, error) {
	if err := configstore.ValidateName(name); err != nil {
		return false, err
	}
	_, err := os.Stat(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}
