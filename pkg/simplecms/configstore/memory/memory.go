// Package memory keeps config objects in process memory.
package memory

import (
	"context"
	"sync"

	"github.com/tendant/simple-cms/pkg/simplecms/configstore"
)

// Storage is an in-memory configstore.Storage.
type Storage struct {
	mu      sync.RWMutex
	objects map[string]map[string]any
}

// New returns an empty storage.
func New() *Storage {
	return &Storage{objects: make(map[string]map[string]any)}
}

func (s *Storage) Read(ctx context.Context, name string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.objects[name]
	if !ok {
		return nil, configstore.ErrNotFound
	}
	return configstore.Clone(data), nil
}

func (s *Storage) ReadMultiple(ctx context.Context, names []string) (map[string]map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]map[string]any, len(names))
	for _, name := range names {
		if data, ok := s.objects[name]; ok {
			out[name] = configstore.Clone(data)
		}
	}
	return out, nil
}

func (s *Storage) Write(ctx context.Context, name string, data map[string]any) error {
	if err := configstore.ValidateName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[name] = configstore.Clone(data)
	return nil
}

func (s *Storage) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.objects[name]; !ok {
		return configstore.ErrNotFound
	}
	delete(s.objects, name)
	return nil
}

func (s *Storage) ListAll(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.objects))
	for name := range s.objects {
		names = append(names, name)
	}
	return configstore.FilterNames(names, prefix), nil
}

func (s *Storage) Exists(ctx context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[name]
	return ok, nil
}
