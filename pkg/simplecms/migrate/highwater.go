package migrate

import (
	"context"
	"sync"
)

// HighWaterStore remembers the highest value seen per migration.
type HighWaterStore interface {
	HighWater(ctx context.Context, migrationID string) (any, bool, error)
	SetHighWater(ctx context.Context, migrationID string, value any) error
}

// MemoryHighWater is a process-local HighWaterStore.
type MemoryHighWater struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewMemoryHighWater returns an empty store.
func NewMemoryHighWater() *MemoryHighWater {
	return &MemoryHighWater{values: make(map[string]any)}
}

func (m *MemoryHighWater) HighWater(ctx context.Context, migrationID string) (any, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[migrationID]
	return v, ok, nil
}

func (m *MemoryHighWater) SetHighWater(ctx context.Context, migrationID string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[migrationID] = value
	return nil
}

// compareHighWater orders numbers numerically and everything else as
// strings. ok is false when a or b cannot be compared.
func compareHighWater(a, b any) (cmp int, ok bool) {
	fa, aNum := toFloat(a)
	fb, bNum := toFloat(b)
	if aNum && bNum {
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		}
		return 0, true
	}
	sa, aStr := a.(string)
	sb, bStr := b.(string)
	if aStr && bStr {
		switch {
		case sa < sb:
			return -1, true
		case sa > sb:
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	}
	return 0, false
}
