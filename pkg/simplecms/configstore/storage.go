// Package configstore persists named configuration objects and validates
// them against the config schema before they are written.
package configstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound is returned when a config object does not exist.
var ErrNotFound = errors.New("config object not found")

// ErrInvalidName is returned for names that are empty or unsafe to store.
var ErrInvalidName = errors.New("invalid config name")

// Storage reads and writes raw config data by name.
type Storage interface {
	Read(ctx context.Context, name string) (map[string]any, error)
	// ReadMultiple returns the objects that exist among names.
	ReadMultiple(ctx context.Context, names []string) (map[string]map[string]any, error)
	Write(ctx context.Context, name string, data map[string]any) error
	Delete(ctx context.Context, name string) error
	// ListAll returns the names starting with prefix, sorted.
	ListAll(ctx context.Context, prefix string) ([]string, error)
	Exists(ctx context.Context, name string) (bool, error)
}

// ValidateName rejects names that cannot be stored: empty names, names
// without a provider prefix and names with path separators.
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	case !strings.Contains(name, "."):
		return fmt.Errorf("%w: %q has no provider prefix", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\:?*<>"|`):
		return fmt.Errorf("%w: %q contains reserved characters", ErrInvalidName, name)
	}
	return nil
}

// FilterNames returns the names with prefix, sorted.
func FilterNames(names []string, prefix string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if strings.HasPrefix(n, prefix) {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}
