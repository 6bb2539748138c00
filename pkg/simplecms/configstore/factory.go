package configstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/tendant/simple-cms/pkg/simplecms/configschema"
)

// ErrSchemaViolation marks config data rejected by the schema checker.
var ErrSchemaViolation = errors.New("config does not match its schema")

// SchemaError lists every schema violation found in a config object.
type SchemaError struct {
	Name   string
	Errors map[string]string
}

func (e *SchemaError) Error() string {
	keys := make([]string, 0, len(e.Errors))
	for k := range e.Errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, k+" "+e.Errors[k])
	}
	return fmt.Sprintf("schema errors for %s: %s", e.Name, strings.Join(msgs, "; "))
}

func (e *SchemaError) Unwrap() error {
	return ErrSchemaViolation
}

// Factory is the entry point for config objects. With a checker installed
// every save is validated first.
type Factory struct {
	storage Storage
	checker *configschema.Checker
	logger  *slog.Logger
}

// Option configures a Factory.
type Option func(*Factory)

// WithSchemaChecker turns on strict schema checking on save.
func WithSchemaChecker(checker *configschema.Checker) Option {
	return func(f *Factory) {
		f.checker = checker
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Factory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFactory returns a factory over storage.
func NewFactory(storage Storage, opts ...Option) *Factory {
	f := &Factory{
		storage: storage,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Storage returns the underlying storage.
func (f *Factory) Storage() Storage {
	return f.storage
}

// Get reads a config object.
func (f *Factory) Get(ctx context.Context, name string) (map[string]any, error) {
	return f.storage.Read(ctx, name)
}

// Check runs the schema checker against data without saving it. Without
// a checker every object reports no schema.
func (f *Factory) Check(name string, data map[string]any) configschema.Result {
	if f.checker == nil {
		return configschema.Result{Status: configschema.NoSchema}
	}
	return f.checker.Check(name, data)
}

// Save validates and writes a config object. Objects without a schema are
// accepted with a warning.
func (f *Factory) Save(ctx context.Context, name string, data map[string]any) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if f.checker != nil {
		result := f.checker.Check(name, data)
		switch {
		case !result.HasSchema():
			f.logger.Warn("Saving config without schema", "name", name)
		case !result.Valid():
			return &SchemaError{Name: name, Errors: result.Errors}
		}
	}
	if err := f.storage.Write(ctx, name, data); err != nil {
		return fmt.Errorf("save config %s: %w", name, err)
	}
	f.logger.Debug("Saved config", "name", name)
	return nil
}

// Delete removes a config object.
func (f *Factory) Delete(ctx context.Context, name string) error {
	return f.storage.Delete(ctx, name)
}

// ListAll returns the stored names with prefix.
func (f *Factory) ListAll(ctx context.Context, prefix string) ([]string, error) {
	return f.storage.ListAll(ctx, prefix)
}

// LoadMultiple reads the objects that exist among names.
func (f *Factory) LoadMultiple(ctx context.Context, names []string) (map[string]map[string]any, error) {
	return f.storage.ReadMultiple(ctx, names)
}
