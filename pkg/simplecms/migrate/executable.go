package migrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
)

// ErrRequirementsNotMet is returned when a source's provider module is
// not enabled.
var ErrRequirementsNotMet = errors.New("migration requirements not met")

// Executable drives one migration's source.
type Executable struct {
	migration *Migration
	source    Source
	highWater HighWaterStore
	logger    *slog.Logger
}

// ExecutableOption configures an Executable.
type ExecutableOption func(*Executable)

// WithHighWaterStore sets where high water marks are kept.
func WithHighWaterStore(store HighWaterStore) ExecutableOption {
	return func(e *Executable) {
		e.highWater = store
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ExecutableOption {
	return func(e *Executable) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExecutable resolves m's source and checks that its provider module is
// enabled.
func NewExecutable(m *Migration, registry *Registry, db *DB, modules ModuleHandler, opts ...ExecutableOption) (*Executable, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	source, err := registry.Source(m, db)
	if err != nil {
		return nil, err
	}
	if p, ok := source.(Provider); ok && modules != nil && !modules.ModuleExists(p.Provider()) {
		return nil, fmt.Errorf("%w: %s requires module %s", ErrRequirementsNotMet, m.ID, p.Provider())
	}

	e := &Executable{
		migration: m,
		source:    source,
		highWater: NewMemoryHighWater(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Source returns the resolved source.
func (e *Executable) Source() Source { return e.source }

// Rows returns the source rows that pass the id list and high water
// filters, and advances the high water mark past them.
func (e *Executable) Rows(ctx context.Context) ([]*Row, error) {
	rows, err := e.source.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("migration %s: %w", e.migration.ID, err)
	}

	property := e.migration.HighWaterProperty.Property()
	var mark any
	var hasMark bool
	if property != "" {
		if mark, hasMark, err = e.highWater.HighWater(ctx, e.migration.ID); err != nil {
			return nil, fmt.Errorf("migration %s: read high water: %w", e.migration.ID, err)
		}
	}

	out := make([]*Row, 0, len(rows))
	newMark, hasNewMark := mark, hasMark
	advanced := false
	for _, row := range rows {
		if len(e.migration.IDList) > 0 && !e.inIDList(row) {
			continue
		}
		if property != "" {
			value, ok := row.Get(property)
			if ok && hasMark {
				if c, comparable := compareHighWater(value, mark); comparable && c <= 0 {
					continue
				}
			}
			if ok {
				if !hasNewMark {
					newMark, hasNewMark, advanced = value, true, true
				} else if c, comparable := compareHighWater(value, newMark); comparable && c > 0 {
					newMark, advanced = value, true
				}
			}
		}
		out = append(out, row)
	}

	if advanced {
		if err := e.highWater.SetHighWater(ctx, e.migration.ID, newMark); err != nil {
			return nil, fmt.Errorf("migration %s: save high water: %w", e.migration.ID, err)
		}
	}
	e.logger.Debug("Read migration rows",
		"migration", e.migration.ID, "source", e.migration.SourcePlugin(),
		"total", len(rows), "returned", len(out))
	return out, nil
}

func (e *Executable) inIDList(row *Row) bool {
	for _, v := range row.IDs() {
		if slices.Contains(e.migration.IDList, fmt.Sprint(v)) {
			return true
		}
	}
	return false
}
