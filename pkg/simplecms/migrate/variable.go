package migrate

import (
	"context"
	"fmt"

	"github.com/huandu/go-sqlbuilder"
)

// VariableSourceID is the plugin id of the variable source.
const VariableSourceID = "d6_variable"

// VariableSource combines the requested rows of the legacy "variable"
// table into a single row of unserialized values.
type VariableSource struct {
	db        *DB
	variables []string
}

// NewVariableSource builds the source from the "variables" option.
func NewVariableSource(m *Migration, db *DB) (Source, error) {
	variables := m.SourceStrings("variables")
	if len(variables) == 0 {
		return nil, fmt.Errorf("%w: %s: d6_variable needs at least one variable", ErrInvalidMigration, m.ID)
	}
	return &VariableSource{db: db, variables: variables}, nil
}

func (s *VariableSource) Provider() string { return "system" }

func (s *VariableSource) Fields() map[string]string {
	fields := make(map[string]string, len(s.variables))
	for _, v := range s.variables {
		fields[v] = v
	}
	return fields
}

func (s *VariableSource) IDs() []IDField {
	return []IDField{{Name: "name", Type: "string"}}
}

func (s *VariableSource) where(sb *sqlbuilder.SelectBuilder) {
	sb.Where(sb.In("name", sqlbuilder.Flatten(s.variables)...))
}

// Rows returns one row holding every requested variable that exists, or
// no rows when none does.
func (s *VariableSource) Rows(ctx context.Context) ([]*Row, error) {
	sb := s.db.Select("name", "value").From("variable")
	s.where(sb)
	query, args := sb.Build()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query variables: %w", err)
	}
	defer rows.Close()

	values := make(map[string]any, len(s.variables))
	for rows.Next() {
		var name string
		var raw []byte
		if err := rows.Scan(&name, &raw); err != nil {
			return nil, fmt.Errorf("scan variable: %w", err)
		}
		v, err := Unserialize(raw)
		if err != nil {
			return nil, fmt.Errorf("variable %s: %w", name, err)
		}
		values[name] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query variables: %w", err)
	}
	if len(values) == 0 {
		return nil, nil
	}

	row := NewRow(values, nil)
	row.ids["name"] = s.variables[0]
	return []*Row{row}, nil
}

// Count is 1 when any requested variable exists.
func (s *VariableSource) Count(ctx context.Context) (int, error) {
	n, err := s.db.count(ctx, "variable", s.where)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 1, nil
	}
	return 0, nil
}
