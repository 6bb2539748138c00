// Package postgres stores config objects as JSONB rows.
package postgres

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-cms/pkg/simplecms/configstore"
)

// Schema creates the config table.
const Schema = `
CREATE TABLE IF NOT EXISTS config (
	name TEXT PRIMARY KEY,
	data JSONB NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT (now() AT TIME ZONE 'utc')
)`

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Storage is a PostgreSQL configstore.Storage.
type Storage struct {
	db DBTX
}

// New creates a storage over db.
func New(db DBTX) *Storage {
	return &Storage{db: db}
}

// NewWithPool creates a storage over a connection pool.
func NewWithPool(pool *pgxpool.Pool) *Storage {
	return &Storage{db: pool}
}

// EnsureSchema creates the config table when missing.
func (s *Storage) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return handlePostgresError("ensure schema", err)
	}
	return nil
}

func handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}

// decode keeps numbers as json.Number so integers stay distinguishable
// from floats for schema checks.
func decode(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	data := map[string]any{}
	if err := dec.Decode(&data); err != nil {
		return nil, err
	}
	return data, nil
}

func (s *Storage) Read(ctx context.Context, name string) (map[string]any, error) {
	var raw []byte
	err := s.db.QueryRow(ctx, `SELECT data FROM config WHERE name = $1`, name).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, configstore.ErrNotFound
		}
		return nil, handlePostgresError("read config", err)
	}
	data, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode config %s: %w", name, err)
	}
	return data, nil
}

func (s *Storage) ReadMultiple(ctx context.Context, names []string) (map[string]map[string]any, error) {
	out := make(map[string]map[string]any, len(names))
	if len(names) == 0 {
		return out, nil
	}
	rows, err := s.db.Query(ctx, `SELECT name, data FROM config WHERE name = ANY($1)`, names)
	if err != nil {
		return nil, handlePostgresError("read multiple configs", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var raw []byte
		if err := rows.Scan(&name, &raw); err != nil {
			return nil, handlePostgresError("scan config", err)
		}
		data, err := decode(raw)
		if err != nil {
			return nil, fmt.Errorf("decode config %s: %w", name, err)
		}
		out[name] = data
	}
	if err := rows.Err(); err != nil {
		return nil, handlePostgresError("read multiple configs", err)
	}
	return out, nil
}

func (s *Storage) Write(ctx context.Context, name string, data map[string]any) error {
	if err := configstore.ValidateName(name); err != nil {
		return err
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode config %s: %w", name, err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO config (name, data, updated_at)
		VALUES ($1, $2, now() AT TIME ZONE 'utc')
		ON CONFLICT (name) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		name, raw)
	if err != nil {
		return handlePostgresError("write config", err)
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, name string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM config WHERE name = $1`, name)
	if err != nil {
		return handlePostgresError("delete config", err)
	}
	if tag.RowsAffected() == 0 {
		return configstore.ErrNotFound
	}
	return nil
}

func (s *Storage) ListAll(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT name FROM config WHERE name LIKE $1 ESCAPE '\' ORDER BY name`, escapeLike(prefix)+"%")
	if err != nil {
		return nil, handlePostgresError("list configs", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, handlePostgresError("list configs", err)
	}
	return names, nil
}

func (s *Storage) Exists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM config WHERE name = $1)`, name).Scan(&exists)
	if err != nil {
		return false, handlePostgresError("config exists", err)
	}
	return exists, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
