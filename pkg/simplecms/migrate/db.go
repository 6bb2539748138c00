package migrate

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/huandu/go-sqlbuilder"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Supported database drivers.
const (
	DriverSQLite = "sqlite"
	DriverPgx    = "pgx"
)

// DB is a legacy database plus the SQL flavor queries are built for.
type DB struct {
	*sql.DB
	Flavor sqlbuilder.Flavor
}

// FlavorFor returns the sqlbuilder flavor of driver.
func FlavorFor(driver string) (sqlbuilder.Flavor, error) {
	switch driver {
	case DriverSQLite:
		return sqlbuilder.SQLite, nil
	case DriverPgx:
		return sqlbuilder.PostgreSQL, nil
	}
	return 0, fmt.Errorf("unsupported database driver %q", driver)
}

// Open connects to the legacy database and verifies the connection.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	flavor, err := FlavorFor(driver)
	if err != nil {
		return nil, err
	}
	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", driver, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping %s db: %w", driver, err)
	}
	return &DB{DB: sqlDB, Flavor: flavor}, nil
}

// NewDB wraps an open connection.
func NewDB(db *sql.DB, flavor sqlbuilder.Flavor) *DB {
	return &DB{DB: db, Flavor: flavor}
}

// Select starts a SELECT statement in the database's flavor.
func (db *DB) Select(cols ...string) *sqlbuilder.SelectBuilder {
	sb := db.Flavor.NewSelectBuilder()
	sb.Select(cols...)
	return sb
}

// count runs SELECT COUNT(*) on table with the conditions where adds.
func (db *DB) count(ctx context.Context, table string, where func(sb *sqlbuilder.SelectBuilder)) (int, error) {
	sb := db.Flavor.NewSelectBuilder()
	sb.Select("COUNT(*)").From(table)
	if where != nil {
		where(sb)
	}
	query, args := sb.Build()
	var n int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}
