package migrate_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/huandu/go-sqlbuilder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-cms/pkg/simplecms/migrate"
)

// openLegacyDB returns a sqlite database seeded with the Drupal 6 tables
// the sources read.
func openLegacyDB(t *testing.T) *migrate.DB {
	t.Helper()
	ctx := context.Background()
	db, err := migrate.Open(ctx, migrate.DriverSQLite, filepath.Join(t.TempDir(), "d6.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	variable := sqlbuilder.SQLite.NewCreateTableBuilder()
	variable.CreateTable("variable").IfNotExists()
	variable.Define("name", "VARCHAR(128)", "NOT NULL", "PRIMARY KEY")
	variable.Define("value", "BLOB", "NOT NULL")
	exec(t, db, variable)

	users := sqlbuilder.SQLite.NewCreateTableBuilder()
	users.CreateTable("users").IfNotExists()
	users.Define("uid", "INTEGER", "NOT NULL", "PRIMARY KEY")
	users.Define("access", "INTEGER", "NOT NULL", "DEFAULT 0")
	users.Define("picture", "VARCHAR(255)", "NOT NULL", "DEFAULT ''")
	exec(t, db, users)

	ib := sqlbuilder.SQLite.NewInsertBuilder()
	ib.InsertInto("variable").Cols("name", "value")
	ib.Values("foo", "i:1;")
	ib.Values("bar", "b:0;")
	ib.Values("site_name", `s:6:"Drupal";`)
	exec(t, db, ib)

	insertUsers(t, db,
		[]any{2, 1382835436, "sites/default/files/pictures/picture-2.jpg"},
		[]any{1, 1382835435, "sites/default/files/pictures/picture-1.jpg"},
		[]any{3, 1382835437, ""},
	)
	return db
}

type builder interface {
	Build() (string, []interface{})
}

func exec(t *testing.T, db *migrate.DB, b builder) {
	t.Helper()
	query, args := b.Build()
	_, err := db.ExecContext(context.Background(), query, args...)
	require.NoError(t, err, query)
}

func insertUsers(t *testing.T, db *migrate.DB, rows ...[]any) {
	t.Helper()
	ib := sqlbuilder.SQLite.NewInsertBuilder()
	ib.InsertInto("users").Cols("uid", "access", "picture")
	for _, r := range rows {
		ib.Values(r...)
	}
	exec(t, db, ib)
}

func sourceValues(rows []*migrate.Row) []map[string]any {
	out := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Source())
	}
	return out
}

const variableMigration = `
id: test
highWaterProperty:
  field: test
idlist: []
source:
  plugin: d6_variable
  variables:
    - foo
    - bar
`

const userPictureMigration = `
id: test_user_picture
idlist: []
source:
  plugin: d6_user_picture
`

func TestVariableSource(t *testing.T) {
	ctx := context.Background()
	db := openLegacyDB(t)
	m, err := migrate.ParseMigration([]byte(variableMigration))
	require.NoError(t, err)

	exe, err := migrate.NewExecutable(m, migrate.DefaultRegistry(), db, migrate.StaticModules{"system"})
	require.NoError(t, err)

	rows, err := exe.Rows(ctx)
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"foo": 1, "bar": false}}, sourceValues(rows))
	assert.Equal(t, map[string]any{"name": "foo"}, rows[0].IDs())

	count, err := exe.Source().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, map[string]string{"foo": "foo", "bar": "bar"}, exe.Source().Fields())
}

func TestVariableSource_Missing(t *testing.T) {
	ctx := context.Background()
	db := openLegacyDB(t)
	m := &migrate.Migration{ID: "none", Source: map[string]any{
		"plugin":    migrate.VariableSourceID,
		"variables": []any{"does_not_exist"},
	}}
	src, err := migrate.DefaultRegistry().Source(m, db)
	require.NoError(t, err)

	rows, err := src.Rows(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
	count, err := src.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestVariableSource_RequiresVariables(t *testing.T) {
	m := &migrate.Migration{ID: "empty", Source: map[string]any{"plugin": migrate.VariableSourceID}}
	_, err := migrate.DefaultRegistry().Source(m, nil)
	assert.ErrorIs(t, err, migrate.ErrInvalidMigration)
}

func TestUserPictureSource(t *testing.T) {
	ctx := context.Background()
	db := openLegacyDB(t)
	m, err := migrate.ParseMigration([]byte(userPictureMigration))
	require.NoError(t, err)

	exe, err := migrate.NewExecutable(m, migrate.DefaultRegistry(), db, migrate.StaticModules{"system", "user"})
	require.NoError(t, err)

	rows, err := exe.Rows(ctx)
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{
		{"uid": 1, "access": 1382835435, "picture": "sites/default/files/pictures/picture-1.jpg"},
		{"uid": 2, "access": 1382835436, "picture": "sites/default/files/pictures/picture-2.jpg"},
	}, sourceValues(rows))
	assert.Equal(t, "uid=1", rows[0].IDKey())

	count, err := exe.Source().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, []migrate.IDField{{Name: "uid", Type: "integer"}}, exe.Source().IDs())
}

func TestExecutable_HighWater(t *testing.T) {
	ctx := context.Background()
	db := openLegacyDB(t)
	m, err := migrate.ParseMigration([]byte(userPictureMigration))
	require.NoError(t, err)
	m.HighWaterProperty = &migrate.HighWaterProperty{Name: "access"}

	store := migrate.NewMemoryHighWater()
	exe, err := migrate.NewExecutable(m, migrate.DefaultRegistry(), db, nil, migrate.WithHighWaterStore(store))
	require.NoError(t, err)

	rows, err := exe.Rows(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	mark, ok, err := store.HighWater(ctx, m.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1382835436, mark)

	rows, err = exe.Rows(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)

	insertUsers(t, db, []any{4, 1382835500, "sites/default/files/pictures/picture-4.jpg"})
	rows, err = exe.Rows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, map[string]any{"uid": 4}, rows[0].IDs())
}

func TestExecutable_IDList(t *testing.T) {
	ctx := context.Background()
	db := openLegacyDB(t)
	m, err := migrate.ParseMigration([]byte(userPictureMigration))
	require.NoError(t, err)
	m.IDList = []string{"2"}

	exe, err := migrate.NewExecutable(m, migrate.DefaultRegistry(), db, nil)
	require.NoError(t, err)
	rows, err := exe.Rows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, map[string]any{"uid": 2}, rows[0].IDs())
}

func TestNewExecutable_Errors(t *testing.T) {
	m, err := migrate.ParseMigration([]byte(userPictureMigration))
	require.NoError(t, err)

	_, err = migrate.NewExecutable(m, migrate.DefaultRegistry(), nil, migrate.StaticModules{"system"})
	assert.ErrorIs(t, err, migrate.ErrRequirementsNotMet)

	unknown := &migrate.Migration{ID: "x", Source: map[string]any{"plugin": "d7_node"}}
	_, err = migrate.NewExecutable(unknown, migrate.DefaultRegistry(), nil, nil)
	assert.ErrorIs(t, err, migrate.ErrUnknownSource)
}

func TestParseMigration(t *testing.T) {
	m, err := migrate.ParseMigration([]byte(variableMigration))
	require.NoError(t, err)
	assert.Equal(t, "test", m.ID)
	assert.Equal(t, "d6_variable", m.SourcePlugin())
	assert.Equal(t, []string{"foo", "bar"}, m.SourceStrings("variables"))
	assert.Equal(t, "test", m.HighWaterProperty.Property())
	assert.Empty(t, m.IDList)

	_, err = migrate.ParseMigration([]byte("source: {plugin: d6_variable}"))
	assert.ErrorIs(t, err, migrate.ErrInvalidMigration)
	_, err = migrate.ParseMigration([]byte("id: x\nsource: {}"))
	assert.ErrorIs(t, err, migrate.ErrInvalidMigration)
	_, err = migrate.ParseMigration([]byte("id: [unclosed"))
	assert.Error(t, err)
}

func TestRegistry_IDs(t *testing.T) {
	assert.Equal(t, []string{"d6_user_picture", "d6_variable"}, migrate.DefaultRegistry().IDs())
}

func TestFlavorFor(t *testing.T) {
	f, err := migrate.FlavorFor(migrate.DriverPgx)
	require.NoError(t, err)
	assert.Equal(t, sqlbuilder.PostgreSQL, f)
	_, err = migrate.FlavorFor("mysql")
	assert.Error(t, err)
}
