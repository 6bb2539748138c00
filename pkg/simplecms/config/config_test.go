package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-cms/pkg/simplecms/configstore"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "memory", cfg.ConfigStore)
	assert.True(t, cfg.StrictSchema)
	assert.Len(t, cfg.StorageBackends, 3)
	assert.Equal(t, "sqlite", cfg.MigrateDriver)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		wantErr string
	}{
		{"empty port", []Option{WithPort("")}, "port cannot be empty"},
		{"file store without dir", []Option{func(c *ServerConfig) error { c.ConfigStore = "file"; return nil }}, "config_dir is required"},
		{"unknown store", []Option{func(c *ServerConfig) error { c.ConfigStore = "redis"; return nil }}, "config_store must be"},
		{"no public scheme", []Option{func(c *ServerConfig) error { c.StorageBackends = c.StorageBackends[1:]; return nil }}, "'public' scheme is required"},
		{"bad quality", []Option{func(c *ServerConfig) error { c.JPEGQuality = 101; return nil }}, "jpeg quality"},
		{"bad driver", []Option{WithMigrationDB("mysql", "x")}, "unsupported database driver"},
		{"bad fs storage", []Option{WithFilesystemStorage("public", "", "")}, "base directory cannot be empty"},
		{"bad s3 storage", []Option{WithS3Storage("public", "", "us-east-1", nil)}, "bucket cannot be empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.opts...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBuildServices_FileStores(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	blocks := filepath.Join(dir, "blocks.yml")
	require.NoError(t, os.WriteFile(blocks, []byte("system_main_block:\n  admin_label: Main\n  category: System\n"), 0o644))

	cfg, err := Load(
		WithFileConfigStore(filepath.Join(dir, "sync")),
		WithFilesystemStorage("public", filepath.Join(dir, "files"), "/files"),
		WithTempDir(t.TempDir()),
		WithJWTSecret("secret"),
		func(c *ServerConfig) error { c.BlocksFile = blocks; return nil },
	)
	require.NoError(t, err)

	svc, err := cfg.BuildServices(ctx, nil)
	require.NoError(t, err)
	defer svc.Close()

	assert.True(t, svc.Schemas.HasSchema("system.site"))
	assert.NotNil(t, svc.JWTAuth)
	assert.Equal(t, []string{"System"}, svc.Blocks.Categories())
	assert.Equal(t, []string{"private", "public", "temporary"}, svc.Wrappers.Schemes())

	// Strict mode rejects schema violations.
	err = svc.Config.Save(ctx, "system.site", map[string]any{"weight_select_max": "lots"})
	var schemaErr *configstore.SchemaError
	require.True(t, errors.As(err, &schemaErr))

	require.NoError(t, svc.Config.Save(ctx, "system.site", map[string]any{"name": "Example"}))
	_, err = os.Stat(filepath.Join(dir, "sync", "system.site.yml"))
	assert.NoError(t, err)

	require.NoError(t, svc.Wrappers.Write(ctx, "public://a.txt", strings.NewReader("hi"), "text/plain"))
	_, err = os.Stat(filepath.Join(dir, "files", "a.txt"))
	assert.NoError(t, err)
	url, err := svc.Wrappers.ExternalURL(ctx, "public://a.txt")
	require.NoError(t, err)
	assert.Equal(t, "/files/a.txt", url)
}

func TestBuildServices_Lenient(t *testing.T) {
	cfg, err := Load(WithStrictSchema(false), WithSchemaDir(t.TempDir()))
	require.NoError(t, err)
	svc, err := cfg.BuildServices(context.Background(), nil)
	require.NoError(t, err)
	assert.NoError(t, svc.Config.Save(context.Background(), "system.site", map[string]any{"weight_select_max": "lots"}))
	assert.Nil(t, svc.JWTAuth)
}

func TestBuildServices_BadBlocksFile(t *testing.T) {
	cfg, err := Load(func(c *ServerConfig) error { c.BlocksFile = filepath.Join(t.TempDir(), "missing.yml"); return nil })
	require.NoError(t, err)
	_, err = cfg.BuildServices(context.Background(), nil)
	assert.Error(t, err)
}

func TestOpenMigrationDB(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	_, err = cfg.OpenMigrationDB(context.Background())
	assert.Error(t, err)

	cfg, err = Load(WithMigrationDB("sqlite", filepath.Join(t.TempDir(), "legacy.sqlite")))
	require.NoError(t, err)
	db, err := cfg.OpenMigrationDB(context.Background())
	require.NoError(t, err)
	assert.NoError(t, db.Close())
}
