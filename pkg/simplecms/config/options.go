package config

import (
	"fmt"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithFileConfigStore keeps config objects as YAML files in dir
func WithFileConfigStore(dir string) Option {
	return func(c *ServerConfig) error {
		if dir == "" {
			return fmt.Errorf("config directory cannot be empty")
		}
		c.ConfigStore = "file"
		c.ConfigDir = dir
		return nil
	}
}

// WithPostgresConfigStore keeps config objects in postgres
func WithPostgresConfigStore(databaseURL string) Option {
	return func(c *ServerConfig) error {
		if databaseURL == "" {
			return fmt.Errorf("database URL is required for postgres")
		}
		c.ConfigStore = "postgres"
		c.DatabaseURL = databaseURL
		return nil
	}
}

// WithStrictSchema toggles schema enforcement on config saves
func WithStrictSchema(strict bool) Option {
	return func(c *ServerConfig) error {
		c.StrictSchema = strict
		return nil
	}
}

// WithSchemaDir adds a directory of *.schema.yml files
func WithSchemaDir(dir string) Option {
	return func(c *ServerConfig) error {
		if dir == "" {
			return fmt.Errorf("schema directory cannot be empty")
		}
		c.SchemaDirs = append(c.SchemaDirs, dir)
		return nil
	}
}

// WithFilesystemStorage stores the files of scheme under baseDir
func WithFilesystemStorage(scheme, baseDir, urlPrefix string) Option {
	return func(c *ServerConfig) error {
		if scheme == "" {
			return fmt.Errorf("storage scheme cannot be empty")
		}
		if baseDir == "" {
			return fmt.Errorf("filesystem base directory cannot be empty")
		}
		backend := StorageBackendConfig{
			Scheme: scheme,
			Type:   "fs",
			Config: map[string]interface{}{"base_dir": baseDir},
		}
		if urlPrefix != "" {
			backend.Config["url_prefix"] = urlPrefix
		}
		c.StorageBackends = upsertStorageBackend(c.StorageBackends, backend)
		return nil
	}
}

// WithS3Storage stores the files of scheme in an S3 bucket
func WithS3Storage(scheme, bucket, region string, config map[string]interface{}) Option {
	return func(c *ServerConfig) error {
		if scheme == "" {
			return fmt.Errorf("storage scheme cannot be empty")
		}
		if bucket == "" {
			return fmt.Errorf("S3 bucket cannot be empty")
		}
		backendConfig := map[string]interface{}{"bucket": bucket, "region": region}
		for k, v := range config {
			backendConfig[k] = v
		}
		c.StorageBackends = upsertStorageBackend(c.StorageBackends, StorageBackendConfig{
			Scheme: scheme,
			Type:   "s3",
			Config: backendConfig,
		})
		return nil
	}
}

// WithTempDir sets the image processing scratch directory
func WithTempDir(dir string) Option {
	return func(c *ServerConfig) error {
		c.TempDir = dir
		return nil
	}
}

// WithJWTSecret enables bearer token authentication
func WithJWTSecret(secret string) Option {
	return func(c *ServerConfig) error {
		c.JWTSecret = secret
		return nil
	}
}

// WithMigrationDB sets the legacy database read by migrations
func WithMigrationDB(driver, dsn string) Option {
	return func(c *ServerConfig) error {
		c.MigrateDriver = driver
		c.MigrateDSN = dsn
		return nil
	}
}
