package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/tendant/simple-cms/pkg/simplecms/storage"
)

// WithEnv applies environment variable overrides using the provided prefix.
//
// Server:
//
//	PORT, ENVIRONMENT
//	JWT_SECRET - HS256 secret for bearer tokens; unset means anonymous only
//
// Config storage:
//
//	CONFIG_STORE - "memory" (default), "file:///path/to/sync" or a
//	               "postgres://" / "postgresql://" connection string
//	STRICT_SCHEMA - reject config that violates its schema (default true)
//	SCHEMA_DIRS - comma separated directories of *.schema.yml files
//
// Stream wrappers (one per scheme):
//
//	PUBLIC_STORAGE_URL, PRIVATE_STORAGE_URL, TEMPORARY_STORAGE_URL -
//	  "memory://", "file:///path" or "s3://bucket?region=..&endpoint=..&path_style=true&prefix=.."
//	TEMP_DIR - scratch directory for image processing
//
// Images and blocks:
//
//	JPEG_QUALITY, BLOCKS_FILE
//
// Migrations:
//
//	MIGRATE_DB_DRIVER - "sqlite" (default) or "pgx"
//	MIGRATE_DB_DSN
func WithEnv(prefix string) Option {
	return func(c *ServerConfig) error {
		if v, ok := lookupEnv(prefix, "PORT"); ok && v != "" {
			c.Port = v
		}
		if v, ok := lookupEnv(prefix, "ENVIRONMENT"); ok && v != "" {
			c.Environment = v
		}
		if v, ok := lookupEnv(prefix, "JWT_SECRET"); ok {
			c.JWTSecret = v
		}
		if v, ok := lookupEnv(prefix, "TEMP_DIR"); ok && v != "" {
			c.TempDir = v
		}
		if v, ok := lookupEnv(prefix, "BLOCKS_FILE"); ok && v != "" {
			c.BlocksFile = v
		}
		if v, ok := lookupEnv(prefix, "SCHEMA_DIRS"); ok && v != "" {
			c.SchemaDirs = splitList(v)
		}

		if strict, ok, err := parseBoolEnv(prefix, "STRICT_SCHEMA"); err != nil {
			return err
		} else if ok {
			c.StrictSchema = strict
		}
		if quality, ok, err := parseIntEnv(prefix, "JPEG_QUALITY"); err != nil {
			return err
		} else if ok {
			c.JPEGQuality = quality
		}

		if err := applyConfigStoreEnv(prefix, c); err != nil {
			return err
		}
		for _, scheme := range []string{storage.SchemePublic, storage.SchemePrivate, storage.SchemeTemporary} {
			if err := applyStorageEnv(prefix, scheme, c); err != nil {
				return err
			}
		}

		if v, ok := lookupEnv(prefix, "MIGRATE_DB_DRIVER"); ok && v != "" {
			c.MigrateDriver = v
		}
		if v, ok := lookupEnv(prefix, "MIGRATE_DB_DSN"); ok {
			c.MigrateDSN = v
		}
		return nil
	}
}

// applyConfigStoreEnv picks the config store from CONFIG_STORE
func applyConfigStoreEnv(prefix string, c *ServerConfig) error {
	v, ok := lookupEnv(prefix, "CONFIG_STORE")
	if !ok || v == "" {
		return nil
	}
	switch {
	case v == "memory":
		c.ConfigStore = "memory"
	case strings.HasPrefix(v, "file://"):
		dir := strings.TrimPrefix(v, "file://")
		if dir == "" {
			return fmt.Errorf("config directory cannot be empty in CONFIG_STORE")
		}
		c.ConfigStore = "file"
		c.ConfigDir = dir
	case strings.HasPrefix(v, "postgres://"), strings.HasPrefix(v, "postgresql://"):
		c.ConfigStore = "postgres"
		c.DatabaseURL = v
	default:
		return fmt.Errorf("unsupported CONFIG_STORE format: %s (use 'memory', 'file://...' or 'postgresql://...')", v)
	}
	return nil
}

// applyStorageEnv configures the backend of one scheme from <SCHEME>_STORAGE_URL
func applyStorageEnv(prefix, scheme string, c *ServerConfig) error {
	key := strings.ToUpper(scheme) + "_STORAGE_URL"
	raw, ok := lookupEnv(prefix, key)
	if !ok || raw == "" {
		return nil
	}

	backend, err := parseStorageURL(scheme, raw)
	if err != nil {
		return fmt.Errorf("%s%s: %w", prefix, key, err)
	}
	c.StorageBackends = upsertStorageBackend(c.StorageBackends, backend)
	return nil
}

func parseStorageURL(scheme, raw string) (StorageBackendConfig, error) {
	backend := StorageBackendConfig{Scheme: scheme, Config: map[string]interface{}{}}
	if raw == "memory" || raw == "memory://" {
		backend.Type = "memory"
		return backend, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return backend, fmt.Errorf("invalid storage URL: %w", err)
	}
	switch u.Scheme {
	case "file":
		dir := u.Host + u.Path
		if dir == "" {
			return backend, fmt.Errorf("filesystem path cannot be empty")
		}
		backend.Type = "fs"
		backend.Config["base_dir"] = dir
		if v := u.Query().Get("url_prefix"); v != "" {
			backend.Config["url_prefix"] = v
		}
	case "s3":
		if u.Host == "" {
			return backend, fmt.Errorf("S3 bucket name cannot be empty")
		}
		backend.Type = "s3"
		backend.Config["bucket"] = u.Host
		backend.Config["region"] = "us-east-1"
		q := u.Query()
		for param, key := range map[string]string{
			"region":     "region",
			"endpoint":   "endpoint",
			"prefix":     "prefix",
			"path_style": "use_path_style",
			"sse":        "sse_algorithm",
		} {
			if v := q.Get(param); v != "" {
				backend.Config[key] = v
			}
		}
		if _, ok := backend.Config["sse_algorithm"]; ok {
			backend.Config["enable_sse"] = true
		}
		if accessKey, ok := os.LookupEnv("AWS_ACCESS_KEY_ID"); ok && accessKey != "" {
			backend.Config["access_key_id"] = accessKey
		}
		if secretKey, ok := os.LookupEnv("AWS_SECRET_ACCESS_KEY"); ok && secretKey != "" {
			backend.Config["secret_access_key"] = secretKey
		}
		if region, ok := os.LookupEnv("AWS_REGION"); ok && region != "" && q.Get("region") == "" {
			backend.Config["region"] = region
		}
	default:
		return backend, fmt.Errorf("unsupported storage URL %q (use 'memory://', 'file://...' or 's3://...')", raw)
	}
	return backend, nil
}

func lookupEnv(prefix, key string) (string, bool) {
	return os.LookupEnv(prefix + key)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseBoolEnv(prefix, key string) (bool, bool, error) {
	raw, ok := lookupEnv(prefix, key)
	if !ok || raw == "" {
		return false, false, nil
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false, fmt.Errorf("invalid boolean for %s%s: %w", prefix, key, err)
	}
	return parsed, true, nil
}

func parseIntEnv(prefix, key string) (int, bool, error) {
	raw, ok := lookupEnv(prefix, key)
	if !ok || raw == "" {
		return 0, false, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("invalid integer for %s%s: %w", prefix, key, err)
	}
	return parsed, true, nil
}

func upsertStorageBackend(backends []StorageBackendConfig, backend StorageBackendConfig) []StorageBackendConfig {
	if backend.Config == nil {
		backend.Config = map[string]interface{}{}
	}
	for i := range backends {
		if backends[i].Scheme == backend.Scheme {
			backends[i] = backend
			return backends
		}
	}
	return append(backends, backend)
}
