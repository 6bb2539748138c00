// Package config builds the CMS services from a ServerConfig.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/go-chi/jwtauth"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-cms/pkg/simplecms/block"
	"github.com/tendant/simple-cms/pkg/simplecms/configschema"
	"github.com/tendant/simple-cms/pkg/simplecms/configstore"
	configfile "github.com/tendant/simple-cms/pkg/simplecms/configstore/file"
	configmemory "github.com/tendant/simple-cms/pkg/simplecms/configstore/memory"
	configpg "github.com/tendant/simple-cms/pkg/simplecms/configstore/postgres"
	simage "github.com/tendant/simple-cms/pkg/simplecms/image"
	"github.com/tendant/simple-cms/pkg/simplecms/image/gd"
	"github.com/tendant/simple-cms/pkg/simplecms/imagestyle"
	"github.com/tendant/simple-cms/pkg/simplecms/migrate"
	"github.com/tendant/simple-cms/pkg/simplecms/storage"
	fsstorage "github.com/tendant/simple-cms/pkg/simplecms/storage/fs"
	memorystorage "github.com/tendant/simple-cms/pkg/simplecms/storage/memory"
	s3storage "github.com/tendant/simple-cms/pkg/simplecms/storage/s3"
	"github.com/tendant/simple-cms/pkg/simplecms/system"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:         "8080",
		Environment:  "development",
		ConfigStore:  "memory",
		StrictSchema: true,
		StorageBackends: []StorageBackendConfig{
			{Scheme: storage.SchemePublic, Type: "memory", Config: map[string]interface{}{}},
			{Scheme: storage.SchemePrivate, Type: "memory", Config: map[string]interface{}{}},
			{Scheme: storage.SchemeTemporary, Type: "memory", Config: map[string]interface{}{}},
		},
		JPEGQuality:   gd.DefaultJPEGQuality,
		MigrateDriver: migrate.DriverSQLite,
	}
}

// ServerConfig represents the configuration of the CMS services
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Config object storage
	ConfigStore string // "memory", "file", "postgres"
	ConfigDir   string // sync directory for the file store
	DatabaseURL string // postgres connection string
	// StrictSchema rejects config objects that violate their schema.
	StrictSchema bool
	// SchemaDirs holds extra *.schema.yml files loaded after the system schema.
	SchemaDirs []string

	// Stream wrapper storage, one backend per scheme
	StorageBackends []StorageBackendConfig
	TempDir         string

	JPEGQuality int
	JWTSecret   string
	// BlocksFile lists block plugin definitions in YAML.
	BlocksFile string

	// Legacy site database read by migrations
	MigrateDriver string
	MigrateDSN    string
}

// StorageBackendConfig represents configuration for a stream wrapper backend
type StorageBackendConfig struct {
	Scheme string
	Type   string // "memory", "fs", "s3"
	Config map[string]interface{}
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	switch c.ConfigStore {
	case "memory":
	case "file":
		if c.ConfigDir == "" {
			return errors.New("config_dir is required when using the file config store")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("database_url is required when using postgres")
		}
	default:
		return fmt.Errorf("config_store must be 'memory', 'file' or 'postgres', got %q", c.ConfigStore)
	}

	found := false
	for _, backend := range c.StorageBackends {
		if backend.Scheme == "" {
			return errors.New("storage backend scheme is required")
		}
		if backend.Scheme == storage.SchemePublic {
			found = true
		}
	}
	if !found {
		return fmt.Errorf("a storage backend for the '%s' scheme is required", storage.SchemePublic)
	}

	if c.JPEGQuality < 0 || c.JPEGQuality > 100 {
		return fmt.Errorf("jpeg quality must be between 0 and 100, got %d", c.JPEGQuality)
	}
	if _, err := migrate.FlavorFor(c.MigrateDriver); err != nil {
		return err
	}
	return nil
}

// Services are the wired CMS services.
type Services struct {
	Schemas  *configschema.Registry
	Config   *configstore.Factory
	Wrappers *storage.Wrappers
	Styles   *imagestyle.Service
	Blocks   *block.Manager
	JWTAuth  *jwtauth.JWTAuth

	pool *pgxpool.Pool
}

// Close releases connections held by the services.
func (s *Services) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// BuildServices wires the services described by the configuration.
func (c *ServerConfig) BuildServices(ctx context.Context, logger *slog.Logger) (*Services, error) {
	if logger == nil {
		logger = slog.Default()
	}
	svc := &Services{}

	schemas, err := c.BuildSchemaRegistry(logger)
	if err != nil {
		return nil, err
	}
	svc.Schemas = schemas

	store, err := c.buildConfigStorage(ctx, svc)
	if err != nil {
		svc.Close()
		return nil, fmt.Errorf("failed to build config storage: %w", err)
	}
	factoryOpts := []configstore.Option{configstore.WithLogger(logger)}
	if c.StrictSchema {
		factoryOpts = append(factoryOpts, configstore.WithSchemaChecker(configschema.NewChecker(schemas)))
	}
	svc.Config = configstore.NewFactory(store, factoryOpts...)

	svc.Wrappers = storage.NewWrappers(storage.WithLogger(logger))
	for _, backendConfig := range c.StorageBackends {
		backend, err := c.buildStorageBackend(ctx, backendConfig)
		if err != nil {
			svc.Close()
			return nil, fmt.Errorf("failed to build storage backend %s: %w", backendConfig.Scheme, err)
		}
		svc.Wrappers.Register(backendConfig.Scheme, backend)
	}

	quality := c.JPEGQuality
	svc.Styles = imagestyle.NewService(svc.Wrappers,
		imagestyle.WithConfig(svc.Config),
		imagestyle.WithTempDir(c.TempDir),
		imagestyle.WithLogger(logger),
		imagestyle.WithToolkitFactory(func() simage.Toolkit {
			return gd.New(gd.WithJPEGQuality(quality), gd.WithLogger(logger))
		}),
	)

	svc.Blocks = block.NewManager(logger)
	if c.BlocksFile != "" {
		if err := svc.Blocks.LoadFile(c.BlocksFile); err != nil {
			svc.Close()
			return nil, err
		}
	}

	if c.JWTSecret != "" {
		svc.JWTAuth = jwtauth.New("HS256", []byte(c.JWTSecret), nil)
	}
	return svc, nil
}

// BuildSchemaRegistry loads the system schema plus SchemaDirs.
func (c *ServerConfig) BuildSchemaRegistry(logger *slog.Logger) (*configschema.Registry, error) {
	reg := configschema.NewRegistry(configschema.WithLogger(logger))
	if err := system.RegisterSchema(reg); err != nil {
		return nil, fmt.Errorf("failed to load system schema: %w", err)
	}
	for _, dir := range c.SchemaDirs {
		if err := reg.LoadDir(dir); err != nil {
			return nil, fmt.Errorf("failed to load schema from %s: %w", dir, err)
		}
	}
	return reg, nil
}

// OpenMigrationDB connects to the legacy site database.
func (c *ServerConfig) OpenMigrationDB(ctx context.Context) (*migrate.DB, error) {
	if c.MigrateDSN == "" {
		return nil, errors.New("migrate dsn is required")
	}
	return migrate.Open(ctx, c.MigrateDriver, c.MigrateDSN)
}

func (c *ServerConfig) buildConfigStorage(ctx context.Context, svc *Services) (configstore.Storage, error) {
	switch c.ConfigStore {
	case "memory":
		return configmemory.New(), nil
	case "file":
		return configfile.New(c.ConfigDir)
	case "postgres":
		pool, err := pgxpool.New(ctx, c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		svc.pool = pool
		store := configpg.NewWithPool(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported config store: %s", c.ConfigStore)
	}
}

// buildStorageBackend creates a Store based on the backend configuration
func (c *ServerConfig) buildStorageBackend(ctx context.Context, config StorageBackendConfig) (storage.Store, error) {
	switch config.Type {
	case "memory":
		return memorystorage.New(), nil

	case "fs":
		return fsstorage.New(fsstorage.Config{
			BaseDir:   getString(config.Config, "base_dir", "./data/"+config.Scheme),
			URLPrefix: getString(config.Config, "url_prefix", ""),
		})

	case "s3":
		return s3storage.New(ctx, s3storage.Config{
			Region:          getString(config.Config, "region", "us-east-1"),
			Bucket:          getString(config.Config, "bucket", ""),
			Prefix:          getString(config.Config, "prefix", ""),
			AccessKeyID:     getString(config.Config, "access_key_id", ""),
			SecretAccessKey: getString(config.Config, "secret_access_key", ""),
			Endpoint:        getString(config.Config, "endpoint", ""),
			UsePathStyle:    getBool(config.Config, "use_path_style", false),
			PresignDuration: getInt(config.Config, "presign_duration", 3600),
			EnableSSE:       getBool(config.Config, "enable_sse", false),
			SSEAlgorithm:    getString(config.Config, "sse_algorithm", "AES256"),
			SSEKMSKeyID:     getString(config.Config, "sse_kms_key_id", ""),
		})

	default:
		return nil, fmt.Errorf("unsupported storage backend type: %s", config.Type)
	}
}

func getString(config map[string]interface{}, key string, defaultValue string) string {
	if value, exists := config[key]; exists {
		if str, ok := value.(string); ok {
			return str
		}
	}
	return defaultValue
}

func getBool(config map[string]interface{}, key string, defaultValue bool) bool {
	if value, exists := config[key]; exists {
		if b, ok := value.(bool); ok {
			return b
		}
		if str, ok := value.(string); ok {
			if b, err := strconv.ParseBool(str); err == nil {
				return b
			}
		}
	}
	return defaultValue
}

func getInt(config map[string]interface{}, key string, defaultValue int) int {
	if value, exists := config[key]; exists {
		switch v := value.(type) {
		case int:
			return v
		case float64:
			return int(v)
		case string:
			if i, err := strconv.Atoi(v); err == nil {
				return i
			}
		}
	}
	return defaultValue
}
