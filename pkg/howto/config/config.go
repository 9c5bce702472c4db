// Package config builds a howto.Service from declarative configuration,
// with environment-variable overrides layered on library defaults.
package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/makerhub/howto/pkg/howto"
	memorystore "github.com/makerhub/howto/pkg/howto/repo/memory"
	pgstore "github.com/makerhub/howto/pkg/howto/repo/postgres"
	fsstorage "github.com/makerhub/howto/pkg/howto/storage/fs"
	memorystorage "github.com/makerhub/howto/pkg/howto/storage/memory"
	s3storage "github.com/makerhub/howto/pkg/howto/storage/s3"
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
		DatabaseType: "memory",
		DBSchema:     "content",
		Storage: StorageConfig{
			Type:   "memory",
			Config: map[string]string{},
		},
		EnableEventLogging: true,
	}
}

// ServerConfig represents server configuration for the how-to service
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Database configuration
	DatabaseURL  string
	DatabaseType string // "memory", "postgres"
	DBSchema     string // Postgres schema to use (default: content)

	// Media storage configuration
	Storage StorageConfig

	// Server options
	EnableEventLogging bool
}

// StorageConfig represents configuration for the media storage backend
type StorageConfig struct {
	Type   string // "memory", "fs", "s3"
	Config map[string]string
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}

	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}

	switch c.Storage.Type {
	case "memory", "fs", "s3":
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}

	return nil
}

// BuildService creates a Service instance from the server configuration
func (c *ServerConfig) BuildService(ctx context.Context) (howto.Service, error) {
	store, err := c.buildStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build content store: %w", err)
	}

	blobStore, err := c.buildStorage()
	if err != nil {
		return nil, fmt.Errorf("failed to build storage backend: %w", err)
	}

	options := []howto.Option{
		howto.WithStore(store),
		howto.WithUploader(howto.NewBlobUploader(blobStore)),
	}
	if c.EnableEventLogging {
		options = append(options, howto.WithEventSink(howto.NewSlogEventSink(nil)))
	}

	return howto.New(options...)
}

func (c *ServerConfig) buildStore(ctx context.Context) (howto.ContentStore, error) {
	switch c.DatabaseType {
	case "memory":
		return memorystore.New(), nil
	case "postgres":
		pool, err := pgxpool.New(ctx, c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create connection pool: %w", err)
		}
		store := pgstore.NewWithPool(pool, pgstore.WithSchema(c.DBSchema))
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure database schema: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

func (c *ServerConfig) buildStorage() (howto.BlobStore, error) {
	cfg := c.Storage.Config
	switch c.Storage.Type {
	case "memory":
		return memorystorage.New(), nil
	case "fs":
		return fsstorage.New(fsstorage.Config{
			BaseDir:   cfg["base_dir"],
			URLPrefix: cfg["url_prefix"],
		})
	case "s3":
		return s3storage.New(s3storage.Config{
			Region:                 cfg["region"],
			Bucket:                 cfg["bucket"],
			AccessKeyID:            cfg["access_key_id"],
			SecretAccessKey:        cfg["secret_access_key"],
			Endpoint:               cfg["endpoint"],
			UsePathStyle:           cfg["use_path_style"] == "true",
			CreateBucketIfNotExist: cfg["create_bucket_if_not_exist"] == "true",
		})
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}
}
