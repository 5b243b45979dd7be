package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"waypoint-sync/core/credentials"
	"waypoint-sync/core/database"
	"waypoint-sync/core/logger"
	"waypoint-sync/core/server"
	"waypoint-sync/core/storage"
	"waypoint-sync/feature/ugc"
	ugcreconcile "waypoint-sync/feature/ugc/reconcile"
	ugcsync "waypoint-sync/feature/ugc/sync"
	"waypoint-sync/feature/waypoint"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full application configuration, one section per package.
type Config struct {
	// Server holds configuration for the operator HTTP server.
	Server server.Config `mapstructure:"server"`
	// Storage holds configuration for the object storage (e.g., S3, Minio).
	Storage storage.Config `mapstructure:"storage"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Database holds configuration for the database connection.
	Database database.Config `mapstructure:"database"`
	// Waypoint holds the upstream endpoints.
	Waypoint waypoint.Config `mapstructure:"waypoint"`
	// Credentials selects the token supplier.
	Credentials credentials.Config `mapstructure:"credentials"`
	// Sync tunes pagination, retries and rate limiting.
	Sync ugcsync.Config `mapstructure:"sync"`
	// Reconcile tunes deletion reconciliation.
	Reconcile ugcreconcile.Config `mapstructure:"reconcile"`
	// UGC holds skip list, report archive and schedule settings.
	UGC ugc.Config `mapstructure:"ugc"`
}

// LoadConfig reads dir/.env (when present) into the process environment,
// then builds the configuration from environment variables over the struct
// tag defaults. SYNC_PAGE_SIZE maps to sync.page_size.
func LoadConfig(dir string) (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Overload(filepath.Join(dir, ".env"))

	v := viper.New()
	registerDefaults(v, reflect.TypeOf(Config{}), "")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// registerDefaults walks the struct tags and registers every leaf key with
// its `default` value. Keys must be registered for AutomaticEnv to see them,
// so fields without a default get an empty one.
func registerDefaults(v *viper.Viper, t reflect.Type, prefix string) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		if field.Type.Kind() == reflect.Struct {
			registerDefaults(v, field.Type, key)
			continue
		}
		v.SetDefault(key, field.Tag.Get("default"))
	}
}

// Validate rejects settings the sync cannot run with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case "mysql", "sqlite", "":
	default:
		errs = append(errs, fmt.Errorf("database.driver: unsupported driver %q", c.Database.Driver))
	}
	switch c.Credentials.Source {
	case "static", "database", "":
	default:
		errs = append(errs, fmt.Errorf("credentials.source: unknown source %q", c.Credentials.Source))
	}
	if c.Sync.PageSize <= 0 {
		errs = append(errs, errors.New("sync.page_size must be positive"))
	}
	if c.Sync.Attempts < 1 {
		errs = append(errs, errors.New("sync.attempts must be at least 1"))
	}
	if c.Sync.RecoveryAttempts < c.Sync.Attempts {
		errs = append(errs, errors.New("sync.recovery_attempts must not be below sync.attempts"))
	}
	if c.Reconcile.ProbeBatchSize < 1 {
		errs = append(errs, errors.New("reconcile.probe_batch_size must be at least 1"))
	}
	if c.Storage.Enabled && c.Storage.Bucket == "" {
		errs = append(errs, errors.New("storage.bucket is required when storage is enabled"))
	}
	return errors.Join(errs...)
}
