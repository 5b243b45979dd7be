package cmd

import (
	"context"
	"fmt"

	"waypoint-sync/core/config"
	"waypoint-sync/core/credentials"
	"waypoint-sync/core/database"
	"waypoint-sync/core/logger"
	"waypoint-sync/core/storage"
	"waypoint-sync/feature/ugc"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// env holds what every command needs after startup.
type env struct {
	cfg     *config.Config
	logger  *zap.Logger
	db      *gorm.DB
	storage storage.Client
}

// bootstrap loads the configuration, creates the logger and connects to the
// database. Object storage is connected only when enabled.
func bootstrap() (*env, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	e := &env{cfg: cfg, logger: logg, db: db}
	if cfg.Storage.Enabled {
		client, err := storage.NewClient(cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		e.storage = client
	}
	return e, nil
}

// pipeline assembles the sync pipeline from the environment.
func (e *env) pipeline(ctx context.Context) (*ugc.Pipeline, error) {
	supplier, err := credentials.NewSupplier(e.cfg.Credentials, e.db)
	if err != nil {
		return nil, err
	}

	return ugc.Build(ctx, ugc.Deps{
		DB:        e.db,
		Supplier:  supplier,
		UserID:    e.cfg.Credentials.UserID,
		Storage:   e.storage,
		Bucket:    e.cfg.Storage.Bucket,
		Waypoint:  e.cfg.Waypoint,
		Sync:      e.cfg.Sync,
		Reconcile: e.cfg.Reconcile,
		UGC:       e.cfg.UGC,
		Logger:    e.logger,
	})
}

// close releases the database connection and flushes the logger.
func (e *env) close() {
	if sqlDB, err := e.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = e.logger.Sync()
}

// ensureBucket creates the report bucket when storage is enabled.
func (e *env) ensureBucket(ctx context.Context) error {
	if e.storage == nil {
		return nil
	}
	if err := storage.EnsureBucket(ctx, e.storage, e.cfg.Storage.Bucket, e.cfg.Storage.Region); err != nil {
		return err
	}
	e.logger.Debug("Bucket ready", zap.String("bucket", e.cfg.Storage.Bucket))
	return nil
}
