package integrity

import (
	"context"
	"errors"

	"waypoint-sync/core/storage"
	"waypoint-sync/feature/integrity/checks"
	"waypoint-sync/feature/ugc/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrNoStorage is returned by bucket checks when object storage is disabled.
	ErrNoStorage = errors.New("object storage is not configured")
	// ErrNoDatabase is returned by the schema check without a connection.
	ErrNoDatabase = errors.New("database is not configured")
)

// Options selects what the bucket checks look for.
type Options struct {
	Bucket         string
	Folders        []string
	SkipListObject string
}

// Service handles integrity checks.
type Service struct {
	client storage.Client
	db     *gorm.DB
	opts   Options
	logger *zap.Logger
}

// NewService creates a new integrity service. client and db may be nil; the
// checks that need them then fail with ErrNoStorage or ErrNoDatabase.
func NewService(client storage.Client, db *gorm.DB, opts Options, logger *zap.Logger) *Service {
	return &Service{
		client: client,
		db:     db,
		opts:   opts,
		logger: logger,
	}
}

// CheckStructure returns a list of missing folders.
func (s *Service) CheckStructure(ctx context.Context) ([]string, error) {
	if s.client == nil {
		return nil, ErrNoStorage
	}
	return checks.CheckStructure(ctx, s.client, s.opts.Bucket, s.opts.Folders)
}

// FixStructure creates the missing folders.
func (s *Service) FixStructure(ctx context.Context, missing []string) error {
	if s.client == nil {
		return ErrNoStorage
	}
	return checks.FixStructure(ctx, s.client, s.opts.Bucket, s.logger, missing)
}

// CheckSkipList reports whether the skip list object is present and readable.
func (s *Service) CheckSkipList(ctx context.Context) (*checks.SkipListReport, error) {
	if s.client == nil {
		return nil, ErrNoStorage
	}
	return checks.CheckSkipList(ctx, s.client, s.opts.Bucket, s.opts.SkipListObject)
}

// CheckSchema compares the database against the sync's models.
func (s *Service) CheckSchema() (*checks.SchemaReport, error) {
	if s.db == nil {
		return nil, ErrNoDatabase
	}
	return checks.CheckSchema(s.db, models.All()...)
}
