package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"waypoint-sync/feature/ugc/models"
	"waypoint-sync/feature/waypoint"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrWatermarkNotFound reports a kind without a watermark row.
var ErrWatermarkNotFound = errors.New("watermark not found")

// assetColumns are overwritten on every upsert. recommended is owned by the
// recommended sync and never touched here.
var assetColumns = []string{
	"asset_kind",
	"version_id",
	"version",
	"name",
	"description",
	"thumbnail_url",
	"favorites",
	"likes",
	"bookmarks",
	"plays_recent",
	"plays_all_time",
	"average_rating",
	"number_of_ratings",
	"number_of_objects",
	"has_node_graph",
	"read_only_clones",
	"date_created_utc",
	"date_modified_utc",
	"date_published_utc",
	"files",
	"author_id",
}

// Record is one enriched asset with the identities and labels it references.
type Record struct {
	Asset        models.UgcAsset
	Contributors []models.Contributor
	Tags         []models.Tag
}

// Store persists UGC assets and sync watermarks.
type Store struct {
	db *gorm.DB
}

// New creates a store.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying connection.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Migrate creates or updates the sync tables.
func (s *Store) Migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if err := db.SetupJoinTable(&models.UgcAsset{}, "Contributors", &models.AssetContributor{}); err != nil {
		return fmt.Errorf("setup contributor join table: %w", err)
	}
	if err := db.SetupJoinTable(&models.UgcAsset{}, "Tags", &models.AssetTag{}); err != nil {
		return fmt.Errorf("setup tag join table: %w", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// Ingest upserts the contributors, the tags and the asset of rec in one
// transaction and replaces the asset's associations.
func (s *Store) Ingest(ctx context.Context, rec *Record) error {
	asset := rec.Asset
	asset.Contributors = nil
	asset.Tags = nil

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(rec.Contributors) > 0 {
			contributors := rec.Contributors
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "xuid"}},
				DoUpdates: clause.AssignmentColumns([]string{"gamertag", "service_tag", "emblem_path"}),
			}).Create(&contributors).Error; err != nil {
				return fmt.Errorf("upsert contributors: %w", err)
			}
		}

		if len(rec.Tags) > 0 {
			tags := rec.Tags
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&tags).Error; err != nil {
				return fmt.Errorf("upsert tags: %w", err)
			}
		}

		if err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "asset_id"}},
			DoUpdates: clause.AssignmentColumns(assetColumns),
		}).Create(&asset).Error; err != nil {
			return fmt.Errorf("upsert asset: %w", err)
		}

		if err := tx.Where("asset_id = ?", asset.AssetID).Delete(&models.AssetContributor{}).Error; err != nil {
			return fmt.Errorf("clear contributor links: %w", err)
		}
		if len(rec.Contributors) > 0 {
			links := make([]models.AssetContributor, 0, len(rec.Contributors))
			for _, c := range rec.Contributors {
				links = append(links, models.AssetContributor{AssetID: asset.AssetID, Xuid: c.Xuid})
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error; err != nil {
				return fmt.Errorf("link contributors: %w", err)
			}
		}

		if err := tx.Where("asset_id = ?", asset.AssetID).Delete(&models.AssetTag{}).Error; err != nil {
			return fmt.Errorf("clear tag links: %w", err)
		}
		if len(rec.Tags) > 0 {
			links := make([]models.AssetTag, 0, len(rec.Tags))
			for _, t := range rec.Tags {
				links = append(links, models.AssetTag{AssetID: asset.AssetID, TagName: t.Name})
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error; err != nil {
				return fmt.Errorf("link tags: %w", err)
			}
		}
		return nil
	})
}

// FindAsset loads one asset with its contributors and tags.
func (s *Store) FindAsset(ctx context.Context, assetID string) (*models.UgcAsset, error) {
	var asset models.UgcAsset
	err := s.db.WithContext(ctx).
		Preload("Contributors", func(db *gorm.DB) *gorm.DB { return db.Order("xuid") }).
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("name") }).
		First(&asset, "asset_id = ?", assetID).Error
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

// CountAssets counts the stored assets of one kind.
func (s *Store) CountAssets(ctx context.Context, kind waypoint.AssetKind) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.UgcAsset{}).Where("asset_kind = ?", kind).Count(&n).Error
	return n, err
}

// AssetIDs returns the IDs of every stored asset of one kind.
func (s *Store) AssetIDs(ctx context.Context, kind waypoint.AssetKind) ([]string, error) {
	var ids []string
	if err := s.db.WithContext(ctx).Model(&models.UgcAsset{}).
		Where("asset_kind = ?", kind).
		Order("asset_id").
		Pluck("asset_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list asset ids: %w", err)
	}
	return ids, nil
}

// UpdateStats refreshes the live counters of an asset. Absent assets are ignored.
func (s *Store) UpdateStats(ctx context.Context, assetID string, stats waypoint.Stats) error {
	err := s.db.WithContext(ctx).Model(&models.UgcAsset{}).
		Where("asset_id = ?", assetID).
		Updates(map[string]any{
			"favorites":         stats.Favorites,
			"likes":             stats.Likes,
			"bookmarks":         stats.Bookmarks,
			"plays_recent":      stats.PlaysRecent,
			"plays_all_time":    stats.PlaysAllTime,
			"average_rating":    stats.AverageRating,
			"number_of_ratings": stats.NumberOfRatings,
		}).Error
	if err != nil {
		return fmt.Errorf("update stats of %s: %w", assetID, err)
	}
	return nil
}

// SetRecommended flags exactly the given assets as recommended and clears the
// flag everywhere else.
func (s *Store) SetRecommended(ctx context.Context, assetIDs []string) (int64, error) {
	var flagged int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reset := tx.Model(&models.UgcAsset{}).Where("recommended = ?", true)
		if len(assetIDs) > 0 {
			reset = reset.Where("asset_id NOT IN ?", assetIDs)
		}
		if err := reset.Update("recommended", false).Error; err != nil {
			return fmt.Errorf("clear recommended: %w", err)
		}
		if len(assetIDs) == 0 {
			return nil
		}
		res := tx.Model(&models.UgcAsset{}).Where("asset_id IN ?", assetIDs).Update("recommended", true)
		if res.Error != nil {
			return fmt.Errorf("set recommended: %w", res.Error)
		}
		flagged = res.RowsAffected
		return nil
	})
	return flagged, err
}

// DeleteAssets removes assets and their association rows.
func (s *Store) DeleteAssets(ctx context.Context, assetIDs []string) (int64, error) {
	if len(assetIDs) == 0 {
		return 0, nil
	}
	var deleted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("asset_id IN ?", assetIDs).Delete(&models.AssetContributor{}).Error; err != nil {
			return fmt.Errorf("delete contributor links: %w", err)
		}
		if err := tx.Where("asset_id IN ?", assetIDs).Delete(&models.AssetTag{}).Error; err != nil {
			return fmt.Errorf("delete tag links: %w", err)
		}
		res := tx.Where("asset_id IN ?", assetIDs).Delete(&models.UgcAsset{})
		if res.Error != nil {
			return fmt.Errorf("delete assets: %w", res.Error)
		}
		deleted = res.RowsAffected
		return nil
	})
	return deleted, err
}

// GetWatermark returns the synced-at time of one kind.
func (s *Store) GetWatermark(ctx context.Context, kind waypoint.AssetKind) (time.Time, error) {
	var wm models.WaypointSyncWatermark
	err := s.db.WithContext(ctx).First(&wm, "asset_kind = ?", kind).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, fmt.Errorf("%s: %w", kind, ErrWatermarkNotFound)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read watermark of %s: %w", kind, err)
	}
	return wm.SyncedAt, nil
}

// AdvanceWatermark moves the watermark of one kind forward to at.
// It never moves it backwards and reports whether the row changed.
func (s *Store) AdvanceWatermark(ctx context.Context, kind waypoint.AssetKind, at time.Time) (bool, error) {
	at = at.UTC()
	res := s.db.WithContext(ctx).Model(&models.WaypointSyncWatermark{}).
		Where("asset_kind = ? AND synced_at < ?", kind, at).
		Update("synced_at", at)
	if res.Error != nil {
		return false, fmt.Errorf("advance watermark of %s: %w", kind, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// SeedWatermarks creates missing watermark rows at the given time and returns
// how many were created. Existing rows are left alone.
func (s *Store) SeedWatermarks(ctx context.Context, at time.Time, kinds ...waypoint.AssetKind) (int64, error) {
	if len(kinds) == 0 {
		return 0, nil
	}
	rows := make([]models.WaypointSyncWatermark, 0, len(kinds))
	for _, k := range kinds {
		rows = append(rows, models.WaypointSyncWatermark{AssetKind: k, SyncedAt: at.UTC()})
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
	if res.Error != nil {
		return 0, fmt.Errorf("seed watermarks: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Watermarks returns every watermark row.
func (s *Store) Watermarks(ctx context.Context) ([]models.WaypointSyncWatermark, error) {
	var rows []models.WaypointSyncWatermark
	if err := s.db.WithContext(ctx).Order("asset_kind").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list watermarks: %w", err)
	}
	return rows, nil
}
