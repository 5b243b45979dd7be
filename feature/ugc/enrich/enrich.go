package enrich

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"waypoint-sync/core/metrics"
	"waypoint-sync/feature/ugc/models"
	"waypoint-sync/feature/ugc/skiplist"
	"waypoint-sync/feature/ugc/store"
	"waypoint-sync/feature/waypoint"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Synthetic contributor credited when an asset cannot be fully attributed.
const (
	SystemXuid       = "343"
	SystemGamertag   = "343 Industries"
	SystemServiceTag = "343i"
)

// ErrSkipped reports an asset bypassed through the skip list.
var ErrSkipped = errors.New("asset is skip-listed")

// API is the part of the Waypoint client the enricher calls.
type API interface {
	GetAsset(ctx context.Context, kind waypoint.AssetKind, assetID string) (*waypoint.AssetDetail, error)
	GetUsers(ctx context.Context, xuids []string) ([]waypoint.User, error)
	GetAppearance(ctx context.Context, xuid string) (*waypoint.Appearance, error)
	GetEmblem(ctx context.Context, emblemPath string) (*waypoint.Emblem, error)
}

// Sink persists enriched records.
type Sink interface {
	Ingest(ctx context.Context, rec *store.Record) error
}

// Error wraps a failure with the asset and enrichment step it happened in.
type Error struct {
	AssetID string
	Kind    waypoint.AssetKind
	Step    string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("enrich %s %s (%s): %v", e.Kind, e.AssetID, e.Step, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Enricher turns listing records into persisted assets.
type Enricher struct {
	api    API
	sink   Sink
	skip   *skiplist.List
	logger *zap.Logger
}

// New creates an enricher. A nil skip list skips nothing.
func New(api API, sink Sink, skip *skiplist.List, logger *zap.Logger) *Enricher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{api: api, sink: sink, skip: skip, logger: logger}
}

// Skipped reports whether assetID is on the skip list.
func (e *Enricher) Skipped(assetID string) bool {
	return e.skip.Contains(assetID)
}

// Process enriches one listing record and upserts it.
// Skip-listed assets return ErrSkipped before any upstream call.
func (e *Enricher) Process(ctx context.Context, kind waypoint.AssetKind, summary waypoint.AssetSummary) error {
	if e.Skipped(summary.AssetID) {
		metrics.AssetsSkipped.WithLabelValues(kind.String()).Inc()
		e.logger.Info("Skipping skip-listed asset",
			zap.String("asset_id", summary.AssetID),
			zap.String("kind", kind.String()))
		return ErrSkipped
	}

	rec, err := e.Build(ctx, kind, summary)
	if err != nil {
		return err
	}
	if err := e.sink.Ingest(ctx, rec); err != nil {
		return &Error{AssetID: summary.AssetID, Kind: kind, Step: "store", Err: err}
	}

	metrics.AssetsIngested.WithLabelValues(kind.String()).Inc()
	e.logger.Debug("Asset ingested",
		zap.String("asset_id", summary.AssetID),
		zap.String("kind", kind.String()),
		zap.Int("contributors", len(rec.Contributors)),
		zap.Int("tags", len(rec.Tags)))
	return nil
}

// Build fetches the detail and contributor data of one asset and assembles
// the record to upsert. It does not consult the skip list.
func (e *Enricher) Build(ctx context.Context, kind waypoint.AssetKind, summary waypoint.AssetSummary) (*store.Record, error) {
	fail := func(step string, err error) error {
		return &Error{AssetID: summary.AssetID, Kind: kind, Step: step, Err: err}
	}

	detail, err := e.api.GetAsset(ctx, kind, summary.AssetID)
	if err != nil {
		return nil, fail("detail", err)
	}

	addressable := addressableIDs(detail)
	contributors, err := e.resolveContributors(ctx, addressable, fail)
	if err != nil {
		return nil, err
	}

	if needsSystemContributor(detail, contributors) {
		contributors = append(contributors, SystemContributor())
	}

	tags := NormalizeTags(detail.Tags)
	tagRows := make([]models.Tag, 0, len(tags))
	for _, t := range tags {
		tagRows = append(tagRows, models.Tag{Name: t})
	}

	return &store.Record{
		Asset:        buildAsset(kind, summary, detail),
		Contributors: contributors,
		Tags:         tagRows,
	}, nil
}

func (e *Enricher) resolveContributors(ctx context.Context, ids []string, fail func(string, error) error) ([]models.Contributor, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	raw := make([]string, 0, len(ids))
	for _, id := range ids {
		raw = append(raw, waypoint.RawXUID(id))
	}

	users, err := e.api.GetUsers(ctx, raw)
	if err != nil {
		return nil, fail("users", err)
	}

	contributors := make([]models.Contributor, 0, len(users))
	seen := make(map[string]struct{}, len(users))
	for _, u := range users {
		if _, dup := seen[u.Xuid]; dup || u.Xuid == "" {
			continue
		}
		seen[u.Xuid] = struct{}{}

		appearance, err := e.api.GetAppearance(ctx, u.Xuid)
		if err != nil {
			return nil, fail("appearance", err)
		}

		emblemPath := ""
		if appearance.Emblem.EmblemPath != "" {
			emblem, err := e.api.GetEmblem(ctx, appearance.Emblem.EmblemPath)
			if err != nil {
				return nil, fail("emblem", err)
			}
			emblemPath = emblem.DisplayPath()
		}

		contributors = append(contributors, models.Contributor{
			Xuid:       u.Xuid,
			Gamertag:   u.Gamertag,
			ServiceTag: appearance.ServiceTag,
			EmblemPath: waypoint.NormalizeEmblemPath(emblemPath),
		})
	}
	return contributors, nil
}

// SystemContributor returns the synthetic "343 Industries" contributor.
func SystemContributor() models.Contributor {
	return models.Contributor{
		Xuid:       SystemXuid,
		Gamertag:   SystemGamertag,
		ServiceTag: SystemServiceTag,
		EmblemPath: waypoint.FallbackEmblem,
	}
}

// addressableIDs returns the user-style contributors plus a user-style admin.
func addressableIDs(detail *waypoint.AssetDetail) []string {
	var ids []string
	seen := make(map[string]struct{})
	add := func(id string) {
		if !waypoint.IsUserID(id) {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, id := range detail.Contributors {
		add(id)
	}
	add(detail.Admin)
	return ids
}

func needsSystemContributor(detail *waypoint.AssetDetail, resolved []models.Contributor) bool {
	for _, c := range resolved {
		if c.Xuid == SystemXuid {
			return false
		}
	}
	if len(resolved) < len(detail.Contributors) {
		return true
	}
	if !waypoint.IsUserID(detail.Admin) {
		return true
	}
	admin := waypoint.RawXUID(detail.Admin)
	for _, c := range resolved {
		if n, err := strconv.ParseUint(strings.TrimSpace(c.Gamertag), 10, 64); err == nil && strconv.FormatUint(n, 10) == admin {
			return true
		}
	}
	return false
}

// AuthorID maps the admin identifier to the stored author, "343" for
// non-user owners.
func AuthorID(admin string) string {
	if !waypoint.IsUserID(admin) {
		return SystemXuid
	}
	return waypoint.RawXUID(admin)
}

// NormalizeTags trims, lower-cases and deduplicates tags, keeping first-seen order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func buildAsset(kind waypoint.AssetKind, summary waypoint.AssetSummary, detail *waypoint.AssetDetail) models.UgcAsset {
	paths := detail.Files.FileRelativePaths
	if paths == nil {
		paths = []string{}
	}

	return models.UgcAsset{
		AssetID:          summary.AssetID,
		AssetKind:        kind,
		VersionID:        detail.VersionID,
		Version:          detail.VersionNumber,
		Name:             detail.PublicName,
		Description:      detail.Description,
		ThumbnailURL:     summary.ThumbnailURL,
		Favorites:        detail.AssetStats.Favorites,
		Likes:            detail.AssetStats.Likes,
		Bookmarks:        detail.AssetStats.Bookmarks,
		PlaysRecent:      detail.AssetStats.PlaysRecent,
		PlaysAllTime:     detail.AssetStats.PlaysAllTime,
		AverageRating:    detail.AssetStats.AverageRating,
		NumberOfRatings:  detail.AssetStats.NumberOfRatings,
		NumberOfObjects:  summary.NumberOfObjects,
		HasNodeGraph:     detail.CustomData.HasNodeGraph,
		ReadOnlyClones:   summary.ReadOnlyClones,
		DateCreatedUtc:   summary.DateCreatedUtc.ISO8601Date.UTC(),
		DateModifiedUtc:  summary.DateModifiedUtc.ISO8601Date.UTC(),
		DatePublishedUtc: summary.DatePublishedUtc.ISO8601Date.UTC(),
		Files: datatypes.NewJSONType(models.FileManifest{
			Prefix:            detail.Files.Prefix,
			FileRelativePaths: paths,
		}),
		AuthorID: AuthorID(detail.Admin),
	}
}
