package models

import (
	"time"

	"waypoint-sync/feature/waypoint"

	"gorm.io/datatypes"
)

// FileManifest locates the files of one asset version.
type FileManifest struct {
	Prefix            string   `json:"prefix"`
	FileRelativePaths []string `json:"fileRelativePaths"`
}

// UgcAsset is the persisted merge of an asset's listing and detail records.
// Upstream dates use their own columns; the row carries no gorm auto timestamps
// so re-applying the same upstream state leaves it unchanged.
type UgcAsset struct {
	AssetID          string                           `gorm:"column:asset_id;primaryKey;size:64" json:"asset_id"`
	AssetKind        waypoint.AssetKind               `gorm:"column:asset_kind;not null;index" json:"asset_kind"`
	VersionID        string                           `gorm:"column:version_id;size:64" json:"version_id"`
	Version          int                              `gorm:"column:version" json:"version"`
	Name             string                           `gorm:"column:name;size:255" json:"name"`
	Description      string                           `gorm:"column:description;type:text" json:"description"`
	ThumbnailURL     string                           `gorm:"column:thumbnail_url;type:text" json:"thumbnail_url"`
	Favorites        int                              `gorm:"column:favorites" json:"favorites"`
	Likes            int                              `gorm:"column:likes" json:"likes"`
	Bookmarks        int                              `gorm:"column:bookmarks" json:"bookmarks"`
	PlaysRecent      int                              `gorm:"column:plays_recent" json:"plays_recent"`
	PlaysAllTime     int                              `gorm:"column:plays_all_time" json:"plays_all_time"`
	AverageRating    float64                          `gorm:"column:average_rating" json:"average_rating"`
	NumberOfRatings  int                              `gorm:"column:number_of_ratings" json:"number_of_ratings"`
	NumberOfObjects  *int                             `gorm:"column:number_of_objects" json:"number_of_objects,omitempty"`
	HasNodeGraph     bool                             `gorm:"column:has_node_graph" json:"has_node_graph"`
	ReadOnlyClones   bool                             `gorm:"column:read_only_clones" json:"read_only_clones"`
	DateCreatedUtc   time.Time                        `gorm:"column:date_created_utc" json:"date_created_utc"`
	DateModifiedUtc  time.Time                        `gorm:"column:date_modified_utc" json:"date_modified_utc"`
	DatePublishedUtc time.Time                        `gorm:"column:date_published_utc;index" json:"date_published_utc"`
	Files            datatypes.JSONType[FileManifest] `gorm:"column:files" json:"files"`
	Recommended      bool                             `gorm:"column:recommended;not null;default:false;index" json:"recommended"`
	AuthorID         string                           `gorm:"column:author_id;size:32;index" json:"author_id"`

	Contributors []Contributor `gorm:"many2many:ugc_asset_contributors;joinForeignKey:AssetID;joinReferences:Xuid" json:"contributors,omitempty"`
	Tags         []Tag         `gorm:"many2many:ugc_asset_tags;joinForeignKey:AssetID;joinReferences:TagName" json:"tags,omitempty"`
}

// TableName overrides the table name.
func (UgcAsset) TableName() string {
	return "ugc_assets"
}

// Contributor is a user credited on one or more assets.
type Contributor struct {
	Xuid       string `gorm:"column:xuid;primaryKey;size:32" json:"xuid"`
	Gamertag   string `gorm:"column:gamertag;size:64" json:"gamertag"`
	ServiceTag string `gorm:"column:service_tag;size:16" json:"service_tag"`
	EmblemPath string `gorm:"column:emblem_path;size:255" json:"emblem_path"`
}

// TableName overrides the table name.
func (Contributor) TableName() string {
	return "contributors"
}

// Tag is a normalized label.
type Tag struct {
	Name string `gorm:"column:name;primaryKey;size:191" json:"name"`
}

// TableName overrides the table name.
func (Tag) TableName() string {
	return "tags"
}

// AssetContributor is a row of the asset/contributor join table.
type AssetContributor struct {
	AssetID string `gorm:"column:asset_id;primaryKey;size:64"`
	Xuid    string `gorm:"column:xuid;primaryKey;size:32"`
}

// TableName overrides the table name.
func (AssetContributor) TableName() string {
	return "ugc_asset_contributors"
}

// AssetTag is a row of the asset/tag join table.
type AssetTag struct {
	AssetID string `gorm:"column:asset_id;primaryKey;size:64"`
	TagName string `gorm:"column:tag_name;primaryKey;size:191"`
}

// TableName overrides the table name.
func (AssetTag) TableName() string {
	return "ugc_asset_tags"
}

// WaypointSyncWatermark records the time through which one kind is fully ingested.
type WaypointSyncWatermark struct {
	AssetKind waypoint.AssetKind `gorm:"column:asset_kind;primaryKey;autoIncrement:false" json:"asset_kind"`
	SyncedAt  time.Time          `gorm:"column:synced_at;not null" json:"synced_at"`
}

// TableName overrides the table name.
func (WaypointSyncWatermark) TableName() string {
	return "waypoint_sync_watermarks"
}

// All returns every model owned by the sync, in migration order.
func All() []any {
	return []any{
		&Contributor{},
		&Tag{},
		&UgcAsset{},
		&AssetContributor{},
		&AssetTag{},
		&WaypointSyncWatermark{},
	}
}
