package waypoint

import "time"

// Timestamp is the wrapped date object used across the Waypoint API.
type Timestamp struct {
	ISO8601Date time.Time `json:"ISO8601Date"`
}

// SearchPage is one page of the search endpoint.
type SearchPage struct {
	EstimatedTotal int            `json:"EstimatedTotal"`
	ResultCount    int            `json:"ResultCount"`
	Results        []AssetSummary `json:"Results"`
}

// AssetSummary is a listing record of the search endpoint.
type AssetSummary struct {
	AssetID          string    `json:"AssetId"`
	AssetVersionID   string    `json:"AssetVersionId"`
	Name             string    `json:"Name"`
	AssetKind        AssetKind `json:"AssetKind"`
	ThumbnailURL     string    `json:"ThumbnailUrl"`
	Favorites        int       `json:"Favorites"`
	Likes            int       `json:"Likes"`
	Bookmarks        int       `json:"Bookmarks"`
	PlaysRecent      int       `json:"PlaysRecent"`
	PlaysAllTime     int       `json:"PlaysAllTime"`
	AverageRating    float64   `json:"AverageRating"`
	NumberOfRatings  int       `json:"NumberOfRatings"`
	NumberOfObjects  *int      `json:"NumberOfObjects"`
	ReadOnlyClones   bool      `json:"ReadOnlyClones"`
	HasNodeGraph     bool      `json:"HasNodeGraph"`
	DateCreatedUtc   Timestamp `json:"DateCreatedUtc"`
	DateModifiedUtc  Timestamp `json:"DateModifiedUtc"`
	DatePublishedUtc Timestamp `json:"DatePublishedUtc"`
}

// Stats are the live counters of an asset.
type Stats struct {
	Favorites       int     `json:"Favorites"`
	Likes           int     `json:"Likes"`
	Bookmarks       int     `json:"Bookmarks"`
	PlaysRecent     int     `json:"PlaysRecent"`
	PlaysAllTime    int     `json:"PlaysAllTime"`
	AverageRating   float64 `json:"AverageRating"`
	NumberOfRatings int     `json:"NumberOfRatings"`
}

// Stats returns the counters carried by a listing record.
func (s AssetSummary) Stats() Stats {
	return Stats{
		Favorites:       s.Favorites,
		Likes:           s.Likes,
		Bookmarks:       s.Bookmarks,
		PlaysRecent:     s.PlaysRecent,
		PlaysAllTime:    s.PlaysAllTime,
		AverageRating:   s.AverageRating,
		NumberOfRatings: s.NumberOfRatings,
	}
}

// Files is the file manifest of an asset version.
type Files struct {
	Prefix            string   `json:"Prefix"`
	FileRelativePaths []string `json:"FileRelativePaths"`
}

// AssetDetail is the full record of one asset.
type AssetDetail struct {
	AssetID       string   `json:"AssetId"`
	VersionID     string   `json:"VersionId"`
	VersionNumber int      `json:"VersionNumber"`
	PublicName    string   `json:"PublicName"`
	Description   string   `json:"Description"`
	Files         Files    `json:"Files"`
	Contributors  []string `json:"Contributors"`
	AssetStats    Stats    `json:"AssetStats"`
	Tags          []string `json:"Tags"`
	CustomData    struct {
		NumOfObjects int  `json:"NumOfObjects"`
		HasNodeGraph bool `json:"HasNodeGraph"`
	} `json:"CustomData"`
	Admin string `json:"Admin"`
}

// User is one entry of the bulk identity endpoint.
type User struct {
	Xuid     string `json:"xuid"`
	Gamertag string `json:"gamertag"`
	Gamerpic struct {
		Small  string `json:"small"`
		Medium string `json:"medium"`
		Large  string `json:"large"`
		XLarge string `json:"xlarge"`
	} `json:"gamerpic"`
}

// Appearance is the cosmetic profile of one player.
type Appearance struct {
	ServiceTag string `json:"ServiceTag"`
	Emblem     struct {
		EmblemPath      string `json:"EmblemPath"`
		ConfigurationID int64  `json:"ConfigurationId"`
	} `json:"Emblem"`
}

type appearanceResponse struct {
	Appearance Appearance `json:"Appearance"`
}

// Emblem is the emblem metadata resolved from an emblem reference path.
type Emblem struct {
	CommonData struct {
		DisplayPath struct {
			Media struct {
				MediaURL struct {
					Path string `json:"Path"`
				} `json:"MediaUrl"`
			} `json:"Media"`
		} `json:"DisplayPath"`
	} `json:"CommonData"`
}

// DisplayPath returns the media path of the emblem image.
func (e Emblem) DisplayPath() string {
	return e.CommonData.DisplayPath.Media.MediaURL.Path
}

// Link references a featured asset.
type Link struct {
	AssetID string `json:"AssetId"`
	Name    string `json:"PublicName"`
}

// Project is the curated project of the recommended feed.
type Project struct {
	AssetID             string `json:"AssetId"`
	MapLinks            []Link `json:"MapLinks"`
	PlaylistLinks       []Link `json:"PlaylistLinks"`
	UgcGameVariantLinks []Link `json:"UgcGameVariantLinks"`
}

// AssetIDs returns every referenced asset ID, deduplicated.
func (p Project) AssetIDs() []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, links := range [][]Link{p.MapLinks, p.PlaylistLinks, p.UgcGameVariantLinks} {
		for _, l := range links {
			if l.AssetID == "" {
				continue
			}
			if _, ok := seen[l.AssetID]; ok {
				continue
			}
			seen[l.AssetID] = struct{}{}
			ids = append(ids, l.AssetID)
		}
	}
	return ids
}

// ProbeResult is the outcome of an existence probe.
type ProbeResult int

const (
	// ProbeUnverified means the probe could not decide; the asset must be kept.
	ProbeUnverified ProbeResult = iota
	ProbeExists
	ProbeGone
)

func (r ProbeResult) String() string {
	switch r {
	case ProbeExists:
		return "exists"
	case ProbeGone:
		return "gone"
	default:
		return "unverified"
	}
}
