package waypoint

import (
	"fmt"
	"strings"
)

// AssetKind is the upstream asset kind, shared by ingestion and reconciliation.
// Values match the numeric kinds returned by the search endpoint.
type AssetKind int

const (
	KindMap    AssetKind = 2
	KindPrefab AssetKind = 4
	KindMode   AssetKind = 6
)

// Kinds lists the kinds in sync order.
var Kinds = []AssetKind{KindMap, KindPrefab, KindMode}

// String returns the name used by the search filter.
func (k AssetKind) String() string {
	switch k {
	case KindMap:
		return "Map"
	case KindPrefab:
		return "Prefab"
	case KindMode:
		return "UgcGameVariant"
	default:
		return fmt.Sprintf("AssetKind(%d)", int(k))
	}
}

// Valid reports whether k is a known kind.
func (k AssetKind) Valid() bool {
	return k == KindMap || k == KindPrefab || k == KindMode
}

// DetailPath is the path segment of the authenticated detail endpoint.
func (k AssetKind) DetailPath() string {
	switch k {
	case KindPrefab:
		return "prefabs"
	case KindMode:
		return "ugcGameVariants"
	default:
		return "maps"
	}
}

// BrowsePath is the path segment of the public browse page.
func (k AssetKind) BrowsePath() string {
	switch k {
	case KindPrefab:
		return "prefabs"
	case KindMode:
		return "modes"
	default:
		return "maps"
	}
}

// ParseAssetKind accepts map, prefab, mode or ugcgamevariant, case-insensitively.
func ParseAssetKind(s string) (AssetKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "map", "maps":
		return KindMap, nil
	case "prefab", "prefabs":
		return KindPrefab, nil
	case "mode", "modes", "ugcgamevariant":
		return KindMode, nil
	}
	return 0, fmt.Errorf("unknown asset kind %q", s)
}
