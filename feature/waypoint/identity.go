package waypoint

import (
	"strings"
)

const (
	// FallbackEmblem is stored when no emblem could be resolved.
	FallbackEmblem = "emblems/default.png"

	emblemPrefix = "progression/inventory/"
)

// IsUserID reports whether id is an addressable user identifier, xuid(<digits>).
func IsUserID(id string) bool {
	raw, ok := strings.CutPrefix(id, "xuid(")
	if !ok {
		return false
	}
	raw, ok = strings.CutSuffix(raw, ")")
	return ok && isDigits(raw)
}

// RawXUID strips the xuid(...) wrapper. Other identifiers are returned unchanged.
func RawXUID(id string) string {
	if !IsUserID(id) {
		return id
	}
	return id[len("xuid(") : len(id)-1]
}

// NormalizeEmblemPath strips the inventory prefix, falls back to the default
// emblem when empty and lower-cases the result.
func NormalizeEmblemPath(path string) string {
	p := strings.ToLower(strings.TrimSpace(path))
	p = strings.TrimPrefix(p, "/")
	p = strings.TrimPrefix(p, emblemPrefix)
	if p == "" {
		return FallbackEmblem
	}
	return p
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
