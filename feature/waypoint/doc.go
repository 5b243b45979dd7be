// Package waypoint is the typed client of the Halo Waypoint UGC endpoints:
// search, per-kind detail, bulk identity, appearance, emblem metadata, the
// curated recommended project and the public existence probe.
package waypoint
