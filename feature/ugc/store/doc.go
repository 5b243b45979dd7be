// Package store persists enriched UGC assets, their contributors and tags,
// and the per-kind sync watermarks.
//
// Every write is an idempotent upsert keyed by the natural identifier
// (asset ID, xuid, tag name, asset kind) so repeating an ingest with the same
// upstream state leaves the tables unchanged.
package store
