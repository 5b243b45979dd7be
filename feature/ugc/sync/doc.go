// Package sync is the incremental synchronization engine.
//
// The Pager walks the offset-paginated search listing of one kind and owns
// the one-shot page recovery. The Walker uses it to ingest items newer than
// the kind's watermark, stopping at the first older item. The Orchestrator
// runs the kinds in order (Map, Prefab, Mode), resets the rate limiter
// between phases, switches to a conservative rate profile for large
// backfills and finishes with the recommended-flag sync.
//
// Watermarks only move forward and only after a kind's walk completed, so an
// interrupted run restarts that kind from offset 0 on the next invocation.
package sync
