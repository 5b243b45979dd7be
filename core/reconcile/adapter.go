package reconcile

import "context"

// Adapter defines the model-specific side of a reconciliation.
// Each adapter knows how to list what the local store holds, what the
// upstream listing currently publishes, and how to confirm that a single
// entity is really gone.
type Adapter interface {
	// Name returns the unique name of this adapter (e.g., "Map", "Prefab").
	Name() string

	// LoadStoreSet returns the keys held by the local store.
	LoadStoreSet(ctx context.Context) (map[string]struct{}, error)

	// LoadUpstreamSet walks the complete upstream listing and returns every key it reports.
	// Any failure must be returned; a partial set would turn live entities into candidates.
	LoadUpstreamSet(ctx context.Context) (map[string]struct{}, error)

	// Verify probes a single candidate. A non-nil error means the probe was inconclusive
	// and the candidate is kept.
	Verify(ctx context.Context, key string) (Verdict, error)
}

// Mutator is implemented by adapters that can apply planned deletions.
type Mutator interface {
	Adapter

	// DeleteBatch removes the given keys from the local store.
	DeleteBatch(ctx context.Context, keys []string) error
}
