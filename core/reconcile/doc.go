// Package reconcile provides a generic plan/apply engine for removing local
// entities that no longer exist upstream.
//
// A reconciliation compares two sets of keys:
//
//  1. The store set: every entity held locally.
//  2. The upstream set: every entity reported by a complete walk of the
//     upstream listing.
//
// Keys in the store set but not the upstream set are candidates. Absence
// from a listing is never enough to delete: each candidate is verified by an
// adapter-specific existence probe, run in small concurrent batches with a
// pause between batches. Only candidates the probe reports as gone are
// planned for deletion. A probe that fails or answers ambiguously leaves the
// candidate unverified and it is kept.
//
// # Usage Example
//
//	spec := &reconcile.Spec{
//	    Adapter:    adapter,
//	    BatchSize:  5,
//	    BatchDelay: time.Second,
//	}
//
//	plan, err := reconcile.ReconcileWithPlan(ctx, spec)
//	executed, err := reconcile.ApplyPlan(ctx, spec, plan, reconcile.ReconcileOptions{Confirmed: true})
//
// # Creating Adapters
//
// Implement Adapter for loading and probing, and Mutator to allow ApplyPlan
// to delete. See feature/ugc/reconcile for the UGC asset adapter.
package reconcile
