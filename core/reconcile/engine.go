package reconcile

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
)

// loadSets loads the store set, then the upstream set.
func loadSets(ctx context.Context, adapter Adapter) (store, upstream map[string]struct{}, err error) {
	store, err = adapter.LoadStoreSet(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load store set: %w", err)
	}
	upstream, err = adapter.LoadUpstreamSet(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load upstream set: %w", err)
	}
	return store, upstream, nil
}

// candidates returns the sorted keys held in store but absent upstream.
func candidates(store, upstream map[string]struct{}) []string {
	out := make([]string, 0)
	for key := range store {
		if _, ok := upstream[key]; !ok {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

// verify probes keys in batches of spec.BatchSize, pausing spec.BatchDelay
// between batches. Results keep the order of keys.
func verify(ctx context.Context, spec *Spec, keys []string) ([]ReconcileResult, error) {
	results := make([]ReconcileResult, len(keys))
	size := spec.batchSize()
	for start := 0; start < len(keys); start += size {
		if start > 0 && spec.BatchDelay > 0 {
			if err := spec.clock().Sleep(ctx, spec.BatchDelay); err != nil {
				return nil, err
			}
		}
		end := min(start+size, len(keys))

		var g errgroup.Group
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				verdict, err := spec.Adapter.Verify(ctx, keys[i])
				res := ReconcileResult{ID: keys[i], Verdict: verdict}
				if err != nil {
					res.Verdict = VerdictUnverified
					res.Error = err.Error()
				} else if verdict != VerdictGone && verdict != VerdictExists {
					res.Verdict = VerdictUnverified
				}
				results[i] = res
				return nil
			})
		}
		_ = g.Wait()

		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return results, nil
}
