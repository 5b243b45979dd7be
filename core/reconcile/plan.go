package reconcile

import (
	"context"
	"fmt"
)

// ReconcileWithPlan performs reconciliation and returns a plan with results and actions.
// It does NOT execute actions; use ApplyPlan for that.
// Only candidates whose probe reports gone are planned for deletion.
func ReconcileWithPlan(ctx context.Context, spec *Spec) (*ReconcilePlan, error) {
	store, upstream, err := loadSets(ctx, spec.Adapter)
	if err != nil {
		return nil, err
	}

	keys := candidates(store, upstream)
	results, err := verify(ctx, spec, keys)
	if err != nil {
		return nil, err
	}

	plan := &ReconcilePlan{
		Adapter: spec.Adapter.Name(),
		Results: results,
		Actions: make([]Action, 0),
		Summary: PlanSummary{
			StoreItems:    len(store),
			UpstreamItems: len(upstream),
			Candidates:    len(keys),
		},
	}
	for _, res := range results {
		switch res.Verdict {
		case VerdictGone:
			plan.Summary.Gone++
			plan.Actions = append(plan.Actions, Action{
				Type:   ActionDelete,
				Key:    res.ID,
				Reason: "missing from upstream listing and probe reports gone",
			})
		case VerdictExists:
			plan.Summary.Exists++
		default:
			plan.Summary.Unverified++
		}
	}
	plan.Summary.DeleteActions = len(plan.Actions)
	return plan, nil
}

// ApplyPlan executes the actions in a reconcile plan.
// Returns the number of actions executed and any error encountered.
// Requires opts.Confirmed=true and opts.DryRun=false to actually execute.
func ApplyPlan(ctx context.Context, spec *Spec, plan *ReconcilePlan, opts ReconcileOptions) (executed int, err error) {
	if !opts.Confirmed || opts.DryRun {
		return 0, nil
	}

	keys := plan.Keys(ActionDelete)
	if len(keys) == 0 {
		return 0, nil
	}

	mutator, ok := spec.Adapter.(Mutator)
	if !ok {
		return 0, fmt.Errorf("adapter %s does not implement Mutator interface", spec.Adapter.Name())
	}
	if err := mutator.DeleteBatch(ctx, keys); err != nil {
		return 0, fmt.Errorf("failed to batch delete keys: %w", err)
	}
	return len(keys), nil
}

// ReconcileAndApply is a convenience wrapper that plans and optionally applies actions.
// It returns the plan, number of actions executed, and any error.
func ReconcileAndApply(ctx context.Context, spec *Spec, opts ReconcileOptions) (*ReconcilePlan, int, error) {
	plan, err := ReconcileWithPlan(ctx, spec)
	if err != nil {
		return nil, 0, err
	}

	executed, err := ApplyPlan(ctx, spec, plan, opts)
	return plan, executed, err
}
