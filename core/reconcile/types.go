package reconcile

import (
	"time"

	"waypoint-sync/core/ratelimit"
)

// Verdict is the outcome of an existence probe.
type Verdict string

const (
	// VerdictExists means the upstream entity still answers.
	VerdictExists Verdict = "exists"
	// VerdictGone means the upstream entity was confirmed deleted.
	VerdictGone Verdict = "gone"
	// VerdictUnverified means the probe could not decide; the entity is kept.
	VerdictUnverified Verdict = "unverified"
)

// Default verification settings.
const (
	DefaultBatchSize  = 5
	DefaultBatchDelay = time.Second
)

// ReconcileResult represents the verification outcome for one candidate.
type ReconcileResult struct {
	// ID is the unique identifier for the entity.
	ID string `json:"id"`

	// Verdict is the probe outcome.
	Verdict Verdict `json:"verdict"`

	// Error holds the probe failure for unverified candidates.
	Error string `json:"error,omitempty"`
}

// Spec defines the configuration for a reconciliation operation.
type Spec struct {
	// Adapter provides model-specific reconciliation logic.
	Adapter Adapter

	// BatchSize is the number of probes run concurrently. Defaults to DefaultBatchSize.
	BatchSize int

	// BatchDelay is the pause between probe batches.
	BatchDelay time.Duration

	// Clock paces the batches. Defaults to the real clock.
	Clock ratelimit.Clock
}

func (s *Spec) batchSize() int {
	if s.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return s.BatchSize
}

func (s *Spec) clock() ratelimit.Clock {
	if s.Clock == nil {
		return ratelimit.RealClock()
	}
	return s.Clock
}

// ActionType represents the type of mutation action.
type ActionType string

const (
	// ActionDelete removes an entity from the local store.
	ActionDelete ActionType = "delete"
)

// Action represents a planned mutation operation.
type Action struct {
	// Type specifies the action to perform.
	Type ActionType `json:"type"`

	// Key is the entity identifier.
	Key string `json:"key"`

	// Reason explains why this action is needed.
	Reason string `json:"reason"`
}

// ReconcilePlan contains verification results and planned actions.
type ReconcilePlan struct {
	// Adapter is the name of the adapter that produced the plan.
	Adapter string `json:"adapter"`

	// Results contains one entry per verified candidate.
	Results []ReconcileResult `json:"results"`

	// Actions contains planned mutation operations.
	Actions []Action `json:"actions"`

	// Summary provides aggregate counts.
	Summary PlanSummary `json:"summary"`
}

// Keys returns the keys of all actions of the given type.
func (p *ReconcilePlan) Keys(t ActionType) []string {
	var keys []string
	for _, a := range p.Actions {
		if a.Type == t {
			keys = append(keys, a.Key)
		}
	}
	return keys
}

// PlanSummary provides aggregate statistics for a reconcile plan.
type PlanSummary struct {
	// StoreItems is the number of entities held locally.
	StoreItems int `json:"store_items"`

	// UpstreamItems is the number of entities in the upstream listing.
	UpstreamItems int `json:"upstream_items"`

	// Candidates counts local entities missing from the upstream listing.
	Candidates int `json:"candidates"`

	Gone       int `json:"gone"`
	Exists     int `json:"exists"`
	Unverified int `json:"unverified"`

	// DeleteActions counts planned deletions.
	DeleteActions int `json:"delete_actions"`
}

// ReconcileOptions controls whether a plan is applied.
type ReconcileOptions struct {
	// DryRun prevents execution of any mutations if true.
	DryRun bool

	// Confirmed indicates user has confirmed destructive actions.
	// If false, mutations will not execute regardless of DryRun.
	Confirmed bool
}
