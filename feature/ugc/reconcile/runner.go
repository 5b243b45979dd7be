package reconcile

import (
	"context"
	"fmt"
	"time"

	"waypoint-sync/core/metrics"
	"waypoint-sync/core/ratelimit"
	"waypoint-sync/core/reconcile"
	ugcsync "waypoint-sync/feature/ugc/sync"
	"waypoint-sync/feature/waypoint"

	"go.uber.org/zap"
)

// Runner reconciles one asset kind at a time.
type Runner struct {
	cfg     Config
	auth    ugcsync.Authenticator
	pager   *ugcsync.Pager
	prober  Prober
	store   Store
	limiter *ratelimit.Limiter
	profile ratelimit.Profile
	clock   ratelimit.Clock
	logger  *zap.Logger
}

// NewRunner creates a runner sharing the sync pager and limiter. auth may be
// nil when the pager's client already holds tokens. Every reconcile starts
// the limiter afresh on profile.
func NewRunner(cfg Config, auth ugcsync.Authenticator, pager *ugcsync.Pager, prober Prober, store Store, limiter *ratelimit.Limiter, profile ratelimit.Profile, logger *zap.Logger) *Runner {
	return &Runner{
		cfg:     cfg,
		auth:    auth,
		pager:   pager,
		prober:  prober,
		store:   store,
		limiter: limiter,
		profile: profile,
		clock:   limiter.Clock(),
		logger:  logger,
	}
}

// Reconcile plans deletions for kind and applies them when opts allow.
func (r *Runner) Reconcile(ctx context.Context, kind waypoint.AssetKind, opts reconcile.ReconcileOptions) (*reconcile.ReconcilePlan, int, error) {
	if r.auth != nil {
		if err := r.auth.Authenticate(ctx); err != nil {
			return nil, 0, fmt.Errorf("authenticate: %w", err)
		}
	}

	r.limiter.SetProfile(r.profile)
	r.limiter.Reset()

	began := time.Now()
	plan, executed, err := reconcile.ReconcileAndApply(ctx, r.Spec(kind), opts)

	outcome := "completed"
	if err != nil {
		outcome = "failed"
	}
	metrics.PhaseDuration.WithLabelValues("reconcile:"+kind.String(), outcome).Observe(time.Since(began).Seconds())

	if err != nil {
		r.logger.Error("Reconciliation failed", zap.String("kind", kind.String()), zap.Error(err))
		return nil, 0, err
	}
	r.logger.Info("Reconciliation finished",
		zap.String("kind", kind.String()),
		zap.Int("candidates", plan.Summary.Candidates),
		zap.Int("gone", plan.Summary.Gone),
		zap.Int("unverified", plan.Summary.Unverified),
		zap.Int("deleted", executed),
		zap.Bool("dry_run", opts.DryRun))
	return plan, executed, nil
}

// Spec returns the engine spec reconciling kind.
func (r *Runner) Spec(kind waypoint.AssetKind) *reconcile.Spec {
	return r.cfg.Spec(NewAdapter(kind, r.pager, r.prober, r.store, r.logger), r.clock)
}
