package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	corelog "waypoint-sync/core/logger"
	"waypoint-sync/core/metrics"
	"waypoint-sync/core/ratelimit"
	"waypoint-sync/feature/ugc/store"
	"waypoint-sync/feature/waypoint"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PhaseRecommended names the recommended-flag phase in reports.
const PhaseRecommended = "recommended"

// Authenticator obtains the token pair for a run.
type Authenticator interface {
	Authenticate(ctx context.Context) error
}

// RecommendedSource fetches the curated project.
type RecommendedSource interface {
	GetRecommended(ctx context.Context) (*waypoint.Project, error)
}

// Store is the persistence used by the orchestrator.
type Store interface {
	WatermarkStore
	SetRecommended(ctx context.Context, assetIDs []string) (int64, error)
}

// Options selects what a run covers.
type Options struct {
	// Kinds to sync, in order. Empty means every kind.
	Kinds []waypoint.AssetKind
	// SkipRecommended disables the recommended phase.
	SkipRecommended bool
}

// Orchestrator sequences the per-kind walks and the recommended sync.
type Orchestrator struct {
	cfg         Config
	auth        Authenticator
	limiter     *ratelimit.Limiter
	store       Store
	walker      *Walker
	recommended RecommendedSource
	logger      *zap.Logger
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(cfg Config, auth Authenticator, limiter *ratelimit.Limiter, st Store, walker *Walker, recommended RecommendedSource, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		cfg:         cfg.withDefaults(),
		auth:        auth,
		limiter:     limiter,
		store:       st,
		walker:      walker,
		recommended: recommended,
		logger:      logger,
	}
}

// Run executes one sync run. Missing credentials or watermarks are recorded
// in the report and are not errors. A page that fails after recovery stops
// the run; its error is returned with the report.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*RunReport, error) {
	clock := o.limiter.Clock()
	runStart := clock.Now().UTC()
	report := &RunReport{RunID: uuid.NewString(), StartedAt: runStart}
	logger := corelog.WithRun(o.logger, report.RunID, "sync")
	defer func() { report.FinishedAt = clock.Now().UTC() }()

	if err := o.auth.Authenticate(ctx); err != nil {
		report.Aborted = fmt.Sprintf("credentials unavailable: %v", err)
		logger.Error("Sync aborted, no credentials", zap.Error(err))
		return report, nil
	}

	profile := o.selectProfile(ctx, runStart)
	report.Profile = profile.Name
	o.limiter.SetProfile(profile)
	o.limiter.Reset()
	logger.Info("Sync started", zap.String("profile", profile.Name))

	kinds := opts.Kinds
	if len(kinds) == 0 {
		kinds = waypoint.Kinds
	}

	for i, kind := range kinds {
		if i > 0 {
			if err := o.phaseBoundary(ctx); err != nil {
				return report, err
			}
		}

		phase, err := o.syncKind(ctx, logger, kind, runStart)
		report.Phases = append(report.Phases, phase)
		if err != nil {
			return report, err
		}
	}

	if opts.SkipRecommended {
		return report, nil
	}
	if err := o.phaseBoundary(ctx); err != nil {
		return report, err
	}
	phase, err := o.syncRecommended(ctx, logger)
	report.Phases = append(report.Phases, phase)
	if err != nil {
		return report, err
	}

	logger.Info("Sync finished", zap.Int("phases", len(report.Phases)))
	return report, nil
}

// selectProfile picks the conservative profile when the Map watermark is
// older than the backfill threshold.
func (o *Orchestrator) selectProfile(ctx context.Context, now time.Time) ratelimit.Profile {
	wm, err := o.store.GetWatermark(ctx, waypoint.KindMap)
	if err != nil {
		return o.cfg.DefaultProfile()
	}
	if now.Sub(wm) > o.cfg.BackfillThreshold() {
		o.logger.Info("Map watermark is stale, using conservative rate limits",
			zap.Time("watermark", wm),
			zap.Duration("age", now.Sub(wm)))
		return o.cfg.ConservativeProfile()
	}
	return o.cfg.DefaultProfile()
}

func (o *Orchestrator) phaseBoundary(ctx context.Context) error {
	if err := o.limiter.Clock().Sleep(ctx, o.cfg.PhaseCooldown()); err != nil {
		return err
	}
	o.limiter.Reset()
	return nil
}

func (o *Orchestrator) syncKind(ctx context.Context, logger *zap.Logger, kind waypoint.AssetKind, runStart time.Time) (PhaseReport, error) {
	clock := o.limiter.Clock()
	started := clock.Now()
	phase := PhaseReport{Phase: kind.String()}
	logger = logger.With(zap.String("kind", kind.String()))
	finish := func(outcome Outcome) {
		phase.Outcome = outcome
		elapsed := clock.Now().Sub(started)
		phase.Duration = elapsed.String()
		snap := o.limiter.Snapshot()
		phase.Requests = snap.Consecutive
		phase.RateLimited = snap.RateLimited
		metrics.PhaseDuration.WithLabelValues(phase.Phase, string(outcome)).Observe(elapsed.Seconds())
	}

	watermark, err := o.store.GetWatermark(ctx, kind)
	if errors.Is(err, store.ErrWatermarkNotFound) {
		phase.Reason = "no watermark row for kind"
		logger.Warn("Skipping kind without watermark")
		finish(OutcomeAborted)
		return phase, nil
	}
	if err != nil {
		phase.Error = DescribeError(err)
		finish(OutcomeFailed)
		return phase, err
	}
	phase.WatermarkBefore = &watermark

	res, err := o.walker.Run(ctx, kind, watermark, runStart)
	phase.Pages = res.Pages
	phase.Items = res.Items
	phase.Ingested = res.Ingested
	phase.Skipped = res.Skipped
	if err != nil {
		phase.Error = DescribeError(err)
		logger.Error("Kind sync failed",
			zap.Int("start", res.LastStart),
			zap.Int("ingested", res.Ingested),
			zap.Error(err))
		finish(OutcomeFailed)
		return phase, err
	}

	after := res.Watermark
	phase.WatermarkAfter = &after
	logger.Info("Kind synced",
		zap.Int("pages", res.Pages),
		zap.Int("ingested", res.Ingested),
		zap.Int("skipped", res.Skipped),
		zap.Bool("early_exit", res.EarlyExit))
	if res.EarlyExit {
		finish(OutcomeEarlyExit)
	} else {
		finish(OutcomeCompleted)
	}
	return phase, nil
}

func (o *Orchestrator) syncRecommended(ctx context.Context, logger *zap.Logger) (PhaseReport, error) {
	clock := o.limiter.Clock()
	started := clock.Now()
	phase := PhaseReport{Phase: PhaseRecommended}
	finish := func(outcome Outcome) {
		phase.Outcome = outcome
		elapsed := clock.Now().Sub(started)
		phase.Duration = elapsed.String()
		metrics.PhaseDuration.WithLabelValues(phase.Phase, string(outcome)).Observe(elapsed.Seconds())
	}

	if o.recommended == nil {
		phase.Reason = "no recommended source"
		finish(OutcomeSkipped)
		return phase, nil
	}

	project, err := o.recommended.GetRecommended(ctx)
	if errors.Is(err, waypoint.ErrNoProject) {
		phase.Reason = err.Error()
		finish(OutcomeSkipped)
		return phase, nil
	}
	if err != nil {
		phase.Error = DescribeError(err)
		logger.Error("Recommended sync failed", zap.Error(err))
		finish(OutcomeFailed)
		return phase, fmt.Errorf("fetch recommended project: %w", err)
	}

	ids := project.AssetIDs()
	flagged, err := o.store.SetRecommended(ctx, ids)
	if err != nil {
		phase.Error = DescribeError(err)
		finish(OutcomeFailed)
		return phase, err
	}

	phase.Items = len(ids)
	phase.Flagged = flagged
	logger.Info("Recommended flags updated", zap.Int("referenced", len(ids)), zap.Int64("flagged", flagged))
	finish(OutcomeCompleted)
	return phase, nil
}
