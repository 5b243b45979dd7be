package reconcile

import (
	"context"
	"fmt"

	"waypoint-sync/core/metrics"
	"waypoint-sync/core/reconcile"
	ugcsync "waypoint-sync/feature/ugc/sync"
	"waypoint-sync/feature/waypoint"

	"go.uber.org/zap"
)

// Prober confirms whether a single asset still exists upstream.
type Prober interface {
	AssetExists(ctx context.Context, kind waypoint.AssetKind, assetID string) (waypoint.ProbeResult, error)
}

// Store is the subset of the asset store used by reconciliation.
type Store interface {
	AssetIDs(ctx context.Context, kind waypoint.AssetKind) ([]string, error)
	UpdateStats(ctx context.Context, assetID string, stats waypoint.Stats) error
	DeleteAssets(ctx context.Context, assetIDs []string) (int64, error)
}

// Adapter reconciles stored assets of one kind against the search listing.
type Adapter struct {
	kind   waypoint.AssetKind
	pager  *ugcsync.Pager
	prober Prober
	store  Store
	logger *zap.Logger
}

var _ reconcile.Mutator = (*Adapter)(nil)

// NewAdapter creates an adapter for kind.
func NewAdapter(kind waypoint.AssetKind, pager *ugcsync.Pager, prober Prober, store Store, logger *zap.Logger) *Adapter {
	return &Adapter{
		kind:   kind,
		pager:  pager,
		prober: prober,
		store:  store,
		logger: logger,
	}
}

// Name returns the asset kind name.
func (a *Adapter) Name() string {
	return a.kind.String()
}

// LoadStoreSet returns the IDs of every stored asset of the kind.
func (a *Adapter) LoadStoreSet(ctx context.Context) (map[string]struct{}, error) {
	ids, err := a.store.AssetIDs(ctx, a.kind)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// LoadUpstreamSet walks the whole listing without early exit. Live counters
// of assets already stored are refreshed on the way.
func (a *Adapter) LoadUpstreamSet(ctx context.Context) (map[string]struct{}, error) {
	set := make(map[string]struct{})
	progress, err := a.pager.Walk(ctx, a.kind, func(ctx context.Context, item waypoint.AssetSummary) error {
		set[item.AssetID] = struct{}{}
		return a.store.UpdateStats(ctx, item.AssetID, item.Stats())
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("walk %s listing: %w", a.kind, err)
	}

	a.logger.Info("Upstream listing loaded",
		zap.String("kind", a.kind.String()),
		zap.Int("pages", progress.Pages),
		zap.Int("assets", len(set)))
	return set, nil
}

// Verify probes the public page of the asset.
func (a *Adapter) Verify(ctx context.Context, key string) (reconcile.Verdict, error) {
	res, err := a.prober.AssetExists(ctx, a.kind, key)
	if err != nil {
		return reconcile.VerdictUnverified, err
	}
	switch res {
	case waypoint.ProbeGone:
		return reconcile.VerdictGone, nil
	case waypoint.ProbeExists:
		return reconcile.VerdictExists, nil
	default:
		return reconcile.VerdictUnverified, nil
	}
}

// DeleteBatch removes confirmed-gone assets and their links.
func (a *Adapter) DeleteBatch(ctx context.Context, keys []string) error {
	n, err := a.store.DeleteAssets(ctx, keys)
	if err != nil {
		return err
	}
	metrics.AssetsDeleted.WithLabelValues(a.kind.String()).Add(float64(n))
	a.logger.Info("Deleted assets missing upstream",
		zap.String("kind", a.kind.String()),
		zap.Int64("deleted", n))
	return nil
}
