package ugc

import (
	"context"
	"fmt"
	"net/http"

	"waypoint-sync/core/credentials"
	"waypoint-sync/core/fetch"
	"waypoint-sync/core/ratelimit"
	"waypoint-sync/core/storage"
	"waypoint-sync/feature/ugc/enrich"
	ugcreconcile "waypoint-sync/feature/ugc/reconcile"
	"waypoint-sync/feature/ugc/skiplist"
	"waypoint-sync/feature/ugc/store"
	ugcsync "waypoint-sync/feature/ugc/sync"
	"waypoint-sync/feature/waypoint"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps bundles everything needed to assemble the sync pipeline.
type Deps struct {
	DB       *gorm.DB
	Supplier credentials.Supplier
	UserID   string

	// Storage is nil when the object store is disabled.
	Storage storage.Client
	Bucket  string

	Waypoint  waypoint.Config
	Sync      ugcsync.Config
	Reconcile ugcreconcile.Config
	UGC       Config

	// HTTPClient and Clock default to a plain client and the wall clock.
	HTTPClient *http.Client
	Clock      ratelimit.Clock
	Logger     *zap.Logger
}

// Pipeline is the assembled sync pipeline.
type Pipeline struct {
	Store        *store.Store
	API          *waypoint.Client
	Limiter      *ratelimit.Limiter
	SkipList     *skiplist.List
	Pager        *ugcsync.Pager
	Orchestrator *ugcsync.Orchestrator
	Reconciler   *ugcreconcile.Runner
	Service      *Service
}

// Build wires the fetch clients, upstream API, store, enricher, walker,
// orchestrator and reconciler behind a run service.
func Build(ctx context.Context, d Deps) (*Pipeline, error) {
	if d.DB == nil {
		return nil, fmt.Errorf("sync pipeline requires a database connection")
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := d.Clock
	if clock == nil {
		clock = ratelimit.RealClock()
	}

	limiter := ratelimit.New(d.Sync.DefaultProfile(), clock)
	apiFetch := fetch.New(fetch.Options{
		HTTPClient: d.HTTPClient,
		Limiter:    limiter,
		Supplier:   d.Supplier,
		UserID:     d.UserID,
		Timeout:    d.Waypoint.RequestTimeout(),
		UserAgent:  d.Waypoint.UserAgent,
		Logger:     logger.Named("fetch"),
	})
	probeFetch := fetch.New(fetch.Options{
		HTTPClient: d.HTTPClient,
		Clock:      clock,
		Timeout:    d.Waypoint.RequestTimeout(),
		UserAgent:  d.Waypoint.UserAgent,
		Logger:     logger.Named("probe"),
	})
	api := waypoint.NewClient(d.Waypoint, apiFetch, probeFetch, logger.Named("waypoint"))

	st := store.New(d.DB)

	skip, err := skiplist.Load(ctx, skiplist.Source{
		Path:   d.UGC.SkipListPath,
		Client: d.Storage,
		Bucket: d.Bucket,
		Object: d.UGC.SkipListObject,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Skip list loaded", zap.Int("assets", skip.Len()))

	enricher := enrich.New(api, st, skip, logger.Named("enrich"))
	pager := ugcsync.NewPager(api, clock, d.Sync, logger.Named("pager"))
	walker := ugcsync.NewWalker(pager, enricher, st, d.Sync.Grace(), logger.Named("walker"))
	orchestrator := ugcsync.NewOrchestrator(d.Sync, apiFetch, limiter, st, walker, api, logger.Named("sync"))
	runner := ugcreconcile.NewRunner(d.Reconcile, apiFetch, pager, api, st, limiter, d.Sync.DefaultProfile(), logger.Named("reconcile"))

	var archive *Archive
	if d.Storage != nil {
		archive = NewArchive(d.Storage, d.Bucket, d.UGC.ReportPrefix, d.UGC.ReportRetention, logger.Named("archive"))
	}

	return &Pipeline{
		Store:        st,
		API:          api,
		Limiter:      limiter,
		SkipList:     skip,
		Pager:        pager,
		Orchestrator: orchestrator,
		Reconciler:   runner,
		Service:      NewService(orchestrator, runner, archive, logger),
	}, nil
}
