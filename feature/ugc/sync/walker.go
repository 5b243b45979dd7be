package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"waypoint-sync/feature/ugc/enrich"
	"waypoint-sync/feature/waypoint"

	"go.uber.org/zap"
)

// Processor enriches and stores one listing record.
type Processor interface {
	Process(ctx context.Context, kind waypoint.AssetKind, summary waypoint.AssetSummary) error
}

// WatermarkStore reads and advances per-kind watermarks.
type WatermarkStore interface {
	GetWatermark(ctx context.Context, kind waypoint.AssetKind) (time.Time, error)
	AdvanceWatermark(ctx context.Context, kind waypoint.AssetKind, at time.Time) (bool, error)
}

// KindResult summarizes the incremental walk of one kind.
type KindResult struct {
	Kind      waypoint.AssetKind
	Pages     int
	Items     int
	Ingested  int
	Skipped   int
	EarlyExit bool
	// LastStart is the offset of the last page visited.
	LastStart int
	Total     int
	// Watermark is the value after the walk.
	Watermark time.Time
}

// Walker runs the incremental sync of one kind.
type Walker struct {
	pager      *Pager
	processor  Processor
	watermarks WatermarkStore
	grace      time.Duration
	logger     *zap.Logger
}

// NewWalker creates a walker.
func NewWalker(pager *Pager, processor Processor, watermarks WatermarkStore, grace time.Duration, logger *zap.Logger) *Walker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Walker{pager: pager, processor: processor, watermarks: watermarks, grace: grace, logger: logger}
}

// Run ingests every item of kind published after watermark (with grace),
// newest first, and stops at the first older item. Once the walk completes
// the watermark is advanced to runStart. On error it is left untouched.
func (w *Walker) Run(ctx context.Context, kind waypoint.AssetKind, watermark, runStart time.Time) (KindResult, error) {
	res := KindResult{Kind: kind, Watermark: watermark}

	// Counts of the current page attempt, kept only if the page succeeds.
	var ingested, skipped int
	commit := func(ok bool) {
		if ok {
			res.Ingested += ingested
			res.Skipped += skipped
		}
		ingested, skipped = 0, 0
	}

	prog, err := w.pager.Walk(ctx, kind, func(ctx context.Context, item waypoint.AssetSummary) error {
		published := item.DatePublishedUtc.ISO8601Date.Add(w.grace)
		if published.Before(watermark) {
			w.logger.Info("Reached already synced items",
				zap.String("kind", kind.String()),
				zap.String("asset_id", item.AssetID),
				zap.Time("published", item.DatePublishedUtc.ISO8601Date),
				zap.Time("watermark", watermark))
			res.EarlyExit = true
			return ErrStop
		}

		err := w.processor.Process(ctx, kind, item)
		switch {
		case errors.Is(err, enrich.ErrSkipped):
			skipped++
			return nil
		case err != nil:
			return err
		}
		ingested++
		return nil
	}, commit)

	res.Pages = prog.Pages
	res.Items = prog.Items
	res.LastStart = prog.Start
	res.Total = prog.Total
	if err != nil {
		return res, err
	}

	if _, err := w.watermarks.AdvanceWatermark(ctx, kind, runStart); err != nil {
		return res, fmt.Errorf("advance %s watermark: %w", kind, err)
	}
	if runStart.After(watermark) {
		res.Watermark = runStart
	}
	return res, nil
}
