package sync

import (
	"context"
	"errors"
	"fmt"

	"waypoint-sync/core/fetch"
	"waypoint-sync/core/ratelimit"
	"waypoint-sync/feature/waypoint"

	"go.uber.org/zap"
)

// ErrStop ends a walk early without error when returned by an ItemFunc.
var ErrStop = errors.New("stop walk")

// Searcher fetches one search page.
type Searcher interface {
	Search(ctx context.Context, kind waypoint.AssetKind, start, count int) (*waypoint.SearchPage, error)
}

// ItemFunc handles one listing record. Returning ErrStop ends the walk.
type ItemFunc func(ctx context.Context, item waypoint.AssetSummary) error

// AttemptFunc is told how each attempt at a page ended. Items handled in a
// failed attempt are handled again by the recovery attempt.
type AttemptFunc func(ok bool)

// PageError is a page that failed twice; the walk of its kind is aborted.
type PageError struct {
	Kind  waypoint.AssetKind
	Start int
	Err   error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("%s page at offset %d failed after recovery: %v", e.Kind, e.Start, e.Err)
}

func (e *PageError) Unwrap() error {
	return e.Err
}

// Progress describes how far a walk got.
type Progress struct {
	Pages   int
	Items   int
	Start   int
	Total   int
	Stopped bool
}

// Pager walks the offset-paginated search listing of one kind.
type Pager struct {
	api    Searcher
	clock  ratelimit.Clock
	cfg    Config
	logger *zap.Logger
}

// NewPager creates a pager.
func NewPager(api Searcher, clock ratelimit.Clock, cfg Config, logger *zap.Logger) *Pager {
	if clock == nil {
		clock = ratelimit.RealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pager{api: api, clock: clock, cfg: cfg.withDefaults(), logger: logger}
}

// Walk visits every item of kind, newest first, until the listing is
// exhausted or fn returns ErrStop.
//
// A page that fails (fetching it or handling any of its items) is retried
// once after the cooldown with the larger attempt budget. A second failure
// returns a *PageError. done may be nil.
func (p *Pager) Walk(ctx context.Context, kind waypoint.AssetKind, fn ItemFunc, done AttemptFunc) (Progress, error) {
	if done == nil {
		done = func(bool) {}
	}
	count := p.cfg.PageSize
	prog := Progress{Total: -1}

	for start := 0; prog.Total == -1 || start < prog.Total; start += count {
		prog.Start = start

		page, n, stopped, err := p.page(fetch.WithAttempts(ctx, p.cfg.Attempts), kind, start, fn)
		done(err == nil)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return prog, ctxErr
			}

			p.logger.Warn("Page failed, retrying after cooldown",
				zap.String("kind", kind.String()),
				zap.Int("start", start),
				zap.Duration("cooldown", p.cfg.PageRetryCooldown()),
				zap.Int("attempts", p.cfg.RecoveryAttempts),
				zap.Error(err))

			if err := p.clock.Sleep(ctx, p.cfg.PageRetryCooldown()); err != nil {
				return prog, err
			}

			page, n, stopped, err = p.page(fetch.WithAttempts(ctx, p.cfg.RecoveryAttempts), kind, start, fn)
			done(err == nil)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return prog, ctxErr
				}
				return prog, &PageError{Kind: kind, Start: start, Err: err}
			}
		}

		prog.Pages++
		prog.Items += n
		if stopped {
			prog.Stopped = true
			return prog, nil
		}

		prog.Total = page.EstimatedTotal
		if len(page.Results) == 0 {
			break
		}
	}
	return prog, nil
}

// page fetches one page and hands its items to fn. It returns how many items
// were handled and whether fn asked to stop.
func (p *Pager) page(ctx context.Context, kind waypoint.AssetKind, start int, fn ItemFunc) (*waypoint.SearchPage, int, bool, error) {
	page, err := p.api.Search(ctx, kind, start, p.cfg.PageSize)
	if err != nil {
		return nil, 0, false, fmt.Errorf("search %s at offset %d: %w", kind, start, err)
	}

	handled := 0
	for _, item := range page.Results {
		if err := fn(ctx, item); err != nil {
			if errors.Is(err, ErrStop) {
				return page, handled, true, nil
			}
			return nil, 0, false, err
		}
		handled++
	}
	return page, handled, false, nil
}
