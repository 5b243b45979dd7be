package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"waypoint-sync/core/fetch"
	"waypoint-sync/feature/ugc/enrich"
	"waypoint-sync/feature/ugc/models"
	"waypoint-sync/feature/ugc/skiplist"
	"waypoint-sync/feature/waypoint"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedWatermark(t *testing.T, h *harness, kind waypoint.AssetKind, at time.Time) {
	t.Helper()
	_, err := h.store.SeedWatermarks(context.Background(), at, kind)
	require.NoError(t, err)
}

func TestFirstPageNewerThanWatermarkContinues(t *testing.T) {
	h := newHarness(t, nil)
	t0 := runStart.Add(-24 * time.Hour)
	seedWatermark(t, h, waypoint.KindMap, t0)

	// 20 newer items on page 1, then older history
	h.api.addItems(waypoint.KindMap, "new", runStart.Add(-time.Hour), 20)
	h.api.addItems(waypoint.KindMap, "old", t0.Add(-time.Hour), 25)

	res, err := h.walker.Run(context.Background(), waypoint.KindMap, t0, runStart)
	require.NoError(t, err)

	assert.Len(t, h.api.detailCalls(), 20)
	assert.Equal(t, 20, res.Ingested)
	assert.Equal(t, []int{0, 20}, h.api.searchCalls())
	assert.Equal(t, 20, res.LastStart)
	assert.True(t, res.EarlyExit)

	count, err := h.store.CountAssets(context.Background(), waypoint.KindMap)
	require.NoError(t, err)
	assert.Equal(t, int64(20), count)
}

func TestEstimatedTotalBelowPageSizeStopsAfterOnePage(t *testing.T) {
	h := newHarness(t, nil)
	h.api.addItems(waypoint.KindMap, "m", runStart.Add(-time.Hour), 15)

	res, err := h.walker.Run(context.Background(), waypoint.KindMap, time.Time{}, runStart)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, h.api.searchCalls())
	assert.Equal(t, 15, res.Ingested)
	assert.Equal(t, 1, res.Pages)
	assert.False(t, res.EarlyExit)
}

func TestWalkContinuesUntilTotal(t *testing.T) {
	h := newHarness(t, nil)
	h.api.addItems(waypoint.KindPrefab, "p", runStart.Add(-time.Hour), 45)

	res, err := h.walker.Run(context.Background(), waypoint.KindPrefab, time.Time{}, runStart)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 20, 40}, h.api.searchCalls())
	assert.Equal(t, 45, res.Items)
	assert.Equal(t, 45, res.Total)
}

func TestEarlyExitStopsProcessing(t *testing.T) {
	h := newHarness(t, nil)
	watermark := runStart.Add(-2 * time.Hour)
	seedWatermark(t, h, waypoint.KindMap, watermark)

	h.api.addItems(waypoint.KindMap, "a", watermark.Add(2*time.Minute), 3)
	h.api.addItems(waypoint.KindMap, "b", watermark.Add(-time.Hour), 40)

	res, err := h.walker.Run(context.Background(), waypoint.KindMap, watermark, runStart)
	require.NoError(t, err)

	// a-00..a-02 fall within the grace window; nothing after b-00 is touched
	assert.Equal(t, []string{"a-00", "a-01", "a-02"}, h.api.detailCalls())
	assert.Equal(t, []int{0}, h.api.searchCalls())
	assert.True(t, res.EarlyExit)

	wm, err := h.store.GetWatermark(context.Background(), waypoint.KindMap)
	require.NoError(t, err)
	assert.True(t, wm.Equal(runStart))
}

func TestGraceSkewKeepsBorderlineItems(t *testing.T) {
	h := newHarness(t, nil)
	watermark := runStart.Add(-time.Hour)
	h.api.addItems(waypoint.KindMap, "edge", watermark.Add(-4*time.Minute), 1)
	h.api.addItems(waypoint.KindMap, "past", watermark.Add(-10*time.Minute), 1)

	res, err := h.walker.Run(context.Background(), waypoint.KindMap, watermark, runStart)
	require.NoError(t, err)
	assert.Equal(t, []string{"edge-00"}, h.api.detailCalls())
	assert.True(t, res.EarlyExit)
}

func TestSkipListedAssetNeverFetched(t *testing.T) {
	h := newHarness(t, skiplist.New("m-01", "m-18"))
	h.api.addItems(waypoint.KindMap, "m", runStart.Add(-time.Hour), 20)

	res, err := h.walker.Run(context.Background(), waypoint.KindMap, time.Time{}, runStart)
	require.NoError(t, err)
	assert.NotContains(t, h.api.detailCalls(), "m-01")
	assert.NotContains(t, h.api.detailCalls(), "m-18")
	assert.Len(t, h.api.detailCalls(), 18)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, 18, res.Ingested)
}

func TestPageRecoverySucceeds(t *testing.T) {
	h := newHarness(t, nil)
	h.api.addItems(waypoint.KindMap, "m", runStart.Add(-time.Hour), 5)
	h.api.failDetail["m-02"] = 1

	res, err := h.walker.Run(context.Background(), waypoint.KindMap, time.Time{}, runStart)
	require.NoError(t, err)
	assert.Equal(t, 1, h.sleepsOf(time.Minute))
	assert.Equal(t, 5, res.Items)

	// the retried page runs with the larger budget
	budgets := h.api.detailBudget
	assert.Equal(t, 3, budgets[0])
	assert.Equal(t, 5, budgets[len(budgets)-1])

	count, err := h.store.CountAssets(context.Background(), waypoint.KindMap)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)
}

func TestRecoveredPageCountsItemsOnce(t *testing.T) {
	h := newHarness(t, nil)
	h.api.addItems(waypoint.KindMap, "m", runStart.Add(-time.Hour), 5)
	h.api.failDetail["m-03"] = 1

	res, err := h.walker.Run(context.Background(), waypoint.KindMap, time.Time{}, runStart)
	require.NoError(t, err)
	assert.Equal(t, 1, h.sleepsOf(time.Minute))
	// m-00..m-02 were handled in both attempts
	assert.Greater(t, len(h.api.detailCalls()), 5)
	assert.Equal(t, 5, res.Ingested)
	assert.Zero(t, res.Skipped)
	assert.Equal(t, 1, res.Pages)
}

func TestSecondPageFailureIsFatal(t *testing.T) {
	h := newHarness(t, nil)
	before := runStart.Add(-48 * time.Hour)
	seedWatermark(t, h, waypoint.KindMap, before)
	h.api.addItems(waypoint.KindMap, "m", runStart.Add(-time.Hour), 30)
	h.api.failDetail["m-25"] = -1

	_, err := h.walker.Run(context.Background(), waypoint.KindMap, before, runStart)
	require.Error(t, err)

	var pageErr *PageError
	require.True(t, errors.As(err, &pageErr))
	assert.Equal(t, 20, pageErr.Start)
	assert.Equal(t, waypoint.KindMap, pageErr.Kind)

	var enrichErr *enrich.Error
	require.True(t, errors.As(err, &enrichErr))
	assert.Equal(t, "m-25", enrichErr.AssetID)
	assert.Equal(t, 500, fetch.StatusCode(err))
	assert.Equal(t, 1, h.sleepsOf(time.Minute))

	wm, err := h.store.GetWatermark(context.Background(), waypoint.KindMap)
	require.NoError(t, err)
	assert.True(t, wm.Equal(before), "watermark must not move after a fatal page")
}

func TestSearchFailureRecovers(t *testing.T) {
	h := newHarness(t, nil)
	h.api.addItems(waypoint.KindMap, "m", runStart.Add(-time.Hour), 25)
	h.api.failSearch[20] = 1

	res, err := h.walker.Run(context.Background(), waypoint.KindMap, time.Time{}, runStart)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 20, 20}, h.api.searchCalls())
	assert.Equal(t, 25, res.Ingested)
}

func TestWatermarkNeverMovesBackwards(t *testing.T) {
	h := newHarness(t, nil)
	future := runStart.Add(time.Hour)
	seedWatermark(t, h, waypoint.KindMap, future)

	res, err := h.walker.Run(context.Background(), waypoint.KindMap, future, runStart)
	require.NoError(t, err)
	assert.True(t, res.Watermark.Equal(future))

	wm, err := h.store.GetWatermark(context.Background(), waypoint.KindMap)
	require.NoError(t, err)
	assert.True(t, wm.Equal(future))
}

func TestWalkerDoesNotDuplicateRows(t *testing.T) {
	h := newHarness(t, nil)
	h.api.addItems(waypoint.KindMap, "m", runStart.Add(-time.Hour), 3)

	_, err := h.walker.Run(context.Background(), waypoint.KindMap, time.Time{}, runStart)
	require.NoError(t, err)
	_, err = h.walker.Run(context.Background(), waypoint.KindMap, time.Time{}, runStart)
	require.NoError(t, err)

	var assets, contributors int64
	h.store.DB().Model(&models.UgcAsset{}).Count(&assets)
	h.store.DB().Model(&models.Contributor{}).Count(&contributors)
	assert.Equal(t, int64(3), assets)
	assert.Equal(t, int64(1), contributors)
}
