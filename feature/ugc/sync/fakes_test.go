package sync

import (
	"context"
	"fmt"
	stdsync "sync"
	"testing"
	"time"

	"waypoint-sync/core/fetch"
	"waypoint-sync/core/ratelimit"
	"waypoint-sync/feature/ugc/enrich"
	"waypoint-sync/feature/ugc/skiplist"
	"waypoint-sync/feature/ugc/store"
	"waypoint-sync/feature/ugc/store/storetest"
	"waypoint-sync/feature/waypoint"
)

var runStart = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

// fakeAPI serves search pages and asset data from memory.
type fakeAPI struct {
	mu           stdsync.Mutex
	listings     map[waypoint.AssetKind][]waypoint.AssetSummary
	totals       map[waypoint.AssetKind]int
	failDetail   map[string]int // remaining failures per asset ID, -1 for always
	failSearch   map[int]int    // remaining failures per offset
	searches     []int
	details      []string
	detailBudget []int
	project      *waypoint.Project
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		listings:   make(map[waypoint.AssetKind][]waypoint.AssetSummary),
		totals:     make(map[waypoint.AssetKind]int),
		failDetail: make(map[string]int),
		failSearch: make(map[int]int),
	}
}

// addItems lists n items of kind published one minute apart, newest first.
func (f *fakeAPI) addItems(kind waypoint.AssetKind, prefix string, newest time.Time, n int) {
	for i := 0; i < n; i++ {
		s := waypoint.AssetSummary{AssetID: fmt.Sprintf("%s-%02d", prefix, i), AssetKind: kind}
		s.DatePublishedUtc.ISO8601Date = newest.Add(-time.Duration(i) * time.Minute)
		f.listings[kind] = append(f.listings[kind], s)
	}
	f.totals[kind] = len(f.listings[kind])
}

func (f *fakeAPI) Search(ctx context.Context, kind waypoint.AssetKind, start, count int) (*waypoint.SearchPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, start)
	if n := f.failSearch[start]; n != 0 {
		if n > 0 {
			f.failSearch[start] = n - 1
		}
		return nil, &fetch.Error{Method: "GET", URL: fmt.Sprintf("search?start=%d", start), Attempts: fetch.AttemptsFrom(ctx), StatusCode: 503}
	}

	items := f.listings[kind]
	page := &waypoint.SearchPage{EstimatedTotal: f.totals[kind]}
	for i := start; i < start+count && i < len(items); i++ {
		page.Results = append(page.Results, items[i])
	}
	page.ResultCount = len(page.Results)
	return page, nil
}

func (f *fakeAPI) GetAsset(ctx context.Context, kind waypoint.AssetKind, assetID string) (*waypoint.AssetDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.details = append(f.details, assetID)
	f.detailBudget = append(f.detailBudget, fetch.AttemptsFrom(ctx))
	if n := f.failDetail[assetID]; n != 0 {
		if n > 0 {
			f.failDetail[assetID] = n - 1
		}
		return nil, &fetch.Error{Method: "GET", URL: "https://discovery/hi/maps/" + assetID, Attempts: fetch.AttemptsFrom(ctx), StatusCode: 500}
	}
	return &waypoint.AssetDetail{
		AssetID:      assetID,
		PublicName:   "Asset " + assetID,
		Contributors: []string{"xuid(1)"},
		Admin:        "xuid(1)",
		Tags:         []string{"Forge"},
	}, nil
}

func (f *fakeAPI) GetUsers(ctx context.Context, xuids []string) ([]waypoint.User, error) {
	return []waypoint.User{{Xuid: "1", Gamertag: "Creator"}}, nil
}

func (f *fakeAPI) GetAppearance(ctx context.Context, xuid string) (*waypoint.Appearance, error) {
	return &waypoint.Appearance{ServiceTag: "CRTR"}, nil
}

func (f *fakeAPI) GetEmblem(ctx context.Context, emblemPath string) (*waypoint.Emblem, error) {
	return &waypoint.Emblem{}, nil
}

func (f *fakeAPI) GetRecommended(ctx context.Context) (*waypoint.Project, error) {
	if f.project == nil {
		return nil, waypoint.ErrNoProject
	}
	return f.project, nil
}

func (f *fakeAPI) detailCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.details...)
}

func (f *fakeAPI) searchCalls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.searches...)
}

type fakeAuth struct {
	err   error
	calls int
}

func (a *fakeAuth) Authenticate(ctx context.Context) error {
	a.calls++
	return a.err
}

type harness struct {
	api     *fakeAPI
	store   *store.Store
	clock   *ratelimit.FakeClock
	limiter *ratelimit.Limiter
	cfg     Config
	pager   *Pager
	walker  *Walker
}

func testConfig() Config {
	return Config{
		PageSize:                 20,
		Attempts:                 3,
		RecoveryAttempts:         5,
		PageRetryCooldownSeconds: 60,
		PhaseCooldownSeconds:     10,
		GraceMinutes:             5,
		BackfillThresholdHours:   168,
	}
}

func newHarness(t *testing.T, skip *skiplist.List) *harness {
	t.Helper()
	h := &harness{
		api:   newFakeAPI(),
		store: storetest.New(t),
		clock: ratelimit.NewFakeClock(runStart),
		cfg:   testConfig(),
	}
	h.limiter = ratelimit.New(h.cfg.DefaultProfile(), h.clock)
	h.pager = NewPager(h.api, h.clock, h.cfg, nil)
	h.walker = NewWalker(h.pager, enrich.New(h.api, h.store, skip, nil), h.store, h.cfg.Grace(), nil)
	return h
}

func (h *harness) orchestrator(auth Authenticator) *Orchestrator {
	return NewOrchestrator(h.cfg, auth, h.limiter, h.store, h.walker, h.api, nil)
}

func (h *harness) sleepsOf(d time.Duration) int {
	n := 0
	for _, s := range h.clock.Sleeps() {
		if s == d {
			n++
		}
	}
	return n
}
