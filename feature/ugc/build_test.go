package ugc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"waypoint-sync/core/credentials"
	"waypoint-sync/core/database"
	"waypoint-sync/core/ratelimit"
	"waypoint-sync/core/reconcile"
	"waypoint-sync/feature/ugc/models"
	"waypoint-sync/feature/ugc/store"
	ugcsync "waypoint-sync/feature/ugc/sync"
	"waypoint-sync/feature/waypoint"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeWaypoint serves a single published map and a project featuring it.
func fakeWaypoint(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/hi/search":
			if r.URL.Query().Get("assetKind") != "Map" {
				w.Write([]byte(`{"EstimatedTotal":0,"ResultCount":0,"Results":[]}`))
				return
			}
			w.Write([]byte(`{"EstimatedTotal":1,"ResultCount":1,"Results":[{"AssetId":"m1","AssetKind":2,"Likes":4,"DatePublishedUtc":{"ISO8601Date":"2026-01-31T12:00:00Z"}}]}`))
		case "/hi/maps/m1":
			w.Write([]byte(`{"AssetId":"m1","PublicName":"Arena","Contributors":["xuid(1)"],"Admin":"xuid(1)","Tags":["Forge"],"Files":{"Prefix":"https://blob/","FileRelativePaths":["m1.mvar"]}}`))
		case "/users":
			w.Write([]byte(`[{"xuid":"1","gamertag":"One"}]`))
		case "/hi/players/xuid(1)/customization/appearance":
			w.Write([]byte(`{"Appearance":{"ServiceTag":"ONE","Emblem":{"EmblemPath":"/Inventory/Spartan/Emblems/e.json"}}}`))
		case "/hi/projects/project-1":
			w.Write([]byte(`{"AssetId":"project-1","MapLinks":[{"AssetId":"m1"}]}`))
		case "/halo-infinite/ugc/browse/maps/old":
			w.WriteHeader(http.StatusNotFound)
		default:
			if strings.HasPrefix(r.URL.Path, "/hi/progression/file/") {
				w.Write([]byte(`{}`))
				return
			}
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestBuildRequiresDatabase(t *testing.T) {
	_, err := Build(context.Background(), Deps{})
	assert.Error(t, err)
}

func TestPipelineEndToEnd(t *testing.T) {
	ctx := context.Background()
	server := fakeWaypoint(t)

	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	p, err := Build(ctx, Deps{
		DB:       db,
		Supplier: credentials.NewStatic("spartan", "clearance"),
		UserID:   "operator",
		Waypoint: waypoint.Config{
			DiscoveryURL:  server.URL,
			ProfileURL:    server.URL,
			EconomyURL:    server.URL,
			GameCMSURL:    server.URL,
			WebURL:        server.URL,
			ProjectID:     "project-1",
			ProbeAttempts: 2,
		},
		Sync: ugcsync.Config{
			PageSize:                 20,
			Attempts:                 3,
			RecoveryAttempts:         5,
			PageRetryCooldownSeconds: 60,
			PhaseCooldownSeconds:     10,
			GraceMinutes:             5,
			BackfillThresholdHours:   168,
		},
		Clock:  ratelimit.NewFakeClock(now),
		Logger: zap.NewNop(),
	})
	require.NoError(t, err)
	require.NoError(t, p.Store.Migrate(ctx))

	_, err = p.Store.SeedWatermarks(ctx, now.Add(-48*time.Hour), waypoint.Kinds...)
	require.NoError(t, err)
	require.NoError(t, p.Store.Ingest(ctx, &store.Record{
		Asset: models.UgcAsset{AssetID: "old", AssetKind: waypoint.KindMap, Name: "Removed"},
	}))

	report, err := p.Service.RunSync(ctx, ugcsync.Options{})
	require.NoError(t, err)
	assert.Empty(t, report.Aborted)
	assert.False(t, report.Failed())
	assert.Equal(t, int64(1), report.Phase(ugcsync.PhaseRecommended).Flagged)
	assert.Positive(t, report.Phase(waypoint.KindMap.String()).Requests)

	asset, err := p.Store.FindAsset(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "Arena", asset.Name)
	assert.True(t, asset.Recommended)
	require.NotEmpty(t, asset.Contributors)
	assert.Equal(t, "One", asset.Contributors[0].Gamertag)
	assert.Equal(t, "ONE", asset.Contributors[0].ServiceTag)

	wm, err := p.Store.GetWatermark(ctx, waypoint.KindMap)
	require.NoError(t, err)
	assert.True(t, wm.Equal(now), "watermark advanced to run start, got %s", wm)

	rec, err := p.Service.RunReconcile(ctx, waypoint.KindMap, reconcile.ReconcileOptions{Confirmed: true})
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Executed)

	ids, err := p.Store.AssetIDs(ctx, waypoint.KindMap)
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, ids)
}
