package ugc

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"waypoint-sync/core/reconcile"
	"waypoint-sync/core/scheduler"
	"waypoint-sync/core/storage/mocks"
	ugcsync "waypoint-sync/feature/ugc/sync"
	"waypoint-sync/feature/waypoint"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestApp(t *testing.T, syncer *fakeSyncer, rec *fakeReconciler, archive *Archive) (*fiber.App, *Service) {
	t.Helper()
	app := fiber.New()
	svc := NewService(syncer, rec, archive, zap.NewNop())
	t.Cleanup(svc.Close)
	NewHandler(svc).RegisterRoutes(app)
	return app, svc
}

func decode(t *testing.T, r io.Reader) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(r).Decode(&body))
	return body
}

func TestHandleRun(t *testing.T) {
	syncer := &fakeSyncer{report: syncReport("run-1")}
	app, svc := setupTestApp(t, syncer, &fakeReconciler{}, nil)

	resp, err := app.Test(httptest.NewRequest("POST", "/sync/run?kind=prefab", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	svc.Wait()
	require.Len(t, syncer.calls, 1)
	assert.Equal(t, ugcsync.Options{Kinds: []waypoint.AssetKind{waypoint.KindPrefab}, SkipRecommended: true}, syncer.calls[0])

	resp, err = app.Test(httptest.NewRequest("GET", "/sync/status", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decode(t, resp.Body)
	assert.Equal(t, "run-1", body["last_sync"].(map[string]any)["run_id"])
}

func TestHandleRunRejectsUnknownKind(t *testing.T) {
	app, _ := setupTestApp(t, &fakeSyncer{}, &fakeReconciler{}, nil)

	resp, err := app.Test(httptest.NewRequest("POST", "/sync/run?kind=vehicle", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandleRunConflict(t *testing.T) {
	syncer := &fakeSyncer{started: make(chan struct{}), release: make(chan struct{})}
	app, svc := setupTestApp(t, syncer, &fakeReconciler{}, nil)

	require.NoError(t, svc.TriggerSync(ugcsync.Options{}))
	<-syncer.started

	resp, err := app.Test(httptest.NewRequest("POST", "/sync/run", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("POST", "/sync/reconcile/map", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	close(syncer.release)
}

func TestHandleReconcile(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want reconcile.ReconcileOptions
	}{
		{"dry run by default", "/sync/reconcile/map", reconcile.ReconcileOptions{DryRun: true}},
		{"apply", "/sync/reconcile/mode?apply=true", reconcile.ReconcileOptions{Confirmed: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeReconciler{plan: &reconcile.ReconcilePlan{}}
			app, svc := setupTestApp(t, &fakeSyncer{}, rec, nil)

			resp, err := app.Test(httptest.NewRequest("POST", tt.url, nil))
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

			svc.Wait()
			assert.Equal(t, []reconcile.ReconcileOptions{tt.want}, rec.opts)
		})
	}
}

func TestHandleReconcileUnknownKind(t *testing.T) {
	app, _ := setupTestApp(t, &fakeSyncer{}, &fakeReconciler{}, nil)

	resp, err := app.Test(httptest.NewRequest("POST", "/sync/reconcile/vehicles", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandleListReports(t *testing.T) {
	app, _ := setupTestApp(t, &fakeSyncer{}, &fakeReconciler{}, nil)
	resp, err := app.Test(httptest.NewRequest("GET", "/sync/reports", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	client := new(mocks.Client)
	client.On("ListObjects", mock.Anything, "bucket", mock.Anything).Return(mocks.Listing("reports/b.json", "reports/a.json"))
	app, _ = setupTestApp(t, &fakeSyncer{}, &fakeReconciler{}, NewArchive(client, "bucket", "reports/", 10, zap.NewNop()))

	resp, err = app.Test(httptest.NewRequest("GET", "/sync/reports", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decode(t, resp.Body)
	assert.Equal(t, []any{"reports/a.json", "reports/b.json"}, body["reports"])
}

func TestHandleStopPausesScheduler(t *testing.T) {
	app, svc := setupTestApp(t, &fakeSyncer{}, &fakeReconciler{}, nil)

	resp, err := app.Test(httptest.NewRequest("POST", "/sync/stop", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	sched := scheduler.New(zap.NewNop())
	require.NoError(t, sched.Add(scheduler.Job{Name: "sync", Schedule: "@every 1h", Run: func(ctx context.Context) error { return nil }}))
	svc.SetSchedule(sched)

	resp, err = app.Test(httptest.NewRequest("POST", "/sync/stop", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decode(t, resp.Body)
	assert.Equal(t, "stopped", body["status"])
	assert.Equal(t, true, body["changed"])
	assert.True(t, sched.Paused())

	resp, err = app.Test(httptest.NewRequest("POST", "/sync/stop", nil))
	require.NoError(t, err)
	assert.Equal(t, false, decode(t, resp.Body)["changed"])

	resp, err = app.Test(httptest.NewRequest("GET", "/sync/status", nil))
	require.NoError(t, err)
	body = decode(t, resp.Body)
	assert.Equal(t, true, body["schedule_paused"])
	assert.NotContains(t, body, "next_runs")

	resp, err = app.Test(httptest.NewRequest("POST", "/sync/resume", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.False(t, sched.Paused())
}

func TestLoader(t *testing.T) {
	svc := NewService(&fakeSyncer{}, &fakeReconciler{}, nil, zap.NewNop())
	feature := NewFeature(svc)

	assert.Equal(t, "ugc", feature.Name())
	assert.True(t, feature.IsEnabled())
	assert.NoError(t, feature.Load(fiber.New()))

	assert.False(t, NewFeature(nil).IsEnabled())
}
