package cmd

import (
	"context"
	"strings"
	"testing"
	"time"

	"waypoint-sync/core/reconcile"
	"waypoint-sync/core/scheduler"
	"waypoint-sync/feature/ugc"
	"waypoint-sync/feature/ugc/models"
	"waypoint-sync/feature/ugc/store"
	"waypoint-sync/feature/ugc/store/storetest"
	"waypoint-sync/feature/waypoint"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRegisterJobs(t *testing.T) {
	svc := ugc.NewService(nil, nil, nil, zap.NewNop())

	sched := scheduler.New(zap.NewNop())
	require.NoError(t, registerJobs(sched, svc, ugc.Config{SyncSchedule: "*/30 * * * *"}))
	assert.Equal(t, 1, sched.Jobs())

	sched = scheduler.New(zap.NewNop())
	require.NoError(t, registerJobs(sched, svc, ugc.Config{SyncSchedule: "@hourly", ReconcileSchedule: "@daily"}))
	assert.Equal(t, 2, sched.Jobs())

	sched = scheduler.New(zap.NewNop())
	assert.Error(t, registerJobs(sched, svc, ugc.Config{SyncSchedule: "sometimes"}))
}

func TestConfirmDestructiveAction(t *testing.T) {
	yesConfirm = false
	assert.True(t, confirmDestructiveAction(strings.NewReader("yes\n")))
	assert.False(t, confirmDestructiveAction(strings.NewReader("y\n")))
	assert.False(t, confirmDestructiveAction(strings.NewReader("")))

	yesConfirm = true
	defer func() { yesConfirm = false }()
	assert.True(t, confirmDestructiveAction(strings.NewReader("")))
}

func TestPrintReconcileReportSamplesActions(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	plan := &reconcile.ReconcilePlan{Summary: reconcile.PlanSummary{Candidates: 7, Gone: 7, DeleteActions: 7}}
	for _, key := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		plan.Actions = append(plan.Actions, reconcile.Action{Type: reconcile.ActionDelete, Key: key, Reason: "gone upstream"})
	}

	printReconcileReport(zap.New(core), plan)

	assert.Equal(t, 5, logs.FilterMessage("Sample action").Len())
	more := logs.FilterMessage("Additional actions not shown").All()
	require.Len(t, more, 1)
	assert.Equal(t, int64(2), more[0].ContextMap()["count"])
}

func TestPrintWatermarks(t *testing.T) {
	ctx := context.Background()
	st := storetest.New(t)

	seed := time.Date(2021, 11, 15, 0, 0, 0, 0, time.UTC)
	_, err := st.SeedWatermarks(ctx, seed, waypoint.KindMap, waypoint.KindMode)
	require.NoError(t, err)
	require.NoError(t, st.Ingest(ctx, &store.Record{
		Asset: models.UgcAsset{AssetID: "m1", AssetKind: waypoint.KindMap, Name: "Arena"},
	}))

	core, logs := observer.New(zap.InfoLevel)
	require.NoError(t, printWatermarks(ctx, st, zap.New(core)))

	entries := logs.FilterMessage("Watermark").All()
	require.Len(t, entries, 2)
	assert.Equal(t, waypoint.KindMap.String(), entries[0].ContextMap()["kind"])
	assert.Equal(t, int64(1), entries[0].ContextMap()["assets"])
	assert.Equal(t, int64(0), entries[1].ContextMap()["assets"])
}
