package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestAddValidatesSchedule(t *testing.T) {
	s := New(zap.NewNop())
	noop := func(ctx context.Context) error { return nil }

	assert.NoError(t, s.Add(Job{Name: "disabled", Run: noop}))
	assert.Zero(t, s.Jobs())

	assert.ErrorContains(t, s.Add(Job{Name: "bad", Schedule: "every tuesday", Run: noop}), "invalid cron expression")
	require.NoError(t, s.Add(Job{Name: "sync", Schedule: "*/30 * * * *", Run: noop}))
	require.NoError(t, s.Add(Job{Name: "reconcile", Schedule: "@every 6h", Run: noop}))
	assert.ErrorContains(t, s.Add(Job{Name: "sync", Schedule: "@hourly", Run: noop}), "already registered")
	assert.Equal(t, 2, s.Jobs())

	_, ok := s.Next("missing")
	assert.False(t, ok)
}

func TestStartComputesNextRun(t *testing.T) {
	s := New(zap.NewNop())
	require.NoError(t, s.Add(Job{Name: "sync", Schedule: "@every 1h", Run: func(ctx context.Context) error { return nil }}))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool {
		next, ok := s.Next("sync")
		return ok && !next.IsZero()
	}, time.Second, 10*time.Millisecond)

	next := s.NextRuns()
	assert.Len(t, next, 1)
	assert.Contains(t, next, "sync")
}

func TestExecuteLogsFailureAndHonoursTimeout(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := New(zap.New(core))

	var deadline bool
	s.execute(Job{
		Name:    "sync",
		Timeout: time.Minute,
		Run: func(ctx context.Context) error {
			_, deadline = ctx.Deadline()
			return errors.New("run in progress")
		},
	})

	assert.True(t, deadline)
	failed := logs.FilterMessage("Scheduled job failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "sync", failed[0].ContextMap()["job"])
}

func TestStopCancelsJobContext(t *testing.T) {
	s := New(zap.NewNop())
	s.Stop()
	s.Stop()

	var err error
	s.execute(Job{Name: "late", Run: func(ctx context.Context) error {
		err = ctx.Err()
		return nil
	}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPauseSkipsExecutionsUntilResume(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := New(zap.New(core))
	calls := 0
	job := Job{Name: "sync", Run: func(ctx context.Context) error {
		calls++
		return nil
	}}

	assert.False(t, s.Resume())
	assert.True(t, s.Pause())
	assert.False(t, s.Pause())
	assert.True(t, s.Paused())

	s.execute(job)
	assert.Zero(t, calls)
	assert.Len(t, logs.FilterMessage("Scheduled job skipped, scheduler paused").All(), 1)

	assert.True(t, s.Resume())
	assert.False(t, s.Paused())
	s.execute(job)
	assert.Equal(t, 1, calls)
}
