package fetch

import (
	"context"
	"time"

	"waypoint-sync/core/ratelimit"

	backoff "github.com/cenkalti/backoff/v4"
)

// Retry runs op until it succeeds, returns a backoff.Permanent error, or b
// stops. Waits go through clock so tests can drive them.
func Retry(ctx context.Context, clock ratelimit.Clock, b backoff.BackOff, op backoff.Operation, notify backoff.Notify) error {
	return backoff.RetryNotifyWithTimer(op, backoff.WithContext(b, ctx), notify, &clockTimer{ctx: ctx, clock: clock})
}

// schedule is the wait schedule of DoWithRetry: 2^n * 1s after an ordinary
// failure, 5^n * 2s after a 429, where n counts the failures so far.
type schedule struct {
	failures    int
	rateLimited bool
}

func (s *schedule) NextBackOff() time.Duration {
	base, factor := failureBase, time.Duration(2)
	if s.rateLimited {
		base, factor = rateLimitBase, 5
	}
	d := base
	for i := 0; i < s.failures; i++ {
		d *= factor
	}
	s.failures++
	return d
}

func (s *schedule) Reset() {
	s.failures = 0
	s.rateLimited = false
}

// clockTimer implements backoff.Timer on top of a ratelimit.Clock.
type clockTimer struct {
	ctx    context.Context
	clock  ratelimit.Clock
	c      chan time.Time
	cancel context.CancelFunc
}

func (t *clockTimer) Start(d time.Duration) {
	ctx, cancel := context.WithCancel(t.ctx)
	t.cancel = cancel
	ch := make(chan time.Time, 1)
	t.c = ch
	go func() {
		if err := t.clock.Sleep(ctx, d); err == nil {
			ch <- t.clock.Now()
		}
	}()
}

func (t *clockTimer) Stop() {
	if t.cancel != nil {
		t.cancel()
	}
}

func (t *clockTimer) C() <-chan time.Time {
	return t.c
}
