package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	// consecutiveStep is the request count that adds 1x to the delay multiplier.
	consecutiveStep = 100
	// maxConsecutiveMultiplier caps the growth from consecutive requests.
	maxConsecutiveMultiplier = 2.0
	// highVolumeRamp is the run time after which the high volume multiplier is capped.
	highVolumeRamp = 15 * time.Minute
	// maxHighVolumeMultiplier caps the growth from time spent in a high volume run.
	maxHighVolumeMultiplier = 2.0
)

// Profile selects how aggressively requests are spaced.
type Profile struct {
	// Name is used in logs only.
	Name string
	// BaseDelay is the minimum spacing between two requests.
	BaseDelay time.Duration
	// RateLimitedMultiplier applies once any request saw HTTP 429.
	RateLimitedMultiplier float64
	// HighVolume enables the time-in-run multiplier.
	HighVolume bool
}

// DefaultProfile is used for routine incremental runs.
func DefaultProfile() Profile {
	return Profile{
		Name:                  "default",
		BaseDelay:             250 * time.Millisecond,
		RateLimitedMultiplier: 1.5,
	}
}

// ConservativeProfile is used for catch-up backfills.
func ConservativeProfile() Profile {
	return Profile{
		Name:                  "conservative",
		BaseDelay:             time.Second,
		RateLimitedMultiplier: 3,
		HighVolume:            true,
	}
}

// State is a snapshot of the limiter counters.
type State struct {
	Consecutive int
	RateLimited bool
	LastRequest time.Time
	Profile     string
}

// Limiter spaces outbound requests with an adaptive delay.
// It is safe for concurrent use; the counters are process wide for one run
// and must be Reset at phase boundaries.
type Limiter struct {
	mu          sync.Mutex
	clock       Clock
	profile     Profile
	consecutive int
	lastRequest time.Time
	rateLimited bool
	runStart    time.Time
}

// New creates a limiter with the given profile. A nil clock means the wall clock.
func New(profile Profile, clock Clock) *Limiter {
	if clock == nil {
		clock = RealClock()
	}
	return &Limiter{
		clock:   clock,
		profile: normalize(profile),
	}
}

func normalize(p Profile) Profile {
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	if p.RateLimitedMultiplier < 1 {
		p.RateLimitedMultiplier = 1
	}
	return p
}

// Clock returns the clock the limiter sleeps on.
func (l *Limiter) Clock() Clock {
	return l.clock
}

// SetProfile switches the active profile. Counters are kept.
func (l *Limiter) SetProfile(p Profile) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.profile = normalize(p)
}

// Profile returns the active profile.
func (l *Limiter) Profile() Profile {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.profile
}

// Delay returns the delay the next request would have to respect.
func (l *Limiter) Delay() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.delayLocked(l.clock.Now())
}

func (l *Limiter) delayLocked(now time.Time) time.Duration {
	multiplier := 1 + float64(l.consecutive)/consecutiveStep
	if multiplier > maxConsecutiveMultiplier {
		multiplier = maxConsecutiveMultiplier
	}

	if l.rateLimited {
		multiplier *= l.profile.RateLimitedMultiplier
	}

	if l.profile.HighVolume && !l.runStart.IsZero() {
		hv := 1 + float64(now.Sub(l.runStart))/float64(highVolumeRamp)
		if hv > maxHighVolumeMultiplier {
			hv = maxHighVolumeMultiplier
		}
		if hv > 1 {
			multiplier *= hv
		}
	}

	return time.Duration(float64(l.profile.BaseDelay) * multiplier)
}

// Wait blocks until the next request may be sent and records it.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	now := l.clock.Now()
	if l.runStart.IsZero() {
		l.runStart = now
	}

	delay := l.delayLocked(now)
	var wait time.Duration
	if !l.lastRequest.IsZero() {
		if elapsed := now.Sub(l.lastRequest); elapsed < delay {
			wait = delay - elapsed
		}
	}

	// Reserve the slot before sleeping so concurrent callers queue behind it.
	l.lastRequest = now.Add(wait)
	l.consecutive++
	l.mu.Unlock()

	if wait > 0 {
		return l.clock.Sleep(ctx, wait)
	}
	return nil
}

// MarkRateLimited installs the slow-down flag for the rest of the run.
func (l *Limiter) MarkRateLimited() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rateLimited = true
}

// Reset clears counters, the rate-limited flag and the run start.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.consecutive = 0
	l.lastRequest = time.Time{}
	l.rateLimited = false
	l.runStart = time.Time{}
}

// Snapshot returns the current counters.
func (l *Limiter) Snapshot() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return State{
		Consecutive: l.consecutive,
		RateLimited: l.rateLimited,
		LastRequest: l.lastRequest,
		Profile:     l.profile.Name,
	}
}
