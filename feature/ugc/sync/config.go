package sync

import (
	"time"

	"waypoint-sync/core/ratelimit"
)

// Config tunes the sync engine.
type Config struct {
	// PageSize is the search page size.
	PageSize int `mapstructure:"page_size" default:"20"`
	// Attempts is the per-request attempt budget during normal processing.
	Attempts int `mapstructure:"attempts" default:"3"`
	// RecoveryAttempts is the budget used when a failed page is retried.
	RecoveryAttempts int `mapstructure:"recovery_attempts" default:"5"`
	// PageRetryCooldownSeconds is the wait before retrying a failed page.
	PageRetryCooldownSeconds int `mapstructure:"page_retry_cooldown_seconds" default:"60"`
	// PhaseCooldownSeconds is the pause between sync phases.
	PhaseCooldownSeconds int `mapstructure:"phase_cooldown_seconds" default:"10"`
	// GraceMinutes is added to publish times before comparing with the watermark.
	GraceMinutes int `mapstructure:"grace_minutes" default:"5"`
	// BackfillThresholdHours switches to the conservative profile when the
	// Map watermark is older than this.
	BackfillThresholdHours int `mapstructure:"backfill_threshold_hours" default:"168"`

	BaseDelayMs                       int     `mapstructure:"base_delay_ms" default:"250"`
	RateLimitedMultiplier             float64 `mapstructure:"rate_limited_multiplier" default:"1.5"`
	ConservativeBaseDelayMs           int     `mapstructure:"conservative_base_delay_ms" default:"1000"`
	ConservativeRateLimitedMultiplier float64 `mapstructure:"conservative_rate_limited_multiplier" default:"3"`
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// PageRetryCooldown returns the wait before a page is retried.
func (c Config) PageRetryCooldown() time.Duration {
	return seconds(c.PageRetryCooldownSeconds)
}

// PhaseCooldown returns the pause between phases.
func (c Config) PhaseCooldown() time.Duration {
	return seconds(c.PhaseCooldownSeconds)
}

// Grace returns the publish-time skew.
func (c Config) Grace() time.Duration {
	return time.Duration(c.GraceMinutes) * time.Minute
}

// BackfillThreshold returns the watermark age that triggers the conservative profile.
func (c Config) BackfillThreshold() time.Duration {
	return time.Duration(c.BackfillThresholdHours) * time.Hour
}

// DefaultProfile returns the limiter profile for routine runs.
func (c Config) DefaultProfile() ratelimit.Profile {
	p := ratelimit.DefaultProfile()
	if c.BaseDelayMs > 0 {
		p.BaseDelay = time.Duration(c.BaseDelayMs) * time.Millisecond
	}
	if c.RateLimitedMultiplier > 0 {
		p.RateLimitedMultiplier = c.RateLimitedMultiplier
	}
	return p
}

// ConservativeProfile returns the limiter profile for large backfills.
func (c Config) ConservativeProfile() ratelimit.Profile {
	p := ratelimit.ConservativeProfile()
	if c.ConservativeBaseDelayMs > 0 {
		p.BaseDelay = time.Duration(c.ConservativeBaseDelayMs) * time.Millisecond
	}
	if c.ConservativeRateLimitedMultiplier > 0 {
		p.RateLimitedMultiplier = c.ConservativeRateLimitedMultiplier
	}
	return p
}

func (c Config) withDefaults() Config {
	if c.PageSize <= 0 {
		c.PageSize = 20
	}
	if c.Attempts <= 0 {
		c.Attempts = 3
	}
	if c.RecoveryAttempts < c.Attempts {
		c.RecoveryAttempts = c.Attempts + 2
	}
	return c
}
