package reconcile

import (
	"time"

	"waypoint-sync/core/ratelimit"
	"waypoint-sync/core/reconcile"
)

// Config tunes deletion reconciliation.
type Config struct {
	// ProbeBatchSize is the number of existence probes run concurrently.
	ProbeBatchSize int `mapstructure:"probe_batch_size" default:"5"`
	// ProbeBatchDelayMs is the pause between probe batches.
	ProbeBatchDelayMs int `mapstructure:"probe_batch_delay_ms" default:"1000"`
}

// Spec builds the engine spec for adapter.
func (c Config) Spec(adapter reconcile.Adapter, clock ratelimit.Clock) *reconcile.Spec {
	return &reconcile.Spec{
		Adapter:    adapter,
		BatchSize:  c.ProbeBatchSize,
		BatchDelay: time.Duration(c.ProbeBatchDelayMs) * time.Millisecond,
		Clock:      clock,
	}
}
