package ugc

import (
	"time"

	"waypoint-sync/core/reconcile"
	ugcsync "waypoint-sync/feature/ugc/sync"
)

// ReconcileReport is the operator-facing record of one reconciliation.
type ReconcileReport struct {
	RunID      string                   `json:"run_id"`
	Kind       string                   `json:"kind"`
	StartedAt  time.Time                `json:"started_at"`
	FinishedAt time.Time                `json:"finished_at"`
	DryRun     bool                     `json:"dry_run"`
	Confirmed  bool                     `json:"confirmed"`
	Executed   int                      `json:"executed"`
	Plan       *reconcile.ReconcilePlan `json:"plan,omitempty"`
	Error      *ugcsync.ErrorReport     `json:"error,omitempty"`
}

// Status is the current state of the run service.
type Status struct {
	// Running names the run in progress ("sync", "reconcile:Map"), empty when idle.
	Running       string                      `json:"running,omitempty"`
	LastSync      *ugcsync.RunReport          `json:"last_sync,omitempty"`
	LastReconcile map[string]*ReconcileReport `json:"last_reconcile"`
	// NextRuns holds the next scheduled activation per job, when scheduled
	// and not paused.
	NextRuns       map[string]time.Time `json:"next_runs,omitempty"`
	SchedulePaused bool                 `json:"schedule_paused"`
}
