// Package scheduler triggers periodic sync and reconciliation runs.
//
// It wraps robfig/cron with standard five-field expressions and descriptors
// (@hourly, @every 30m). A job whose previous execution is still running is
// skipped, and every execution receives a context cancelled by Stop.
package scheduler
