package sync

import (
	"errors"
	"time"

	"waypoint-sync/core/fetch"
	"waypoint-sync/feature/ugc/enrich"
)

// Outcome is the result of one phase.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeEarlyExit Outcome = "early_exit"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeAborted   Outcome = "aborted"
	OutcomeFailed    Outcome = "failed"
)

// ErrorReport carries the context of a failure for operators.
type ErrorReport struct {
	Message    string `json:"message"`
	Kind       string `json:"kind,omitempty"`
	Offset     *int   `json:"offset,omitempty"`
	AssetID    string `json:"asset_id,omitempty"`
	Step       string `json:"step,omitempty"`
	Endpoint   string `json:"endpoint,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
}

// DescribeError extracts the offset, asset, endpoint and status carried by err.
func DescribeError(err error) *ErrorReport {
	if err == nil {
		return nil
	}
	r := &ErrorReport{Message: err.Error()}

	var pageErr *PageError
	if errors.As(err, &pageErr) {
		start := pageErr.Start
		r.Kind = pageErr.Kind.String()
		r.Offset = &start
	}
	var enrichErr *enrich.Error
	if errors.As(err, &enrichErr) {
		r.Kind = enrichErr.Kind.String()
		r.AssetID = enrichErr.AssetID
		r.Step = enrichErr.Step
	}
	var fetchErr *fetch.Error
	if errors.As(err, &fetchErr) {
		r.Endpoint = fetchErr.URL
		r.StatusCode = fetchErr.StatusCode
	}
	return r
}

// PhaseReport describes one phase of a run.
type PhaseReport struct {
	Phase           string       `json:"phase"`
	Outcome         Outcome      `json:"outcome"`
	Pages           int          `json:"pages"`
	Items           int          `json:"items"`
	Ingested        int          `json:"ingested"`
	Skipped         int          `json:"skipped"`
	Flagged         int64        `json:"flagged,omitempty"`
	Requests        int          `json:"requests"`
	RateLimited     bool         `json:"rate_limited,omitempty"`
	WatermarkBefore *time.Time   `json:"watermark_before,omitempty"`
	WatermarkAfter  *time.Time   `json:"watermark_after,omitempty"`
	Reason          string       `json:"reason,omitempty"`
	Error           *ErrorReport `json:"error,omitempty"`
	Duration        string       `json:"duration"`
}

// RunReport is the operator-facing record of one sync run.
type RunReport struct {
	RunID      string        `json:"run_id"`
	Profile    string        `json:"profile"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Aborted    string        `json:"aborted,omitempty"`
	Phases     []PhaseReport `json:"phases"`
}

// Failed reports whether any phase failed.
func (r *RunReport) Failed() bool {
	for _, p := range r.Phases {
		if p.Outcome == OutcomeFailed {
			return true
		}
	}
	return false
}

// Phase returns the report of the named phase, or nil.
func (r *RunReport) Phase(name string) *PhaseReport {
	for i := range r.Phases {
		if r.Phases[i].Phase == name {
			return &r.Phases[i]
		}
	}
	return nil
}
