package ugc

import (
	"context"
	"errors"
	"maps"
	"sync"
	"time"

	"waypoint-sync/core/logger"
	"waypoint-sync/core/reconcile"
	ugcsync "waypoint-sync/feature/ugc/sync"
	"waypoint-sync/feature/waypoint"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrRunInProgress is returned when a run is triggered while another one is active.
var ErrRunInProgress = errors.New("a sync or reconcile run is already in progress")

// ErrNoSchedule is returned when the schedule is paused or resumed but none is attached.
var ErrNoSchedule = errors.New("no schedule is attached")

// Syncer runs incremental syncs.
type Syncer interface {
	Run(ctx context.Context, opts ugcsync.Options) (*ugcsync.RunReport, error)
}

// Reconciler runs deletion reconciliation for one kind.
type Reconciler interface {
	Reconcile(ctx context.Context, kind waypoint.AssetKind, opts reconcile.ReconcileOptions) (*reconcile.ReconcilePlan, int, error)
}

// Schedule reports upcoming scheduled runs and can be held.
type Schedule interface {
	NextRuns() map[string]time.Time
	Pause() bool
	Resume() bool
	Paused() bool
}

// Service runs syncs and reconciliations one at a time and keeps their last reports.
type Service struct {
	syncer     Syncer
	reconciler Reconciler
	archive    *Archive
	logger     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	run sync.Mutex

	schedule Schedule

	mu            sync.RWMutex
	running       string
	lastSync      *ugcsync.RunReport
	lastReconcile map[string]*ReconcileReport
}

// NewService creates a run service. archive may be nil.
func NewService(syncer Syncer, reconciler Reconciler, archive *Archive, logger *zap.Logger) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		syncer:        syncer,
		reconciler:    reconciler,
		archive:       archive,
		logger:        logger,
		ctx:           ctx,
		cancel:        cancel,
		lastReconcile: make(map[string]*ReconcileReport),
	}
}

// SetSchedule attaches the scheduler whose next runs are reported by Status.
func (s *Service) SetSchedule(schedule Schedule) {
	s.mu.Lock()
	s.schedule = schedule
	s.mu.Unlock()
}

// StopSchedule pauses the attached schedule. Runs already in progress are
// not interrupted. It reports whether the schedule was running.
func (s *Service) StopSchedule() (bool, error) {
	s.mu.RLock()
	schedule := s.schedule
	s.mu.RUnlock()
	if schedule == nil {
		return false, ErrNoSchedule
	}
	return schedule.Pause(), nil
}

// ResumeSchedule resumes a paused schedule.
func (s *Service) ResumeSchedule() (bool, error) {
	s.mu.RLock()
	schedule := s.schedule
	s.mu.RUnlock()
	if schedule == nil {
		return false, ErrNoSchedule
	}
	return schedule.Resume(), nil
}

// Archive returns the report archive, or nil.
func (s *Service) Archive() *Archive {
	return s.archive
}

func (s *Service) acquire(name string) bool {
	if !s.run.TryLock() {
		return false
	}
	s.mu.Lock()
	s.running = name
	s.mu.Unlock()
	return true
}

func (s *Service) release() {
	s.mu.Lock()
	s.running = ""
	s.mu.Unlock()
	s.run.Unlock()
}

// RunSync runs one sync and waits for it.
func (s *Service) RunSync(ctx context.Context, opts ugcsync.Options) (*ugcsync.RunReport, error) {
	if !s.acquire("sync") {
		return nil, ErrRunInProgress
	}
	defer s.release()
	return s.runSync(ctx, opts)
}

// TriggerSync starts a sync in the background.
func (s *Service) TriggerSync(opts ugcsync.Options) error {
	if !s.acquire("sync") {
		return ErrRunInProgress
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.release()
		_, _ = s.runSync(s.ctx, opts)
	}()
	return nil
}

func (s *Service) runSync(ctx context.Context, opts ugcsync.Options) (*ugcsync.RunReport, error) {
	report, err := s.syncer.Run(ctx, opts)
	if err != nil {
		s.logger.Error("Sync run failed", zap.Error(err))
	}
	if report == nil {
		return nil, err
	}

	s.mu.Lock()
	s.lastSync = report
	s.mu.Unlock()

	s.store(ctx, report.StartedAt, "sync", report.RunID, report)
	return report, err
}

// RunReconcile reconciles kind and waits for it.
func (s *Service) RunReconcile(ctx context.Context, kind waypoint.AssetKind, opts reconcile.ReconcileOptions) (*ReconcileReport, error) {
	if !s.acquire("reconcile:" + kind.String()) {
		return nil, ErrRunInProgress
	}
	defer s.release()
	return s.runReconcile(ctx, kind, opts)
}

// TriggerReconcile starts a reconciliation of kind in the background.
func (s *Service) TriggerReconcile(kind waypoint.AssetKind, opts reconcile.ReconcileOptions) error {
	if !s.acquire("reconcile:" + kind.String()) {
		return ErrRunInProgress
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.release()
		_, _ = s.runReconcile(s.ctx, kind, opts)
	}()
	return nil
}

func (s *Service) runReconcile(ctx context.Context, kind waypoint.AssetKind, opts reconcile.ReconcileOptions) (*ReconcileReport, error) {
	report := &ReconcileReport{
		RunID:     uuid.NewString(),
		Kind:      kind.String(),
		StartedAt: time.Now().UTC(),
		DryRun:    opts.DryRun,
		Confirmed: opts.Confirmed,
	}

	plan, executed, err := s.reconciler.Reconcile(ctx, kind, opts)
	report.FinishedAt = time.Now().UTC()
	report.Plan = plan
	report.Executed = executed
	report.Error = ugcsync.DescribeError(err)

	s.mu.Lock()
	s.lastReconcile[kind.String()] = report
	s.mu.Unlock()

	s.store(ctx, report.StartedAt, "reconcile:"+kind.String(), report.RunID, report)
	return report, err
}

// store archives a report. Archive failures are logged and never fail the run.
func (s *Service) store(ctx context.Context, startedAt time.Time, label, runID string, v any) {
	if s.archive == nil {
		return
	}
	l := logger.WithRun(s.logger, runID, label)
	key := s.archive.ReportKey(startedAt, label, runID)
	if err := s.archive.Put(context.WithoutCancel(ctx), key, v); err != nil {
		l.Warn("Failed to archive run report", zap.String("key", key), zap.Error(err))
		return
	}
	l.Debug("Run report archived", zap.String("key", key))
}

// Status returns the running state and the last reports.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Status{
		Running:       s.running,
		LastSync:      s.lastSync,
		LastReconcile: maps.Clone(s.lastReconcile),
	}
	if s.schedule != nil {
		st.SchedulePaused = s.schedule.Paused()
		if !st.SchedulePaused {
			st.NextRuns = s.schedule.NextRuns()
		}
	}
	return st
}

// Wait blocks until background runs finish.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Close cancels background runs and waits for them.
func (s *Service) Close() {
	s.cancel()
	s.wg.Wait()
}
