package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is a named periodic task.
type Job struct {
	Name string
	// Schedule is a standard five-field cron expression. Empty disables the job.
	Schedule string
	// Timeout bounds one execution. Zero means no timeout.
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// Scheduler runs jobs on cron schedules. An execution that is still running
// when its next tick fires is skipped.
type Scheduler struct {
	cron    *cron.Cron
	logger  *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	entries map[string]cron.EntryID
	paused  atomic.Bool
	stop    sync.Once
}

// New creates a stopped scheduler.
func New(logger *zap.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	cl := cronLogger{logger.Sugar()}
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor)),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
			cron.WithLogger(cl),
		),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[string]cron.EntryID),
	}
}

// Add registers a job. Jobs without a schedule are ignored.
func (s *Scheduler) Add(job Job) error {
	if job.Schedule == "" {
		s.logger.Info("Scheduled job disabled", zap.String("job", job.Name))
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[job.Name]; exists {
		return fmt.Errorf("job %q already registered", job.Name)
	}

	id, err := s.cron.AddFunc(job.Schedule, func() { s.execute(job) })
	if err != nil {
		return fmt.Errorf("invalid cron expression for %q: %w", job.Name, err)
	}
	s.entries[job.Name] = id
	s.logger.Info("Scheduled job registered", zap.String("job", job.Name), zap.String("schedule", job.Schedule))
	return nil
}

func (s *Scheduler) execute(job Job) {
	if s.paused.Load() {
		s.logger.Info("Scheduled job skipped, scheduler paused", zap.String("job", job.Name))
		return
	}
	ctx := s.ctx
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	began := time.Now()
	if err := job.Run(ctx); err != nil {
		s.logger.Error("Scheduled job failed",
			zap.String("job", job.Name),
			zap.Duration("took", time.Since(began)),
			zap.Error(err))
		return
	}
	s.logger.Info("Scheduled job finished", zap.String("job", job.Name), zap.Duration("took", time.Since(began)))
}

// Next returns the next activation of a registered job.
func (s *Scheduler) Next(name string) (time.Time, bool) {
	s.mu.Lock()
	id, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(id).Next, true
}

// NextRuns returns the next activation of every registered job by name.
func (s *Scheduler) NextRuns() map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make(map[string]time.Time, len(s.entries))
	for name, id := range s.entries {
		next[name] = s.cron.Entry(id).Next
	}
	return next
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Pause stops jobs from firing until Resume. Executions already running
// are left to finish. It reports whether the scheduler was running.
func (s *Scheduler) Pause() bool {
	if !s.paused.CompareAndSwap(false, true) {
		return false
	}
	s.logger.Info("Scheduler paused", zap.Int("jobs", s.Jobs()))
	return true
}

// Resume lets paused jobs fire again on their next tick.
func (s *Scheduler) Resume() bool {
	if !s.paused.CompareAndSwap(true, false) {
		return false
	}
	s.logger.Info("Scheduler resumed", zap.Int("jobs", s.Jobs()))
	return true
}

// Paused reports whether jobs are held by Pause.
func (s *Scheduler) Paused() bool {
	return s.paused.Load()
}

// Start starts the scheduler in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels running jobs and waits for them. Safe to call multiple times.
func (s *Scheduler) Stop() {
	s.stop.Do(func() {
		s.cancel()
		<-s.cron.Stop().Done()
		s.logger.Info("Scheduler stopped")
	})
}

// cronLogger routes cron's own messages to zap.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
