package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"mercator-hq/archivist/pkg/lifecycle"
)

// Job performs one scheduled run.
type Job func(ctx context.Context) error

// Scheduler runs a job on a cron expression. A run that is still in
// progress when the next tick fires causes that tick to be skipped, so two
// runs never share the ledger.
type Scheduler struct {
	expr    string
	job     Job
	cron    *cron.Cron
	entry   cron.EntryID
	wrapped cron.Job
	mu      sync.Mutex
	logger  *slog.Logger
	running bool

	runs     int
	failures int
	lastErr  error
}

// NewScheduler creates a scheduler for job. It does nothing until Start.
func NewScheduler(expr string, job Job, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "schedule")
	return &Scheduler{
		expr:   expr,
		job:    job,
		cron:   cron.New(cron.WithLogger(cronLogger{logger})),
		logger: logger,
	}
}

// Start registers the job and starts ticking. The scheduler stops itself
// when ctx is cancelled; the context is also handed to every run.
//
// Any standard five field expression or descriptor is accepted:
//   - "0 3 * * *"    - Daily at 3 AM
//   - "*/15 * * * *" - Every 15 minutes
//   - "@every 1h"    - Hourly, counted from start
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	if s.expr == "" {
		return lifecycle.NewConfigurationError("schedule.cron", "a cron expression is required")
	}
	sched, err := parse(s.expr)
	if err != nil {
		return err
	}

	if s.entry != 0 {
		s.cron.Remove(s.entry)
	}
	s.wrapped = cron.NewChain(cron.SkipIfStillRunning(cronLogger{s.logger})).
		Then(cron.FuncJob(func() { s.run(ctx) }))
	s.entry = s.cron.Schedule(sched, s.wrapped)

	s.cron.Start()
	s.running = true

	s.logger.Info("scheduler started", "schedule", s.expr, "next_run", s.nextRunLocked())

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Reschedule swaps the cron expression of a running scheduler.
func (s *Scheduler) Reschedule(expr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if expr == s.expr {
		return nil
	}
	sched, err := parse(expr)
	if err != nil {
		return err
	}
	if !s.running {
		s.expr = expr
		return nil
	}

	// The wrapped job keeps its skip guard, so a run in progress still
	// blocks ticks of the new schedule.
	id := s.cron.Schedule(sched, s.wrapped)
	s.cron.Remove(s.entry)
	s.entry = id
	s.logger.Info("schedule changed", "from", s.expr, "to", expr, "next_run", s.nextRunLocked())
	s.expr = expr
	return nil
}

func parse(expr string) (cron.Schedule, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, lifecycle.NewConfigurationError("schedule.cron", fmt.Sprintf("invalid cron schedule %q: %v", expr, err))
	}
	return sched, nil
}

func (s *Scheduler) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	started := time.Now()
	s.logger.Info("starting scheduled run")

	err := s.job(ctx)

	s.mu.Lock()
	s.runs++
	s.lastErr = err
	if err != nil {
		s.failures++
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("scheduled run failed",
			"error", err,
			"kind", lifecycle.Classify(err),
			"duration", time.Since(started),
		)
		return
	}
	s.logger.Info("scheduled run completed", "duration", time.Since(started), "next_run", s.NextRun())
}

// Stop stops ticking and waits for a run in progress to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Stats returns the number of completed runs, how many failed and the
// error of the most recent one.
func (s *Scheduler) Stats() (runs, failures int, last error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs, s.failures, s.lastErr
}

// Check reports an error while the scheduler is stopped or its most recent
// run failed. It is registered as a readiness check.
func (s *Scheduler) Check(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return errors.New("scheduler is not running")
	}
	if s.lastErr != nil {
		return fmt.Errorf("last run failed: %w", s.lastErr)
	}
	return nil
}

// NextRun returns the next scheduled run time, or nil when not running.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRunLocked()
}

func (s *Scheduler) nextRunLocked() *time.Time {
	if !s.running {
		return nil
	}
	e := s.cron.Entry(s.entry)
	if !e.Valid() || e.Next.IsZero() {
		return nil
	}
	next := e.Next
	return &next
}

// cronLogger routes cron's own messages through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
