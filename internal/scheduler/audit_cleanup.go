package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/mrlokans/session-auth/internal/tasks"
)

// CleanupRunner performs or enqueues one audit cleanup.
type CleanupRunner interface {
	RunAuditCleanup(ctx context.Context, retentionDays int) error
}

// QueueRunner enqueues cleanups on the task queue.
type QueueRunner struct {
	Client *tasks.Client
}

func (r QueueRunner) RunAuditCleanup(ctx context.Context, retentionDays int) error {
	_, err := r.Client.Add(tasks.CleanupAuditEventsTask{RetentionDays: retentionDays}).Ctx(ctx).Save()
	return err
}

// DirectRunner deletes old events in the calling goroutine, for deployments
// with the task queue disabled.
type DirectRunner struct {
	Cleaner tasks.AuditEventCleaner
}

func (r DirectRunner) RunAuditCleanup(_ context.Context, retentionDays int) error {
	task := tasks.CleanupAuditEventsTask{RetentionDays: retentionDays}
	_, err := r.Cleaner.DeleteOldEvents(task.Retention())
	return err
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateCronSchedule checks a five-field cron expression.
func ValidateCronSchedule(schedule string) error {
	_, err := cronParser.Parse(schedule)
	return err
}

// AuditCleanupScheduler triggers audit cleanup on a cron schedule.
type AuditCleanupScheduler struct {
	runner        CleanupRunner
	schedule      string
	retentionDays int
	logger        zerolog.Logger

	cron      *cron.Cron
	entryID   cron.EntryID
	mu        sync.RWMutex
	isRunning bool
	stopped   chan struct{}
}

// NewAuditCleanupScheduler creates a scheduler instance. An empty schedule
// leaves it disabled.
func NewAuditCleanupScheduler(runner CleanupRunner, schedule string, retentionDays int, logger zerolog.Logger) *AuditCleanupScheduler {
	return &AuditCleanupScheduler{
		runner:        runner,
		schedule:      schedule,
		retentionDays: retentionDays,
		logger:        logger.With().Str("component", "audit_cleanup_scheduler").Logger(),
		cron:          cron.New(cron.WithParser(cronParser)),
	}
}

// Start begins the scheduler. It stops by itself when ctx is cancelled.
func (s *AuditCleanupScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if s.schedule == "" {
		s.logger.Info().Msg("Audit cleanup scheduler disabled")
		return nil
	}

	if err := ValidateCronSchedule(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.schedule, err)
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		s.run(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule audit cleanup: %w", err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.isRunning = true
	s.stopped = make(chan struct{})

	s.logger.Info().
		Str("schedule", s.schedule).
		Time("next_run", s.cron.Entry(entryID).Next).
		Msg("Audit cleanup scheduler started")

	stopped := s.stopped
	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-stopped:
		}
	}()

	return nil
}

// Stop stops the scheduler and waits for a running cleanup to finish.
func (s *AuditCleanupScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	// Stop accepting new jobs and wait for running jobs to complete
	<-s.cron.Stop().Done()
	s.cron.Remove(s.entryID)

	s.isRunning = false
	close(s.stopped)

	s.logger.Info().Msg("Audit cleanup scheduler stopped")
}

// IsRunning returns whether the scheduler is active
func (s *AuditCleanupScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRunTime returns when the next cleanup will occur, or nil when stopped.
func (s *AuditCleanupScheduler) NextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	next := s.cron.Entry(s.entryID).Next
	return &next
}

func (s *AuditCleanupScheduler) run(ctx context.Context) {
	if err := s.runner.RunAuditCleanup(ctx, s.retentionDays); err != nil {
		s.logger.Error().Err(err).Msg("Audit cleanup failed")
		return
	}
	s.logger.Debug().Int("retention_days", s.retentionDays).Msg("Audit cleanup triggered")
}
