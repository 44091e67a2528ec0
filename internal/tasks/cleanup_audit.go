package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/rs/zerolog"
)

// CleanupAuditEventsQueue is the backlite queue name for audit cleanup.
const CleanupAuditEventsQueue = "cleanup_audit_events"

// DefaultAuditRetentionDays applies when a task carries no retention.
const DefaultAuditRetentionDays = 30

// AuditEventCleaner provides the ability to delete old audit events.
type AuditEventCleaner interface {
	DeleteOldEvents(retention time.Duration) (int64, error)
}

// CleanupAuditEventsTask removes audit events older than the configured retention period.
type CleanupAuditEventsTask struct {
	RetentionDays int `json:"retention_days"`
}

// Config returns the queue configuration for audit cleanup tasks.
func (t CleanupAuditEventsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        CleanupAuditEventsQueue,
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// Retention converts RetentionDays into a duration.
func (t CleanupAuditEventsTask) Retention() time.Duration {
	days := t.RetentionDays
	if days <= 0 {
		days = DefaultAuditRetentionDays
	}
	return time.Duration(days) * 24 * time.Hour
}

// CleanupAuditEventsProcessor creates a processor function for CleanupAuditEventsTask.
func CleanupAuditEventsProcessor(cleaner AuditEventCleaner, logger zerolog.Logger) backlite.QueueProcessor[CleanupAuditEventsTask] {
	return func(ctx context.Context, task CleanupAuditEventsTask) error {
		if cleaner == nil {
			return fmt.Errorf("audit event cleaner not configured")
		}

		retention := task.Retention()
		deleted, err := cleaner.DeleteOldEvents(retention)
		if err != nil {
			return fmt.Errorf("cleanup audit events: %w", err)
		}

		logger.Info().
			Int64("deleted", deleted).
			Dur("retention", retention).
			Msg("Cleaned up audit events")
		return nil
	}
}

// NewCleanupAuditEventsQueue creates a backlite queue for audit cleanup tasks.
func NewCleanupAuditEventsQueue(cleaner AuditEventCleaner, logger zerolog.Logger) backlite.Queue {
	return backlite.NewQueue(CleanupAuditEventsProcessor(cleaner, logger))
}
