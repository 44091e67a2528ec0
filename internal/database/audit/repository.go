// Package audit persists authentication audit events.
package audit

import (
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/session-auth/internal/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// LogEvent saves an audit event to the database.
func (r *Repository) LogEvent(event *entities.AuditEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	return r.db.Create(event).Error
}

// GetEvents retrieves paginated audit events for a user, ordered by most recent first.
// A zero userID returns events for everyone.
func (r *Repository) GetEvents(userID uint, limit, offset int) ([]entities.AuditEvent, int64, error) {
	query := r.db.Model(&entities.AuditEvent{})
	if userID > 0 {
		query = query.Where("user_id = ?", userID)
	}
	return r.page(query, limit, offset)
}

// GetEventsByAction retrieves audit events with the given action, e.g. "login_failed".
func (r *Repository) GetEventsByAction(action string, limit, offset int) ([]entities.AuditEvent, int64, error) {
	query := r.db.Model(&entities.AuditEvent{}).Where("action = ?", action)
	return r.page(query, limit, offset)
}

func (r *Repository) page(query *gorm.DB, limit, offset int) ([]entities.AuditEvent, int64, error) {
	var events []entities.AuditEvent
	var total int64

	query = query.Session(&gorm.Session{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&events).Error
	return events, total, err
}

// DeleteOldEvents removes audit events older than the specified time.
// Returns the number of deleted events.
func (r *Repository) DeleteOldEvents(olderThan time.Time) (int64, error) {
	result := r.db.Where("created_at < ?", olderThan).Delete(&entities.AuditEvent{})
	return result.RowsAffected, result.Error
}
