package audit

import (
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/mrlokans/session-auth/internal/database/audit"
	"github.com/mrlokans/session-auth/internal/entities"
)

// AuthEvent describes one authentication attempt or session change.
type AuthEvent struct {
	UserID    uint
	Username  string
	Action    string
	IPAddress string
	UserAgent string
	Success   bool
}

// Service provides high-level audit logging functionality.
type Service struct {
	repo    *audit.Repository
	pending sync.WaitGroup
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo}
}

// Log records a generic audit event.
func (s *Service) Log(event *entities.AuditEvent) error {
	return s.repo.LogEvent(event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.repo.LogEvent(event); err != nil {
			log.Error().Err(err).Str("action", event.Action).Msg("Failed to log audit event")
		}
	}()
}

// Wait blocks until all events queued with LogAsync have been written.
func (s *Service) Wait() {
	s.pending.Wait()
}

// LogAuth records an authentication event.
func (s *Service) LogAuth(e AuthEvent) {
	event := &entities.AuditEvent{
		UserID:    e.UserID,
		EventType: entities.AuditEventAuth,
		Action:    e.Action,
		Username:  truncate(e.Username, 100),
		IPAddress: truncate(e.IPAddress, 45),
		UserAgent: truncate(e.UserAgent, 500),
		Status:    entities.AuditStatusSuccess,
	}

	if !e.Success {
		event.Status = entities.AuditStatusFailed
	}

	s.LogAsync(event)
}

// GetEvents retrieves paginated audit events. A zero userID covers everyone.
func (s *Service) GetEvents(userID uint, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEvents(userID, limit, offset)
}

// GetEventsByAction retrieves paginated audit events with the given action.
func (s *Service) GetEventsByAction(action string, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEventsByAction(action, limit, offset)
}

// DeleteOldEvents removes events older than the specified duration.
func (s *Service) DeleteOldEvents(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	return s.repo.DeleteOldEvents(cutoff)
}

// truncate shortens s to at most maxLen bytes without splitting a rune,
// marking the cut with "..." when there is room for it.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 0 {
		return ""
	}

	suffix := "..."
	if maxLen <= len(suffix) {
		suffix = ""
	}
	cut := maxLen - len(suffix)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + suffix
}
