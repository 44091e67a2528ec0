package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mrlokans/session-auth/internal/audit"
	"github.com/mrlokans/session-auth/internal/auth"
	"github.com/mrlokans/session-auth/internal/config"
	"github.com/mrlokans/session-auth/internal/database"
	auditrepo "github.com/mrlokans/session-auth/internal/database/audit"
	"github.com/mrlokans/session-auth/internal/database/users"
	"github.com/mrlokans/session-auth/internal/entities"
)

// CreateUser adds a user to the configured database with the same
// validation as signup.
func CreateUser(ctx context.Context, cfg *config.Config, username, password string) (*entities.PublicUser, error) {
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	service, err := auth.NewService(users.NewRepository(db.DB), auth.NewBcryptHasher(cfg.Auth.BcryptCost), nil)
	if err != nil {
		return nil, err
	}

	res := service.Register(ctx, username, password)
	if res.Err != nil {
		if res.Err.Kind == auth.ErrValidationFailed {
			return nil, fmt.Errorf("invalid user: %s", strings.Join(res.Err.Messages, ", "))
		}
		return nil, res.Err
	}

	if err := logAdminEvent(db, entities.AuditActionUserCreated, res.User.ID, res.User.Username); err != nil {
		return nil, err
	}
	return res.User, nil
}

// DeleteUser removes the named user. Sessions that still carry its id are
// treated as logged out on their next request.
func DeleteUser(ctx context.Context, cfg *config.Config, username string) (*entities.PublicUser, error) {
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	repo := users.NewRepository(db.DB)
	user, err := repo.GetUserByUsername(ctx, username)
	if errors.Is(err, users.ErrNotFound) {
		return nil, fmt.Errorf("user %q not found", username)
	}
	if err != nil {
		return nil, err
	}
	if err := repo.DeleteUser(ctx, user.ID); err != nil {
		return nil, err
	}

	if err := logAdminEvent(db, entities.AuditActionUserDeleted, user.ID, user.Username); err != nil {
		return nil, err
	}
	pub := user.Public()
	return &pub, nil
}

// AuditFilter selects events for ListAudit. Action takes precedence over
// UserID.
type AuditFilter struct {
	Action string
	UserID uint
	Limit  int
	Offset int
}

// ListAudit returns one page of audit events, newest first, and the total
// number of matching events.
func ListAudit(cfg *config.Config, filter AuditFilter) ([]entities.AuditEvent, int64, error) {
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		return nil, 0, err
	}
	defer db.Close()

	svc := audit.NewService(auditrepo.NewRepository(db.DB))
	if filter.Action != "" {
		return svc.GetEventsByAction(filter.Action, filter.Limit, filter.Offset)
	}
	return svc.GetEvents(filter.UserID, filter.Limit, filter.Offset)
}

// logAdminEvent writes synchronously; the command exits right after.
func logAdminEvent(db *database.Database, action string, userID uint, username string) error {
	svc := audit.NewService(auditrepo.NewRepository(db.DB))
	return svc.Log(&entities.AuditEvent{
		UserID:    userID,
		EventType: entities.AuditEventAdmin,
		Action:    action,
		Username:  username,
		Status:    entities.AuditStatusSuccess,
	})
}

// PruneAudit deletes audit events older than days and reports how many
// were removed.
func PruneAudit(cfg *config.Config, days int) (int64, error) {
	if days <= 0 {
		return 0, fmt.Errorf("days must be positive, got %d", days)
	}

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	cutoff := time.Now().Add(-time.Duration(days) * 24 * time.Hour)
	return auditrepo.NewRepository(db.DB).DeleteOldEvents(cutoff)
}
