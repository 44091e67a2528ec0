package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/session-auth/internal/entities"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(&entities.AuditEvent{})
	require.NoError(t, err)

	return db
}

func authEvent(userID uint, action string, at time.Time) *entities.AuditEvent {
	return &entities.AuditEvent{
		UserID:    userID,
		EventType: entities.AuditEventAuth,
		Action:    action,
		Status:    entities.AuditStatusSuccess,
		CreatedAt: at,
	}
}

func TestRepository_LogEvent(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	event := &entities.AuditEvent{
		UserID:    1,
		EventType: entities.AuditEventAuth,
		Action:    entities.AuditActionLogin,
		Status:    entities.AuditStatusSuccess,
	}

	err := repo.LogEvent(event)
	require.NoError(t, err)
	assert.NotZero(t, event.ID)
	assert.False(t, event.CreatedAt.IsZero())
}

func TestRepository_GetEvents(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	for i := 0; i < 15; i++ {
		require.NoError(t, repo.LogEvent(authEvent(1, entities.AuditActionLogin, time.Now().Add(time.Duration(-i)*time.Hour))))
	}
	require.NoError(t, repo.LogEvent(authEvent(2, entities.AuditActionLogin, time.Now())))

	events, total, err := repo.GetEvents(1, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(15), total)
	assert.Len(t, events, 10)
	assert.True(t, events[0].CreatedAt.After(events[1].CreatedAt), "most recent first")

	events, _, err = repo.GetEvents(1, 10, 10)
	require.NoError(t, err)
	assert.Len(t, events, 5)

	_, total, err = repo.GetEvents(0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(16), total)
}

func TestRepository_GetEventsByAction(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	require.NoError(t, repo.LogEvent(authEvent(1, entities.AuditActionLogin, time.Now())))
	require.NoError(t, repo.LogEvent(authEvent(0, entities.AuditActionLoginFailed, time.Now())))
	require.NoError(t, repo.LogEvent(authEvent(0, entities.AuditActionLoginFailed, time.Now())))

	events, total, err := repo.GetEventsByAction(entities.AuditActionLoginFailed, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for _, e := range events {
		assert.Equal(t, entities.AuditActionLoginFailed, e.Action)
	}
}

func TestRepository_DeleteOldEvents(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	require.NoError(t, repo.LogEvent(authEvent(1, entities.AuditActionLogin, time.Now().Add(-48*time.Hour))))
	require.NoError(t, repo.LogEvent(authEvent(1, entities.AuditActionLogout, time.Now())))

	deleted, err := repo.DeleteOldEvents(time.Now().Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	events, total, err := repo.GetEvents(0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, entities.AuditActionLogout, events[0].Action)
}
