package entrypoint

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/session-auth/internal/auth"
	"github.com/mrlokans/session-auth/internal/config"
	"github.com/mrlokans/session-auth/internal/database"
	auditrepo "github.com/mrlokans/session-auth/internal/database/audit"
	"github.com/mrlokans/session-auth/internal/entities"
)

func testConfig(t *testing.T, tasksEnabled bool) *config.Config {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.Database.Path = filepath.Join(t.TempDir(), "app.db")
	cfg.Auth.BcryptCost = 4
	cfg.Auth.SessionLifetime = time.Hour
	cfg.Audit.RetentionDays = 30
	cfg.Audit.CleanupSchedule = "0 3 * * *"
	cfg.Tasks.Enabled = tasksEnabled
	cfg.Tasks.Workers = 1
	return cfg
}

func TestNewApp_ServesAuthFlow(t *testing.T) {
	for _, tasksEnabled := range []bool{false, true} {
		name := "inline cleanup"
		if tasksEnabled {
			name = "task queue"
		}
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			app, err := NewApp(ctx, testConfig(t, tasksEnabled), zerolog.Nop(), "test")
			require.NoError(t, err)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(`{"username":"alice","password":"pw123"}`))
			req.Header.Set("Content-Type", "application/json")
			app.Router.ServeHTTP(w, req)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.JSONEq(t, `{"id":1,"username":"alice"}`, w.Body.String())

			var session *http.Cookie
			for _, c := range w.Result().Cookies() {
				if c.Name == auth.SessionCookieName {
					session = c
				}
			}
			require.NotNil(t, session)

			w = httptest.NewRecorder()
			req = httptest.NewRequest(http.MethodGet, "/autologin", nil)
			req.AddCookie(session)
			app.Router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)

			w = httptest.NewRecorder()
			app.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), `"audit_cleanup":"scheduled"`)

			app.Audit.Wait()
			events, total, err := app.Audit.GetEvents(1, 10, 0)
			require.NoError(t, err)
			assert.EqualValues(t, 1, total)
			assert.Equal(t, entities.AuditActionSignup, events[0].Action)

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer shutdownCancel()
			app.Shutdown(shutdownCtx)
		})
	}
}

func TestNewApp_RejectsBadSchedule(t *testing.T) {
	cfg := testConfig(t, false)
	cfg.Audit.CleanupSchedule = "not a schedule"

	_, err := NewApp(context.Background(), cfg, zerolog.Nop(), "test")
	assert.ErrorContains(t, err, "invalid cron schedule")
}

func TestCreateUser(t *testing.T) {
	cfg := testConfig(t, false)

	user, err := CreateUser(context.Background(), cfg, "admin", "secret")
	require.NoError(t, err)
	assert.Equal(t, "admin", user.Username)

	_, err = CreateUser(context.Background(), cfg, "admin", "secret")
	assert.ErrorContains(t, err, "Username has already been taken")

	_, err = CreateUser(context.Background(), cfg, "", "")
	assert.ErrorContains(t, err, "Username can't be blank, Password can't be blank")
}

func TestPruneAudit(t *testing.T) {
	cfg := testConfig(t, false)

	db, err := database.NewDatabase(cfg.Database.Path)
	require.NoError(t, err)
	repo := auditrepo.NewRepository(db.DB)
	require.NoError(t, repo.LogEvent(&entities.AuditEvent{
		EventType: entities.AuditEventAuth,
		Action:    entities.AuditActionLogin,
		Status:    entities.AuditStatusSuccess,
		CreatedAt: time.Now().Add(-40 * 24 * time.Hour),
	}))
	require.NoError(t, repo.LogEvent(&entities.AuditEvent{
		EventType: entities.AuditEventAuth,
		Action:    entities.AuditActionLogout,
		Status:    entities.AuditStatusSuccess,
	}))
	require.NoError(t, db.Close())

	deleted, err := PruneAudit(cfg, 30)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	_, err = PruneAudit(cfg, 0)
	assert.Error(t, err)
}

func TestDeleteUser_EndsOpenSessions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfg := testConfig(t, false)

	app, err := NewApp(ctx, cfg, zerolog.Nop(), "test")
	require.NoError(t, err)
	defer app.Shutdown(context.Background())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(`{"username":"alice","password":"pw123"}`))
	req.Header.Set("Content-Type", "application/json")
	app.Router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cookies := w.Result().Cookies()

	deleted, err := DeleteUser(ctx, cfg, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", deleted.Username)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/autologin", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	app.Router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"message":"Please log in"}`, w.Body.String())

	_, err = DeleteUser(ctx, cfg, "alice")
	assert.ErrorContains(t, err, `user "alice" not found`)
}

func TestListAudit(t *testing.T) {
	cfg := testConfig(t, false)
	ctx := context.Background()

	_, err := CreateUser(ctx, cfg, "admin", "secret")
	require.NoError(t, err)
	_, err = DeleteUser(ctx, cfg, "admin")
	require.NoError(t, err)

	events, total, err := ListAudit(cfg, AuditFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, events, 2)

	events, total, err = ListAudit(cfg, AuditFilter{Action: entities.AuditActionUserDeleted})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, events, 1)
	assert.Equal(t, "admin", events[0].Username)
	assert.Equal(t, entities.AuditEventAdmin, events[0].EventType)

	_, total, err = ListAudit(cfg, AuditFilter{UserID: 99})
	require.NoError(t, err)
	assert.Zero(t, total)
}
