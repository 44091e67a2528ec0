package auth

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/samber/oops"

	"github.com/mrlokans/session-auth/internal/config"
)

// SessionKeyUserID is the only session field the service reads or writes.
const SessionKeyUserID = "user_id"

// SessionCookieName is the cookie that carries the opaque session token.
const SessionCookieName = "session"

// Session is the per-client state the service mutates. The transport
// encoding (cookie, token, storage row) stays behind the implementation.
type Session interface {
	// UserID returns the authenticated user id, ok is false when none is set.
	UserID() (id uint, ok bool)
	// SetUserID marks the session as authenticated for id.
	SetUserID(id uint) error
	// ClearUserID returns the session to anonymous. Clearing an anonymous
	// session is not an error.
	ClearUserID() error
}

// SessionProvider yields the Session bound to an HTTP request.
type SessionProvider interface {
	ForRequest(r *http.Request) Session
}

// SessionManager wraps scs.SessionManager with a SQLite-backed store.
type SessionManager struct {
	*scs.SessionManager
	store *sqlite3store.SQLite3Store
}

// NewSessionManager creates a configured session manager.
// The sqlDB parameter should be the underlying *sql.DB from GORM.
func NewSessionManager(sqlDB *sql.DB, cfg config.Auth) (*SessionManager, error) {
	// Create sessions table if it doesn't exist
	_, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expiry REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`)
	if err != nil {
		return nil, oops.Code("SESSION_STORE_INIT_FAILED").Wrap(err)
	}

	sm := scs.New()

	store := sqlite3store.NewWithCleanupInterval(sqlDB, 5*time.Minute)
	sm.Store = store

	lifetime := cfg.SessionLifetime
	if lifetime <= 0 {
		lifetime = 24 * time.Hour
	}
	sm.Lifetime = lifetime
	sm.IdleTimeout = lifetime / 2 // Half of lifetime for inactivity

	sm.Cookie.Name = SessionCookieName
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = cfg.SecureCookies
	sm.Cookie.SameSite = http.SameSiteStrictMode
	sm.Cookie.Path = "/"

	return &SessionManager{SessionManager: sm, store: store}, nil
}

// Close stops the store's background cleanup of expired sessions.
func (sm *SessionManager) Close() {
	if sm.store != nil {
		sm.store.StopCleanup()
	}
}

// ForRequest returns the Session for a request that went through SessionLoadSave.
func (sm *SessionManager) ForRequest(r *http.Request) Session {
	return &requestSession{sm: sm, ctx: r.Context()}
}

// requestSession binds the manager to the context holding the loaded session data.
type requestSession struct {
	sm  *SessionManager
	ctx context.Context
}

func (s *requestSession) UserID() (uint, bool) {
	// Stored as int to match GetInt() retrieval
	id := s.sm.GetInt(s.ctx, SessionKeyUserID)
	if id <= 0 {
		return 0, false
	}
	return uint(id), true
}

func (s *requestSession) SetUserID(id uint) error {
	// Renew token to prevent session fixation
	if err := s.sm.RenewToken(s.ctx); err != nil {
		return oops.Code("SESSION_WRITE_FAILED").With("operation", "renew token").Wrap(err)
	}
	s.sm.Put(s.ctx, SessionKeyUserID, int(id))
	return nil
}

func (s *requestSession) ClearUserID() error {
	s.sm.Remove(s.ctx, SessionKeyUserID)
	if err := s.sm.RenewToken(s.ctx); err != nil {
		return oops.Code("SESSION_WRITE_FAILED").With("operation", "renew token").Wrap(err)
	}
	return nil
}
