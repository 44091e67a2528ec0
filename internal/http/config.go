package http

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/mrlokans/session-auth/internal/auth"
	"github.com/mrlokans/session-auth/internal/database"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Database *database.Database
	Logger   zerolog.Logger

	// Authentication
	SessionManager *auth.SessionManager
	Gate           *auth.Gate
	AuthController *auth.AuthController

	// CSRF protection, off unless enabled
	CSRFEnabled   bool
	CSRFSecret    string
	SecureCookies bool

	// AuditCleanup is reported by /health when set.
	AuditCleanup CleanupSchedule

	// Metrics exposes the Prometheus registry; nil disables /metrics.
	Metrics http.Handler

	// Application info
	Version string
}
