package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/session-auth/internal/database"
)

type HealthResponse struct {
	Status           string            `json:"status"`
	Time             string            `json:"time"`
	Version          string            `json:"version,omitempty"`
	Checks           map[string]string `json:"checks"`
	NextAuditCleanup string            `json:"next_audit_cleanup,omitempty"`
}

// CleanupSchedule reports the state of the audit cleanup scheduler.
type CleanupSchedule interface {
	IsRunning() bool
	NextRunTime() *time.Time
}

type HealthController struct {
	db      *database.Database
	cleanup CleanupSchedule
	version string
}

// NewHealthController creates the controller. cleanup may be nil.
func NewHealthController(db *database.Database, cleanup CleanupSchedule, version string) *HealthController {
	return &HealthController{
		db:      db,
		cleanup: cleanup,
		version: version,
	}
}

func (h *HealthController) Status(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"

	// Sessions and users share the one database
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			checks["database"] = "unreachable"
			status = "unhealthy"
		} else {
			checks["database"] = "ok"
		}
	} else {
		checks["database"] = "not configured"
	}

	health := HealthResponse{
		Status:  status,
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks:  checks,
	}

	// A stopped scheduler is reported but does not make the service unhealthy
	if h.cleanup != nil {
		if h.cleanup.IsRunning() {
			checks["audit_cleanup"] = "scheduled"
			if next := h.cleanup.NextRunTime(); next != nil {
				health.NextAuditCleanup = next.Format(time.RFC3339)
			}
		} else {
			checks["audit_cleanup"] = "stopped"
		}
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, health)
}

// Ping answers liveness probes.
func Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}
