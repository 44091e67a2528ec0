package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/session-auth/internal/auth"
	"github.com/mrlokans/session-auth/internal/logutil"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// Every route is registered behind cfg.Gate under its operation name.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(logutil.RequestLogger(cfg.Logger))
	router.Use(gin.Recovery())

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())
	if cfg.SecureCookies {
		router.Use(auth.StrictTransportSecurityMiddleware())
	}

	// CSRF must run before session so that session context is preserved
	if cfg.CSRFEnabled {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies))
	}

	router.Use(cfg.SessionManager.SessionLoadSave())

	cfg.AuthController.RegisterRoutes(router, cfg.Gate)

	health := NewHealthController(cfg.Database, cfg.AuditCleanup, cfg.Version)
	router.GET("/health", cfg.Gate.Guard(auth.OpHealth), health.Status)
	router.GET("/ping", cfg.Gate.Guard(auth.OpPing), Ping)
	if cfg.Metrics != nil {
		router.GET("/metrics", cfg.Gate.Guard(auth.OpMetrics), gin.WrapH(cfg.Metrics))
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"errors": "Not found"})
	})

	return router
}
