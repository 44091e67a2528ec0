package auth

import (
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/session-auth/internal/audit"
	"github.com/mrlokans/session-auth/internal/entities"
	"github.com/mrlokans/session-auth/internal/logutil"
)

// Credentials is the signup and login request body, JSON or form encoded.
type Credentials struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// AuditLogger records auth events.
type AuditLogger interface {
	LogAuth(e audit.AuthEvent)
}

// AuthController handles the auth HTTP endpoints.
type AuthController struct {
	service     *Service
	sessions    SessionProvider
	rateLimiter *RateLimiter
	audit       AuditLogger
}

// NewAuthController creates the controller. rateLimiter and auditLogger may
// be nil.
func NewAuthController(service *Service, sessions SessionProvider, rateLimiter *RateLimiter, auditLogger AuditLogger) *AuthController {
	return &AuthController{
		service:     service,
		sessions:    sessions,
		rateLimiter: rateLimiter,
		audit:       auditLogger,
	}
}

// RegisterRoutes registers the auth routes, each behind the gate.
func (ac *AuthController) RegisterRoutes(router gin.IRoutes, gate *Gate) {
	router.POST("/signup", gate.Guard(OpSignup), ac.Signup)
	router.POST("/login", gate.Guard(OpLogin), ac.Login)
	router.POST("/logout", gate.Guard(OpLogout), ac.Logout)
	router.GET("/autologin", gate.Guard(OpAutologin), ac.Autologin)
}

// Stop releases the rate limiter.
func (ac *AuthController) Stop() {
	if ac.rateLimiter != nil {
		ac.rateLimiter.Stop()
	}
}

// Signup handles POST /signup.
func (ac *AuthController) Signup(c *gin.Context) {
	creds, ok := bindCredentials(c)
	if !ok {
		return
	}

	res := ac.service.Signup(c.Request.Context(), ac.session(c), creds.Username, creds.Password)
	ac.finish(c, OpSignup, res)

	if res.OK() {
		ac.recordAudit(c, entities.AuditActionSignup, res.User.ID, res.User.Username, true)
	}
	res.Render(c)
}

// Login handles POST /login.
func (ac *AuthController) Login(c *gin.Context) {
	creds, ok := bindCredentials(c)
	if !ok {
		return
	}

	ip := c.ClientIP()
	if ac.rateLimiter != nil {
		if allowed, retryAfter := ac.rateLimiter.Allow(ip, creds.Username); !allowed {
			ac.tooManyAttempts(c, creds.Username, retryAfter)
			return
		}
	}

	res := ac.service.Login(c.Request.Context(), ac.session(c), creds.Username, creds.Password)
	ac.finish(c, OpLogin, res)

	switch {
	case res.OK():
		if ac.rateLimiter != nil {
			ac.rateLimiter.RecordSuccess(ip, creds.Username)
		}
		ac.recordAudit(c, entities.AuditActionLogin, res.User.ID, res.User.Username, true)
	case res.Err.Kind == ErrInvalidCredentials:
		if ac.rateLimiter != nil {
			ac.rateLimiter.RecordFailure(ip, creds.Username)
		}
		ac.recordAudit(c, entities.AuditActionLoginFailed, 0, creds.Username, false)
	}
	res.Render(c)
}

// Logout handles POST /logout.
func (ac *AuthController) Logout(c *gin.Context) {
	user := CurrentUser(c)

	res := ac.service.Logout(ac.session(c))
	ac.finish(c, OpLogout, res)

	if res.OK() && user != nil {
		ac.recordAudit(c, entities.AuditActionLogout, user.ID, user.Username, true)
	}
	res.Render(c)
}

// Autologin handles GET /autologin.
func (ac *AuthController) Autologin(c *gin.Context) {
	ac.service.Autologin(CurrentUser(c)).Render(c)
}

func (ac *AuthController) session(c *gin.Context) Session {
	if sess := CurrentSession(c); sess != nil {
		return sess
	}
	return ac.sessions.ForRequest(c.Request)
}

// finish logs internal failures; their cause never reaches the client.
func (ac *AuthController) finish(c *gin.Context, op Operation, res Result) {
	if res.Err == nil || res.Err.Kind != ErrInternal {
		return
	}
	log := logutil.GetOrDefault(c.Request.Context())
	log.Error().
		Err(res.Err.Cause).
		Str("operation", string(op)).
		Msg("auth operation failed")
}

func (ac *AuthController) tooManyAttempts(c *gin.Context, username string, retryAfter time.Duration) {
	seconds := int(math.Ceil(retryAfter.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	c.Header("Retry-After", strconv.Itoa(seconds))

	ac.service.metrics.Record(OpLogin, outcomeRateLimited)
	ac.recordAudit(c, entities.AuditActionLoginFailed, 0, username, false)

	err := &Error{Kind: ErrRateLimited, Messages: []string{MsgTooManyAttempts}}
	c.JSON(err.Status(), err.Body())
}

func (ac *AuthController) recordAudit(c *gin.Context, action string, userID uint, username string, success bool) {
	if ac.audit == nil {
		return
	}
	ac.audit.LogAuth(audit.AuthEvent{
		UserID:    userID,
		Username:  username,
		Action:    action,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Success:   success,
	})
}

// bindCredentials reads the request body. A missing body yields empty
// credentials, which the service then rejects.
func bindCredentials(c *gin.Context) (Credentials, bool) {
	var creds Credentials
	if err := c.ShouldBind(&creds); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"errors": MsgInvalidBody})
		return Credentials{}, false
	}
	return creds, true
}
