package auth

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/session-auth/internal/database/users"
	"github.com/mrlokans/session-auth/internal/entities"
	"github.com/mrlokans/session-auth/internal/logutil"
)

// Operation names a routed action. The gate decides per operation, not per
// path.
type Operation string

const (
	OpSignup    Operation = "signup"
	OpLogin     Operation = "login"
	OpLogout    Operation = "logout"
	OpAutologin Operation = "autologin"

	// Infrastructure probes.
	OpHealth  Operation = "health"
	OpPing    Operation = "ping"
	OpMetrics Operation = "metrics"
)

// DefaultExempt lists the operations reachable without a session.
var DefaultExempt = []Operation{OpSignup, OpLogin}

// Gin context keys
const (
	ContextKeyUser    = "auth_user"
	ContextKeySession = "auth_session"
)

// UserFinder loads users for the gate.
type UserFinder interface {
	GetUserByID(ctx context.Context, id uint) (*entities.User, error)
}

// Gate rejects unauthenticated requests to any operation outside its exempt
// set.
type Gate struct {
	users    UserFinder
	sessions SessionProvider
	exempt   map[Operation]bool
}

// NewGate creates a gate. With no exempt operations given, DefaultExempt is
// used.
func NewGate(users UserFinder, sessions SessionProvider, exempt ...Operation) *Gate {
	if len(exempt) == 0 {
		exempt = DefaultExempt
	}
	set := make(map[Operation]bool, len(exempt))
	for _, op := range exempt {
		set[op] = true
	}
	return &Gate{users: users, sessions: sessions, exempt: set}
}

// Exempt reports whether op is reachable without authentication.
func (g *Gate) Exempt(op Operation) bool {
	return g.exempt[op]
}

// ResolveCurrentUser loads the user referenced by the session. A session
// without a user id, or with an id whose user no longer exists, resolves to
// (nil, nil). Only store failures return an error.
func (g *Gate) ResolveCurrentUser(ctx context.Context, sess Session) (*entities.User, error) {
	id, ok := sess.UserID()
	if !ok {
		return nil, nil
	}
	user, err := g.users.GetUserByID(ctx, id)
	if errors.Is(err, users.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// IsAuthenticated reports whether the session resolves to an existing user.
// Store failures count as unauthenticated.
func (g *Gate) IsAuthenticated(ctx context.Context, sess Session) bool {
	user, err := g.ResolveCurrentUser(ctx, sess)
	return err == nil && user != nil
}

// Decide resolves the current user and decides whether op may proceed. The
// returned user may be nil for exempt operations, which also ignore store
// failures.
func (g *Gate) Decide(ctx context.Context, sess Session, op Operation) (*entities.User, *Error) {
	user, err := g.ResolveCurrentUser(ctx, sess)
	if g.Exempt(op) {
		if err != nil {
			return nil, nil
		}
		return user, nil
	}
	if err != nil {
		return nil, &Error{Kind: ErrInternal, Cause: err}
	}
	if user == nil {
		return nil, &Error{Kind: ErrUnauthorized, Messages: []string{MsgPleaseLogIn}}
	}
	return user, nil
}

// Guard returns the middleware that runs before the handler of op.
func (g *Gate) Guard(op Operation) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := g.sessions.ForRequest(c.Request)
		user, authErr := g.Decide(c.Request.Context(), sess, op)
		if authErr != nil {
			if authErr.Kind == ErrInternal {
				log := logutil.GetOrDefault(c.Request.Context())
				log.Error().
					Err(authErr.Cause).
					Str("operation", string(op)).
					Msg("failed to resolve current user")
			}
			c.AbortWithStatusJSON(authErr.Status(), authErr.Body())
			return
		}

		c.Set(ContextKeySession, sess)
		if user != nil {
			c.Set(ContextKeyUser, user)
		}
		c.Next()
	}
}

// CurrentUser returns the user resolved by the gate, or nil.
func CurrentUser(c *gin.Context) *entities.User {
	if v, exists := c.Get(ContextKeyUser); exists {
		if user, ok := v.(*entities.User); ok {
			return user
		}
	}
	return nil
}

// CurrentSession returns the session attached by the gate. Outside a guarded
// route it returns nil.
func CurrentSession(c *gin.Context) Session {
	if v, exists := c.Get(ContextKeySession); exists {
		if sess, ok := v.(Session); ok {
			return sess
		}
	}
	return nil
}
