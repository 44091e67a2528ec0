// Package auth implements session-based authentication: signup, login,
// logout and autologin, plus the gate that guards every other route.
//
// A request passes through SessionManager.SessionLoadSave, then the Gate
// for its Operation, then the AuthController, which calls the Service.
// Only signup and login are reachable without a session; every other
// operation, including ones registered later, is rejected with 401 unless
// the session's user id resolves to an existing user.
//
// # Configuration
//
//	AUTH_SESSION_LIFETIME=24h      # Session duration
//	AUTH_BCRYPT_COST=12            # bcrypt cost factor
//	AUTH_SECURE_COOKIES=true       # HTTPS-only cookies
//	AUTH_CSRF_ENABLED=false        # gorilla/csrf protection
//	AUTH_SESSION_SECRET=<hex>      # CSRF key, generated if empty
//	AUTH_MAX_LOGIN_ATTEMPTS=5      # Failures before lockout
//
// # Usage
//
//	gate := auth.NewGate(userRepo, sessionManager)
//	controller := auth.NewAuthController(service, sessionManager, limiter, auditService)
//	router.Use(sessionManager.SessionLoadSave())
//	controller.RegisterRoutes(router, gate)
//
// Protect any further route by naming its operation:
//
//	router.GET("/profile", gate.Guard("profile"), handler)
package auth
