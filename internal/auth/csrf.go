package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
)

// CSRFTokenHeader carries the CSRF token in both directions: responses
// expose it, unsafe requests must echo it back.
const CSRFTokenHeader = "X-CSRF-Token"

// CSRFMiddleware creates a Gin middleware for CSRF protection of the cookie
// session. Safe methods pass and receive a token; unsafe methods without a
// matching token get 403.
func CSRFMiddleware(secret string, secure bool) gin.HandlerFunc {
	csrfProtect := csrf.Protect(
		csrfKey(secret),
		csrf.Secure(secure),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteStrictMode),
		csrf.Path("/"),
		csrf.RequestHeader(CSRFTokenHeader),
		csrf.ErrorHandler(http.HandlerFunc(csrfErrorHandler)),
	)

	return func(c *gin.Context) {
		if c.Request.TLS == nil && c.GetHeader("X-Forwarded-Proto") != "https" {
			c.Request = csrf.PlaintextHTTPRequest(c.Request)
		}

		passed := false
		handler := csrfProtect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			passed = true
			c.Header(CSRFTokenHeader, csrf.Token(r))
			// Session middleware runs after this and layers its context on
			// top of the CSRF one.
			c.Request = r
			c.Next()
		}))

		handler.ServeHTTP(c.Writer, c.Request)
		if !passed {
			c.Abort()
		}
	}
}

func csrfErrorHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte(`{"errors":"CSRF token invalid or missing"}`))
}

// csrfKey derives the 32-byte key gorilla/csrf needs. A 64-character hex
// secret is used as is, anything else is hashed.
func csrfKey(secret string) []byte {
	if key, err := hex.DecodeString(secret); err == nil && len(key) == 32 {
		return key
	}
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}
