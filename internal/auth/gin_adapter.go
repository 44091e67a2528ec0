package auth

import (
	"bufio"
	"net"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/session-auth/internal/logutil"
)

// sessionResponseWriter writes the session cookie just before the response
// headers go out. Headers are flushed on the first write, so committing after
// the handler returns would be too late.
type sessionResponseWriter struct {
	gin.ResponseWriter
	sm            *SessionManager
	request       *http.Request
	wroteHeader   bool
	cookieWritten bool
}

func (w *sessionResponseWriter) WriteHeader(code int) {
	w.beforeHeader()
	w.ResponseWriter.WriteHeader(code)
}

func (w *sessionResponseWriter) WriteHeaderNow() {
	w.beforeHeader()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *sessionResponseWriter) Write(b []byte) (int, error) {
	w.beforeHeader()
	return w.ResponseWriter.Write(b)
}

func (w *sessionResponseWriter) WriteString(s string) (int, error) {
	w.beforeHeader()
	return w.ResponseWriter.WriteString(s)
}

func (w *sessionResponseWriter) beforeHeader() {
	if !w.wroteHeader {
		w.wroteHeader = true
		w.writeSessionCookie()
	}
}

func (w *sessionResponseWriter) writeSessionCookie() {
	if w.cookieWritten {
		return
	}
	w.cookieWritten = true

	ctx := w.request.Context()
	switch w.sm.Status(ctx) {
	case scs.Modified:
		token, expiry, err := w.sm.Commit(ctx)
		if err != nil {
			log := logutil.GetOrDefault(ctx)
			log.Error().Err(err).Msg("Failed to commit session")
			return
		}
		w.sm.WriteSessionCookie(ctx, w.ResponseWriter, token, expiry)
	case scs.Destroyed:
		w.sm.WriteSessionCookie(ctx, w.ResponseWriter, "", time.Time{})
	}
}

// Hijack implements http.Hijacker for WebSocket support.
func (w *sessionResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return w.ResponseWriter.Hijack()
}

// SessionLoadSave returns a Gin middleware that loads the session named by
// the request cookie into the request context and saves it with the
// response. It must run before the Gate.
func (sm *SessionManager) SessionLoadSave() gin.HandlerFunc {
	return func(c *gin.Context) {
		var token string
		cookie, err := c.Request.Cookie(sm.Cookie.Name)
		if err == nil {
			token = cookie.Value
		}

		ctx, err := sm.Load(c.Request.Context(), token)
		if err != nil {
			log := logutil.GetOrDefault(c.Request.Context())
			log.Error().Err(err).Msg("Failed to load session")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"errors": internalErrorMessage})
			return
		}
		c.Request = c.Request.WithContext(ctx)

		srw := &sessionResponseWriter{
			ResponseWriter: c.Writer,
			sm:             sm,
			request:        c.Request,
		}
		c.Writer = srw

		c.Next()

		// Ensure session cookie is written even if no response body
		if !srw.wroteHeader {
			srw.writeSessionCookie()
		}
	}
}
