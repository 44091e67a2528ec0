// Package logutil configures zerolog and carries loggers through contexts.
package logutil

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type (
	key byte
)

var (
	loggerKey = key(1)
)

// New builds a logger writing to w. format "console" gives human-readable
// output, anything else JSON lines. Unknown levels fall back to info.
func New(w io.Writer, level, format string) zerolog.Logger {
	if w == nil {
		w = os.Stdout
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// SetDefault replaces the global logger used by GetOrDefault.
func SetDefault(logger zerolog.Logger) {
	log.Logger = logger
}

func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

func GetOrDefault(ctx context.Context) zerolog.Logger {
	v := ctx.Value(loggerKey)
	if v == nil {
		return log.Logger
	}
	return v.(zerolog.Logger)
}

// RequestLogger logs one line per request and stores a request-scoped logger
// in the request context.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqLogger := logger.With().
			Str("http.method", c.Request.Method).
			Str("http.path", c.Request.URL.Path).
			Str("http.client_ip", c.ClientIP()).
			Logger()
		c.Request = c.Request.WithContext(WithLogger(c.Request.Context(), reqLogger))

		c.Next()

		status := c.Writer.Status()
		ev := reqLogger.Info()
		if status >= 500 {
			ev = reqLogger.Error()
		}
		ev.Int("http.status", status).
			Dur("http.latency", time.Since(start)).
			Msg("request handled")
	}
}
