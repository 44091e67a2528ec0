package logutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_LevelFallback(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "bogus", "json")
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())

	logger.Debug().Msg("hidden")
	assert.Empty(t, buf.String())

	logger.Info().Msg("shown")
	assert.Contains(t, buf.String(), `"message":"shown"`)
}

func TestGetOrDefault(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "debug", "json")

	ctx := WithLogger(context.Background(), logger)
	log := GetOrDefault(ctx)
	log.Info().Msg("from context")
	assert.Contains(t, buf.String(), "from context")

	// No logger in context returns the global one without panicking
	_ = GetOrDefault(context.Background())
}

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	logger := New(&buf, "info", "json")

	router := gin.New()
	router.Use(RequestLogger(logger))
	router.GET("/x", func(c *gin.Context) {
		c.Status(http.StatusTeapot)
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "GET", line["http.method"])
	assert.Equal(t, "/x", line["http.path"])
	assert.Equal(t, float64(http.StatusTeapot), line["http.status"])
}
