package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// requestLog finds the access log entry among recorded logs.
func requestLog(t *testing.T, recorded *observer.ObservedLogs) *observer.LoggedEntry {
	t.Helper()
	logs := recorded.All()
	for i := range logs {
		if logs[i].Message == "request completed" {
			return &logs[i]
		}
	}
	t.Fatal("no access log entry recorded")
	return nil
}

func TestGinMiddleware(t *testing.T) {
	t.Run("logs successful requests at info", func(t *testing.T) {
		core, recorded := observer.New(zapcore.InfoLevel)

		router := gin.New()
		router.Use(GinMiddleware(zap.New(core)))
		router.GET("/sync/status", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"healthy": true})
		})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/sync/status", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		entry := requestLog(t, recorded)
		assert.Equal(t, zapcore.InfoLevel, entry.Level)
	})

	t.Run("logs 4xx at warn", func(t *testing.T) {
		core, recorded := observer.New(zapcore.WarnLevel)

		router := gin.New()
		router.Use(GinMiddleware(zap.New(core)))
		router.POST("/sync/daily", func(c *gin.Context) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cap"})
		})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/sync/daily", nil)
		router.ServeHTTP(w, req)

		entry := requestLog(t, recorded)
		assert.Equal(t, zapcore.WarnLevel, entry.Level)
	})

	t.Run("logs 5xx at error", func(t *testing.T) {
		core, recorded := observer.New(zapcore.ErrorLevel)

		router := gin.New()
		router.Use(GinMiddleware(zap.New(core)))
		router.GET("/sync/queue", func(c *gin.Context) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "storage unavailable"})
		})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/sync/queue", nil)
		router.ServeHTTP(w, req)

		entry := requestLog(t, recorded)
		assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	})

	t.Run("carries the request id set upstream", func(t *testing.T) {
		core, recorded := observer.New(zapcore.InfoLevel)

		router := gin.New()
		router.Use(func(c *gin.Context) {
			c.Set("request_id", "req-42")
			c.Next()
		})
		router.Use(GinMiddleware(zap.New(core)))
		router.GET("/sync/status", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{})
		})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/sync/status", nil)
		router.ServeHTTP(w, req)

		entry := requestLog(t, recorded)
		found := false
		for _, field := range entry.Context {
			if field.Key == "request_id" {
				found = true
				assert.Equal(t, "req-42", field.String)
			}
		}
		assert.True(t, found, "request_id should be in log fields")
	})

	t.Run("includes the query string when present", func(t *testing.T) {
		core, recorded := observer.New(zapcore.InfoLevel)

		router := gin.New()
		router.Use(GinMiddleware(zap.New(core)))
		router.GET("/sync/logs", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{})
		})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/sync/logs?entity_type=payment&failures=true", nil)
		router.ServeHTTP(w, req)

		entry := requestLog(t, recorded)
		found := false
		for _, field := range entry.Context {
			if field.Key == "query" {
				found = true
				assert.Contains(t, field.String, "entity_type=payment")
			}
		}
		assert.True(t, found, "query should be in log fields")
	})

	t.Run("records the standard access fields", func(t *testing.T) {
		core, recorded := observer.New(zapcore.InfoLevel)

		router := gin.New()
		router.Use(GinMiddleware(zap.New(core)))
		router.POST("/sync/retries/process", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{})
		})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/sync/retries/process", nil)
		req.Header.Set("User-Agent", "circletel-healthcheck/1.0")
		router.ServeHTTP(w, req)

		entry := requestLog(t, recorded)
		keys := make(map[string]bool)
		for _, field := range entry.Context {
			keys[field.Key] = true
		}
		for _, want := range []string{"status", "latency", "client_ip", "user_agent", "method", "path"} {
			assert.True(t, keys[want], "missing field %s", want)
		}
	})
}

func TestRecovery(t *testing.T) {
	core, recorded := observer.New(zapcore.ErrorLevel)

	router := gin.New()
	router.Use(Recovery(zap.New(core)))
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/panic", nil)

	assert.NotPanics(t, func() {
		router.ServeHTTP(w, req)
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	logs := recorded.All()
	require.NotEmpty(t, logs)
	assert.Equal(t, "panic recovered", logs[0].Message)
}

func TestGetGinLogger(t *testing.T) {
	t.Run("returns the request-scoped logger", func(t *testing.T) {
		core, _ := observer.New(zapcore.InfoLevel)

		var got *zap.Logger
		router := gin.New()
		router.Use(GinMiddleware(zap.New(core)))
		router.GET("/sync/status", func(c *gin.Context) {
			got = GetGinLogger(c)
			c.JSON(http.StatusOK, gin.H{})
		})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/sync/status", nil)
		router.ServeHTTP(w, req)

		assert.NotNil(t, got)
	})

	t.Run("returns a usable no-op logger without the middleware", func(t *testing.T) {
		var got *zap.Logger
		router := gin.New()
		router.GET("/sync/status", func(c *gin.Context) {
			got = GetGinLogger(c)
			c.JSON(http.StatusOK, gin.H{})
		})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/sync/status", nil)
		router.ServeHTTP(w, req)

		require.NotNil(t, got)
		assert.NotPanics(t, func() {
			got.Info("unreachable sink")
		})
	})
}
