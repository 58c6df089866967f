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

// newObservedEngine wires GinMiddleware behind a stand-in request ID
// middleware, the same order the router uses.
func newObservedEngine() (*gin.Engine, *observer.ObservedLogs) {
	core, recorded := observer.New(zapcore.DebugLevel)
	log := zap.New(core)

	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		c.Set(ginRequestIDKey, "req-abc123")
	})
	engine.Use(GinMiddleware(log))
	engine.Use(Recovery(log))
	return engine, recorded
}

func performRequest(engine *gin.Engine, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	engine.ServeHTTP(w, req)
	return w
}

func requestLog(t *testing.T, recorded *observer.ObservedLogs) observer.LoggedEntry {
	t.Helper()
	entries := recorded.FilterMessage("request completed").All()
	require.Len(t, entries, 1)
	return entries[0]
}

func TestGinMiddleware_LogsRequest(t *testing.T) {
	engine, recorded := newObservedEngine()
	engine.GET("/invoices/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := performRequest(engine, http.MethodGet, "/invoices/42?expand=items")
	assert.Equal(t, http.StatusOK, w.Code)

	entry := requestLog(t, recorded)
	assert.Equal(t, zapcore.InfoLevel, entry.Level)

	fields := entry.ContextMap()
	assert.Equal(t, "req-abc123", fields["request_id"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])
	assert.Equal(t, http.MethodGet, fields["method"])
	assert.Equal(t, "/invoices/42", fields["path"])
	assert.Equal(t, "/invoices/:id", fields["route"])
	assert.Equal(t, "expand=items", fields["query"])
}

func TestGinMiddleware_LevelTracksStatus(t *testing.T) {
	engine, recorded := newObservedEngine()
	engine.GET("/missing", func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})
	engine.GET("/broken", func(c *gin.Context) {
		c.Status(http.StatusInternalServerError)
	})

	performRequest(engine, http.MethodGet, "/missing")
	performRequest(engine, http.MethodGet, "/broken")

	entries := recorded.FilterMessage("request completed").All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
}

func TestGinMiddleware_ThreadsRequestContext(t *testing.T) {
	engine, _ := newObservedEngine()

	var seenID string
	engine.GET("/invoices", func(c *gin.Context) {
		seenID = GetRequestID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	performRequest(engine, http.MethodGet, "/invoices")
	assert.Equal(t, "req-abc123", seenID)
}

func TestRecovery(t *testing.T) {
	engine, recorded := newObservedEngine()
	engine.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	w := performRequest(engine, http.MethodGet, "/panic")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	entries := recorded.FilterMessage("panic recovered").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "boom", fields["panic"])
	assert.Equal(t, "req-abc123", fields["request_id"])
	assert.Equal(t, "/panic", fields["path"])
}

func TestFromGin(t *testing.T) {
	log := zap.NewNop()

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.NotNil(t, FromGin(c))

	c.Set(ginLoggerKey, log)
	assert.Same(t, log, FromGin(c))
}
