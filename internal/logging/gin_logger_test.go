package logging

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func newTestEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(GinAccessLog())
	engine.Use(GinRecovery())
	engine.GET("/ok", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	engine.GET("/boom", func(c *gin.Context) {
		panic("boom")
	})
	return engine
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.StandardLogger().Out
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(prev) })
	return &buf
}

func TestGinAccessLogRecordsRequest(t *testing.T) {
	buf := captureLogs(t)
	engine := newTestEngine()

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/ok?q=1", nil)
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	out := buf.String()
	if !strings.Contains(out, "GET /ok?q=1") {
		t.Errorf("access log missing method and path: %q", out)
	}
	if !strings.Contains(out, "status") {
		t.Errorf("access log missing status field: %q", out)
	}
}

func TestGinRecoveryReturns500(t *testing.T) {
	buf := captureLogs(t)
	engine := newTestEngine()

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/boom", nil)
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 after panic, got %d", w.Code)
	}
	if !strings.Contains(buf.String(), "recovered from handler panic") {
		t.Errorf("panic was not logged: %q", buf.String())
	}
}
