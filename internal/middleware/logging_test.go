package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
)

type logEntry struct {
	level slog.Level
	msg   string
	attrs map[string]any
}

type recordingHandler struct {
	level   slog.Level
	attrs   []slog.Attr
	mu      sync.Mutex
	entries []logEntry
}

func (h *recordingHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *recordingHandler) Handle(_ context.Context, record slog.Record) error {
	attrs := map[string]any{}
	for _, attr := range h.attrs {
		attrs[attr.Key] = attr.Value.Any()
	}
	record.Attrs(func(attr slog.Attr) bool {
		attrs[attr.Key] = attr.Value.Any()
		return true
	})

	h.mu.Lock()
	h.entries = append(h.entries, logEntry{
		level: record.Level,
		msg:   record.Message,
		attrs: attrs,
	})
	h.mu.Unlock()
	return nil
}

func (h *recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &recordingHandler{
		level: h.level,
		attrs: append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func (h *recordingHandler) WithGroup(_ string) slog.Handler {
	return &recordingHandler{level: h.level, attrs: h.attrs}
}

func (h *recordingHandler) Entries() []logEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries := make([]logEntry, len(h.entries))
	copy(entries, h.entries)
	return entries
}

func newLoggedRouter(handler *recordingHandler, status int, route string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID(), RequestLogger(slog.New(handler)))
	router.GET(route, func(c *gin.Context) { c.Status(status) })
	return router
}

func TestRequestLoggerLogsInfoOnSuccess(t *testing.T) {
	handler := &recordingHandler{level: slog.LevelInfo}
	router := newLoggedRouter(handler, http.StatusOK, "/api/classify")

	req := httptest.NewRequest(http.MethodGet, "/api/classify", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	router.ServeHTTP(httptest.NewRecorder(), req)

	entries := handler.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.level != slog.LevelInfo {
		t.Fatalf("expected info level, got %s", entry.level)
	}
	if entry.msg != "http_request" {
		t.Fatalf("expected http_request message, got %q", entry.msg)
	}
	if entry.attrs["request_id"] != "req-123" {
		t.Fatalf("expected request_id=req-123, got %v", entry.attrs["request_id"])
	}
	if entry.attrs["path"] != "/api/classify" {
		t.Fatalf("unexpected path: %v", entry.attrs["path"])
	}
	if _, ok := entry.attrs["client_ip"]; !ok {
		t.Fatalf("expected client_ip attribute")
	}
}

func TestRequestLoggerSkipsPolledPathsOnSuccess(t *testing.T) {
	for _, route := range []string{"/health", "/health/ready", "/metrics"} {
		handler := &recordingHandler{level: slog.LevelInfo}
		router := newLoggedRouter(handler, http.StatusOK, route)

		req := httptest.NewRequest(http.MethodGet, route, nil)
		router.ServeHTTP(httptest.NewRecorder(), req)

		if entries := handler.Entries(); len(entries) != 0 {
			t.Fatalf("expected no log entry for %s, got %d", route, len(entries))
		}
	}
}

func TestRequestLoggerLogsWarnOnClientError(t *testing.T) {
	handler := &recordingHandler{level: slog.LevelInfo}
	router := newLoggedRouter(handler, http.StatusBadRequest, "/api/classify")

	req := httptest.NewRequest(http.MethodGet, "/api/classify", nil)
	req.Header.Set(RequestIDHeader, "req-400")
	router.ServeHTTP(httptest.NewRecorder(), req)

	entries := handler.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	if entries[0].level != slog.LevelWarn {
		t.Fatalf("expected warn level, got %s", entries[0].level)
	}
	if fmt.Sprint(entries[0].attrs["status"]) != "400" {
		t.Fatalf("expected status=400, got %v", entries[0].attrs["status"])
	}
}

func TestRequestLoggerLogsErrorOnServerError(t *testing.T) {
	handler := &recordingHandler{level: slog.LevelInfo}
	router := newLoggedRouter(handler, http.StatusInternalServerError, "/api/generate")

	req := httptest.NewRequest(http.MethodGet, "/api/generate", nil)
	req.Header.Set(RequestIDHeader, "req-500")
	router.ServeHTTP(httptest.NewRecorder(), req)

	entries := handler.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	if entries[0].level != slog.LevelError {
		t.Fatalf("expected error level, got %s", entries[0].level)
	}
	if entries[0].attrs["request_id"] != "req-500" {
		t.Fatalf("expected request_id=req-500, got %v", entries[0].attrs["request_id"])
	}
}

func TestRequestLoggerFailedHealthCheckStillLogged(t *testing.T) {
	handler := &recordingHandler{level: slog.LevelInfo}
	router := newLoggedRouter(handler, http.StatusServiceUnavailable, "/health/ready")

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	entries := handler.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected degraded readiness to be logged, got %d entries", len(entries))
	}
	if entries[0].level != slog.LevelError {
		t.Fatalf("expected error level, got %s", entries[0].level)
	}
}
