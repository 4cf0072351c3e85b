package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/park285/showme-server-go/internal/config"
)

func newRateLimitedRouter(perMinute int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{HTTPRateLimit: config.HTTPRateLimitConfig{
		RequestsPerMinute: perMinute,
		CacheSize:         10,
		CacheTTLSeconds:   int(time.Minute.Seconds()),
	}}

	router := gin.New()
	router.Use(RateLimit(cfg))
	router.GET("/api/classify", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func doRateLimited(router *gin.Engine, addr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/classify", nil)
	req.RemoteAddr = addr
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestRateLimitBlocksOverLimit(t *testing.T) {
	router := newRateLimitedRouter(1)

	if resp := doRateLimited(router, "1.2.3.4:1234"); resp.Code != http.StatusOK {
		t.Fatalf("expected ok, got %d", resp.Code)
	}

	second := doRateLimited(router, "1.2.3.4:1234")
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected rate limit, got %d", second.Code)
	}
	retryAfter, err := strconv.Atoi(second.Header().Get("Retry-After"))
	if err != nil || retryAfter < 0 || retryAfter > 60 {
		t.Fatalf("expected Retry-After within window, got %q", second.Header().Get("Retry-After"))
	}
}

func TestRateLimitSeparatesClients(t *testing.T) {
	router := newRateLimitedRouter(1)

	if resp := doRateLimited(router, "1.2.3.4:1234"); resp.Code != http.StatusOK {
		t.Fatalf("expected ok, got %d", resp.Code)
	}
	if resp := doRateLimited(router, "5.6.7.8:1234"); resp.Code != http.StatusOK {
		t.Fatalf("other client must have its own window, got %d", resp.Code)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	router := newRateLimitedRouter(0)

	for i := 0; i < 3; i++ {
		if resp := doRateLimited(router, "1.2.3.4:1234"); resp.Code != http.StatusOK {
			t.Fatalf("expected unrestricted access, got %d", resp.Code)
		}
	}
}
