package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/gin-gonic/gin"

	"github.com/park285/showme-server-go/internal/httperror"
)

type sampleRequest struct {
	Query string `json:"query" binding:"required"`
}

func TestBindJSONRejectsMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString("not-json"))
	c.Request.Header.Set("Content-Type", "application/json")

	var req sampleRequest
	if bindJSON(c, &req) {
		t.Fatalf("expected bindJSON to fail")
	}
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
}

func TestBindJSONAllowEmpty(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	c.Request.Header.Set("Content-Type", "application/json")

	var req sampleRequest
	if !bindJSONAllowEmpty(c, &req) {
		t.Fatalf("expected bindJSONAllowEmpty to succeed")
	}
}

func TestWriteErrorShape(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	writeError(c, httperror.NewTopicNotFound("topic_missing"))

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if resp["error_code"] != "TOPIC_NOT_FOUND" {
		t.Fatalf("unexpected error_code: %v", resp["error_code"])
	}
}
