package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/park285/showme-server-go/internal/httperror"
	"github.com/park285/showme-server-go/internal/llm"
	"github.com/park285/showme-server-go/internal/session"
)

// SessionResponse 는 세션 조회 응답이다.
type SessionResponse struct {
	*session.Meta
	History []llm.HistoryEntry `json:"history,omitempty"`
}

// SessionHandler 세션 HTTP 핸들러
type SessionHandler struct {
	manager *session.Manager
	logger  *slog.Logger
}

// NewSessionHandler 세션 핸들러 생성
func NewSessionHandler(manager *session.Manager, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		manager: manager,
		logger:  logger,
	}
}

// RegisterRoutes 세션 라우트 등록
func (h *SessionHandler) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/sessions")
	group.POST("", h.handleCreate)
	group.GET("/:id", h.handleGet)
	group.GET("/:id/topics/:topicId/slides", h.handleSlides)
	group.POST("/:id/topics/:topicId/activate", h.handleActivate)
	group.DELETE("/:id", h.handleDelete)
}

// CreateSessionRequest 는 세션 생성 요청이다. 본문 없이도 호출할 수 있다.
type CreateSessionRequest struct {
	SessionID string `json:"sessionId"`
}

// handleCreate 세션 생성
func (h *SessionHandler) handleCreate(c *gin.Context) {
	var req CreateSessionRequest
	if !bindJSONAllowEmpty(c, &req) {
		return
	}

	meta, err := h.manager.EnsureSession(c.Request.Context(), req.SessionID)
	if err != nil {
		h.logError(err)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, meta)
}

// handleGet 세션 정보 조회 (메타 + 히스토리)
func (h *SessionHandler) handleGet(c *gin.Context) {
	sessionID := c.Param("id")
	if sessionID == "" {
		writeError(c, httperror.NewMissingField("id"))
		return
	}

	snap, err := h.manager.Load(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(c, httperror.NewSessionNotFound(sessionID))
			return
		}
		h.logError(err)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, SessionResponse{Meta: snap.Meta, History: snap.History})
}

// handleSlides 주제별 슬라이드 조회
func (h *SessionHandler) handleSlides(c *gin.Context) {
	sessionID := c.Param("id")
	topicID := c.Param("topicId")

	slides, err := h.manager.Slides(c.Request.Context(), sessionID, topicID)
	if err != nil {
		if errors.Is(err, session.ErrTopicNotFound) {
			writeError(c, httperror.NewTopicNotFound(topicID))
			return
		}
		h.logError(err)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"slides": slides, "topicId": topicID})
}

// handleActivate 활성 주제 전환
func (h *SessionHandler) handleActivate(c *gin.Context) {
	sessionID := c.Param("id")
	topicID := c.Param("topicId")

	if err := h.manager.SetActiveTopic(c.Request.Context(), sessionID, topicID); err != nil {
		switch {
		case errors.Is(err, session.ErrSessionNotFound):
			writeError(c, httperror.NewSessionNotFound(sessionID))
		case errors.Is(err, session.ErrTopicNotFound):
			writeError(c, httperror.NewTopicNotFound(topicID))
		default:
			h.logError(err)
			writeError(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"activeTopicId": topicID})
}

// handleDelete 세션 삭제
func (h *SessionHandler) handleDelete(c *gin.Context) {
	sessionID := c.Param("id")
	if sessionID == "" {
		writeError(c, httperror.NewMissingField("id"))
		return
	}

	err := h.manager.Delete(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(c, httperror.NewSessionNotFound(sessionID))
			return
		}
		h.logError(err)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "session deleted", "id": sessionID})
}

func (h *SessionHandler) logError(err error) {
	if err == nil {
		return
	}
	h.logger.Warn("session_request_failed", "err", err)
}
