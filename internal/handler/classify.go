package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/park285/showme-server-go/internal/classify"
	"github.com/park285/showme-server-go/internal/httperror"
	"github.com/park285/showme-server-go/internal/llm"
	"github.com/park285/showme-server-go/internal/sanitize"
	"github.com/park285/showme-server-go/internal/session"
)

// ClassifyRequest 는 질의 분류 요청이다.
// 세션 ID 가 있으면 주제 상태(개수, 최고령, 활성)는 서버 세션에서 읽고,
// 요청 필드는 화면 스냅샷(현재 슬라이드, 프런트가 아는 활성 주제)을 보충한다.
type ClassifyRequest struct {
	Query               string                 `json:"query" binding:"required"`
	SessionID           string                 `json:"sessionId"`
	ActiveTopicID       string                 `json:"activeTopicId"`
	ActiveTopic         string                 `json:"activeTopic"`
	ConversationHistory []llm.HistoryEntry     `json:"conversationHistory"`
	CurrentSlide        *classify.SlideContext `json:"currentSlide"`
}

// ClassifyResponse 는 분류 결과에 세션 ID 를 덧붙인다.
type ClassifyResponse struct {
	classify.Result
	SessionID string `json:"sessionId,omitempty"`
}

// ClassifyHandler 질의 분류 HTTP 핸들러
type ClassifyHandler struct {
	classifier *classify.Classifier
	sanitizer  *sanitize.Sanitizer
	sessions   *session.Manager
	logger     *slog.Logger
}

// NewClassifyHandler 분류 핸들러 생성
func NewClassifyHandler(
	classifier *classify.Classifier,
	sanitizer *sanitize.Sanitizer,
	sessions *session.Manager,
	logger *slog.Logger,
) *ClassifyHandler {
	return &ClassifyHandler{
		classifier: classifier,
		sanitizer:  sanitizer,
		sessions:   sessions,
		logger:     logger,
	}
}

// RegisterRoutes 분류 라우트 등록
func (h *ClassifyHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/api/classify", h.handleClassify)
}

// handleClassify 는 분류 파이프라인의 HTTP 진입점이다.
// 분류기는 상태를 바꾸지 않는다. 퇴출 권고의 적용도 여기서 일어난다.
func (h *ClassifyHandler) handleClassify(c *gin.Context) {
	var req ClassifyRequest
	if !bindJSON(c, &req) {
		return
	}

	query, err := h.sanitizer.CleanQuery(req.Query)
	if err != nil {
		writeError(c, err)
		return
	}

	in := classify.Input{
		Query:               query,
		ActiveTopicID:       req.ActiveTopicID,
		ConversationHistory: req.ConversationHistory,
		CurrentSlide:        req.CurrentSlide,
	}
	if req.ActiveTopicID != "" {
		in.ActiveTopic = &classify.ActiveTopic{ID: req.ActiveTopicID, Name: req.ActiveTopic}
	}

	sessionID := req.SessionID
	if sessionID != "" {
		snap, err := h.sessions.Load(c.Request.Context(), sessionID)
		if err != nil {
			if errors.Is(err, session.ErrSessionNotFound) {
				writeError(c, httperror.NewSessionNotFound(sessionID))
				return
			}
			h.logError(err)
			writeError(c, err)
			return
		}

		in.TopicCount = snap.Meta.TopicCount()
		in.OldestTopicID = snap.Meta.OldestTopicID()
		if in.ActiveTopic == nil {
			if active := snap.Meta.ActiveTopic(); active != nil {
				in.ActiveTopicID = active.ID
				in.ActiveTopic = &classify.ActiveTopic{ID: active.ID, Name: active.Name}
			}
		}
		if len(in.ConversationHistory) == 0 {
			in.ConversationHistory = snap.History
		}
	}

	result := h.classifier.Classify(c.Request.Context(), in)

	if result.ShouldEvictOldest && sessionID != "" {
		if err := h.sessions.EvictTopic(c.Request.Context(), sessionID, result.EvictTopicID); err != nil {
			h.logError(err)
		}
	}

	if result.Kind == classify.KindChitchat && sessionID != "" {
		if err := h.sessions.RecordExchange(c.Request.Context(), sessionID, query, result.ResponseText); err != nil {
			h.logError(err)
		}
	}

	c.JSON(http.StatusOK, ClassifyResponse{Result: result, SessionID: sessionID})
}

func (h *ClassifyHandler) logError(err error) {
	if err == nil {
		return
	}
	h.logger.Warn("classify_request_failed", "err", err)
}
