package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/park285/showme-server-go/internal/config"
	"github.com/park285/showme-server-go/internal/generate"
	"github.com/park285/showme-server-go/internal/httperror"
	"github.com/park285/showme-server-go/internal/llm"
	"github.com/park285/showme-server-go/internal/sanitize"
	"github.com/park285/showme-server-go/internal/session"
)

// Generator 는 생성 서비스 인터페이스다.
// 테스트에서 mock 구현을 주입할 수 있도록 한다.
type Generator interface {
	GenerateTopic(ctx context.Context, query string, history []llm.HistoryEntry, notify generate.ProgressFunc) (*generate.TopicContent, error)
	ExtendTopic(ctx context.Context, query string, topic session.Topic, history []llm.HistoryEntry, notify generate.ProgressFunc) (*generate.TopicContent, error)
	GenerateEngagement(ctx context.Context, query string) (*generate.Engagement, error)
}

// GenerateRequest 는 슬라이드쇼 생성 요청이다.
// TopicID 가 있으면 기존 주제에 이어 붙이는 후속 생성이다.
type GenerateRequest struct {
	Query     string `json:"query" binding:"required"`
	SessionID string `json:"sessionId"`
	TopicID   string `json:"topicId"`
}

// GenerateResponse 는 생성 결과다.
type GenerateResponse struct {
	Slides    []session.Slide `json:"slides"`
	Topic     session.Topic   `json:"topic"`
	SegmentID string          `json:"segmentId"`
	SessionID string          `json:"sessionId,omitempty"`
}

// EngagementRequest 는 참여 콘텐츠 요청이다.
type EngagementRequest struct {
	Query string `json:"query" binding:"required"`
}

// GenerateHandler 슬라이드쇼 생성 HTTP 핸들러
type GenerateHandler struct {
	generator Generator
	sanitizer *sanitize.Sanitizer
	sessions  *session.Manager
	upgrader  *websocket.Upgrader
	logger    *slog.Logger
}

// NewGenerateHandler 생성 핸들러 생성
func NewGenerateHandler(
	generator Generator,
	sanitizer *sanitize.Sanitizer,
	sessions *session.Manager,
	cfg *config.Config,
	logger *slog.Logger,
) *GenerateHandler {
	return &GenerateHandler{
		generator: generator,
		sanitizer: sanitizer,
		sessions:  sessions,
		upgrader:  newUpgrader(cfg.HTTP.AllowedOrigins),
		logger:    logger,
	}
}

// RegisterRoutes 생성 라우트 등록
func (h *GenerateHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/api/generate", h.handleGenerate)
	router.POST("/api/generate/engagement", h.handleEngagement)
	router.GET("/ws/generation", h.handleGenerationSocket)
}

// handleGenerate 는 질의에서 슬라이드쇼를 만든다.
// 세션 ID 가 없으면 상태를 남기지 않는 1회성 생성이다.
func (h *GenerateHandler) handleGenerate(c *gin.Context) {
	var req GenerateRequest
	if !bindJSON(c, &req) {
		return
	}

	query, err := h.sanitizer.CleanQuery(req.Query)
	if err != nil {
		writeError(c, err)
		return
	}

	response, err := h.runGeneration(c.Request.Context(), req.SessionID, req.TopicID, query, nil)
	if err != nil {
		h.writeGenerationError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// runGeneration 은 HTTP 와 WebSocket 진입점이 공유하는 생성 본체다.
func (h *GenerateHandler) runGeneration(
	ctx context.Context,
	sessionID string,
	topicID string,
	query string,
	notify generate.ProgressFunc,
) (*GenerateResponse, error) {
	var history []llm.HistoryEntry
	var meta *session.Meta

	if sessionID != "" {
		ensured, err := h.sessions.EnsureSession(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		meta = ensured
		sessionID = ensured.ID

		if snap, err := h.sessions.Load(ctx, sessionID); err == nil {
			history = snap.History
		}
	}

	var content *generate.TopicContent
	if topicID != "" {
		if meta == nil {
			return nil, httperror.NewMissingField("sessionId")
		}
		topic := meta.FindTopic(topicID)
		if topic == nil {
			return nil, session.ErrTopicNotFound
		}
		extended, err := h.generator.ExtendTopic(ctx, query, *topic, history, notify)
		if err != nil {
			return nil, err
		}
		content = extended
	} else {
		created, err := h.generator.GenerateTopic(ctx, query, history, notify)
		if err != nil {
			return nil, err
		}
		content = created
	}

	if sessionID != "" {
		if err := h.persist(ctx, sessionID, topicID, content); err != nil {
			return nil, err
		}
		if err := h.sessions.RecordExchange(ctx, sessionID, query, content.Topic.Name); err != nil {
			h.logError(err)
		}
	}

	return &GenerateResponse{
		Slides:    content.Slides,
		Topic:     content.Topic,
		SegmentID: content.SegmentID,
		SessionID: sessionID,
	}, nil
}

// persist 는 생성 결과를 세션에 반영한다. 후속 생성은 기존 슬라이드 뒤에 붙인다.
func (h *GenerateHandler) persist(ctx context.Context, sessionID string, topicID string, content *generate.TopicContent) error {
	if topicID == "" {
		_, err := h.sessions.AddTopic(ctx, sessionID, content.Topic, content.Slides)
		return err
	}

	existing, err := h.sessions.Slides(ctx, sessionID, topicID)
	if err != nil && !errors.Is(err, session.ErrTopicNotFound) {
		return err
	}
	combined := append(existing, content.Slides...)
	if err := h.sessions.SaveSlides(ctx, sessionID, topicID, combined); err != nil {
		return err
	}
	return h.sessions.SetActiveTopic(ctx, sessionID, topicID)
}

// handleEngagement 는 재미있는 사실과 후속 질문 3개를 만든다.
func (h *GenerateHandler) handleEngagement(c *gin.Context) {
	var req EngagementRequest
	if !bindJSON(c, &req) {
		return
	}

	query, err := h.sanitizer.CleanQuery(req.Query)
	if err != nil {
		writeError(c, err)
		return
	}

	engagement, err := h.generator.GenerateEngagement(c.Request.Context(), query)
	if err != nil {
		h.writeGenerationError(c, err)
		return
	}

	c.JSON(http.StatusOK, engagement)
}

func (h *GenerateHandler) writeGenerationError(c *gin.Context, err error) {
	if errors.Is(err, session.ErrTopicNotFound) {
		writeError(c, httperror.NewTopicNotFound(""))
		return
	}
	if errors.Is(err, session.ErrSessionNotFound) {
		writeError(c, err)
		return
	}
	var httpErr *httperror.Error
	if errors.As(err, &httpErr) {
		writeError(c, err)
		return
	}
	h.logError(err)
	writeError(c, httperror.NewGenerationError(err.Error()))
}

func (h *GenerateHandler) logError(err error) {
	if err == nil {
		return
	}
	h.logger.Warn("generate_request_failed", "err", err)
}
