package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/park285/showme-server-go/internal/generate"
)

const (
	wsWriteTimeout   = 10 * time.Second
	wsReadLimitBytes = 4096
)

// wsMessage 는 생성 진행 스트림의 프레임 하나다.
type wsMessage struct {
	Type     string                  `json:"type"` // progress | result | error
	Progress *generate.ProgressEvent `json:"progress,omitempty"`
	Result   *GenerateResponse       `json:"result,omitempty"`
	Error    string                  `json:"error,omitempty"`
}

func newUpgrader(allowedOrigins []string) *websocket.Upgrader {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true // 브라우저가 아닌 클라이언트
			}
			_, ok := allowed[origin]
			return ok
		},
	}
}

// handleGenerationSocket 는 생성 진행 스트림이다. 클라이언트가 생성 요청 한 건을
// 보내면 슬라이드별 진행 이벤트를 흘려보내고 마지막에 전체 결과를 내려준다.
func (h *GenerateHandler) handleGenerationSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 실패 시 응답은 upgrader가 이미 작성했다.
		h.logError(err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsReadLimitBytes)

	var req GenerateRequest
	if err := conn.ReadJSON(&req); err != nil {
		h.writeSocket(conn, wsMessage{Type: "error", Error: "invalid request"})
		return
	}
	if req.Query == "" {
		h.writeSocket(conn, wsMessage{Type: "error", Error: "query is required"})
		return
	}

	query, err := h.sanitizer.CleanQuery(req.Query)
	if err != nil {
		h.writeSocket(conn, wsMessage{Type: "error", Error: err.Error()})
		return
	}

	events := make(chan generate.ProgressEvent, 16)
	type outcome struct {
		response *GenerateResponse
		err      error
	}
	done := make(chan outcome, 1)

	ctx := c.Request.Context()
	go func() {
		defer close(events)
		response, err := h.runGeneration(ctx, req.SessionID, req.TopicID, query, func(event generate.ProgressEvent) {
			select {
			case events <- event:
			case <-ctx.Done():
			}
		})
		done <- outcome{response: response, err: err}
	}()

	for event := range events {
		event := event
		if !h.writeSocket(conn, wsMessage{Type: "progress", Progress: &event}) {
			return
		}
	}

	result := <-done
	if result.err != nil {
		h.logError(result.err)
		h.writeSocket(conn, wsMessage{Type: "error", Error: result.err.Error()})
		return
	}
	h.writeSocket(conn, wsMessage{Type: "result", Result: result.response})
}

func (h *GenerateHandler) writeSocket(conn *websocket.Conn, message wsMessage) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(message); err != nil {
		h.logError(err)
		return false
	}
	return true
}
