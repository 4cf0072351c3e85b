package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/park285/showme-server-go/internal/config"
	"github.com/park285/showme-server-go/internal/llm"
)

// Manager 세션 관리자. 주제 목록의 상한과 퇴출, 히스토리 적재를 책임진다.
// 분류기는 퇴출을 권고만 하고, 실제 상태 변경은 전부 여기서 일어난다.
type Manager struct {
	store  Storage
	cfg    *config.Config
	logger *slog.Logger
}

// NewManager 세션 관리자 생성
func NewManager(store Storage, cfg *config.Config, logger *slog.Logger) *Manager {
	return &Manager{
		store:  store,
		cfg:    cfg,
		logger: logger,
	}
}

// Snapshot 은 분류와 생성에 필요한 세션 상태 한 벌이다.
type Snapshot struct {
	Meta    *Meta
	History []llm.HistoryEntry
}

// EnsureSession 은 세션을 조회하고, 없으면 생성한다.
// 빈 ID 가 들어오면 새 세션 ID 를 발급한다.
func (m *Manager) EnsureSession(ctx context.Context, sessionID string) (*Meta, error) {
	if sessionID == "" {
		id, err := newID()
		if err != nil {
			return nil, err
		}
		sessionID = id
	} else {
		meta, err := m.store.GetSession(ctx, sessionID)
		if err == nil {
			return meta, nil
		}
		if !errors.Is(err, ErrSessionNotFound) {
			return nil, err
		}
	}

	now := time.Now()
	meta := Meta{
		ID:        sessionID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.CreateSession(ctx, meta); err != nil {
		return nil, err
	}

	m.logger.Debug("session_created", "session_id", sessionID)
	return &meta, nil
}

// Load 는 메타와 히스토리를 함께 조회한다.
func (m *Manager) Load(ctx context.Context, sessionID string) (*Snapshot, error) {
	meta, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	history, err := m.store.GetHistory(ctx, sessionID)
	if err != nil {
		history = nil // 히스토리 조회 실패해도 메타는 반환
	}

	return &Snapshot{Meta: meta, History: history}, nil
}

// AddTopic 은 새 주제와 그 슬라이드를 세션에 추가하고 활성 주제로 만든다.
// 상한 초과분은 가장 오래된 주제부터 퇴출된다. 분류기의 권고와 별개로
// 여기서도 상한을 강제해 저장소 불변식을 지킨다.
func (m *Manager) AddTopic(ctx context.Context, sessionID string, topic Topic, slides []Slide) (*Meta, error) {
	meta, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if topic.CreatedAt.IsZero() {
		topic.CreatedAt = time.Now()
	}
	meta.Topics = append(meta.Topics, topic)
	meta.ActiveTopicID = topic.ID

	maxTopics := m.cfg.Session.MaxTopics
	for maxTopics > 0 && len(meta.Topics) > maxTopics {
		evicted := meta.Topics[0]
		meta.Topics = meta.Topics[1:]
		if err := m.store.DeleteSlides(ctx, sessionID, evicted.ID); err != nil {
			m.logger.Warn("evicted_slides_delete_failed", "topic_id", evicted.ID, "err", err)
		}
		m.logger.Debug("topic_evicted", "session_id", sessionID, "topic_id", evicted.ID)
	}

	if len(slides) > 0 {
		if err := m.store.SaveSlides(ctx, sessionID, topic.ID, slides); err != nil {
			return nil, fmt.Errorf("save topic slides: %w", err)
		}
	}

	if err := m.store.UpdateSession(ctx, *meta); err != nil {
		return nil, err
	}

	m.logger.Debug("topic_added", "session_id", sessionID, "topic_id", topic.ID, "topics", len(meta.Topics))
	return meta, nil
}

// EvictTopic 은 분류기의 퇴출 권고를 세션에 적용한다.
// 대상 주제가 이미 없으면 조용히 성공한다. 권고는 스냅샷 기준이라 경합할 수 있다.
func (m *Manager) EvictTopic(ctx context.Context, sessionID string, topicID string) error {
	meta, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	if !meta.RemoveTopic(topicID) {
		return nil
	}

	if err := m.store.DeleteSlides(ctx, sessionID, topicID); err != nil {
		m.logger.Warn("evicted_slides_delete_failed", "topic_id", topicID, "err", err)
	}

	if err := m.store.UpdateSession(ctx, *meta); err != nil {
		return err
	}

	m.logger.Debug("topic_evicted", "session_id", sessionID, "topic_id", topicID)
	return nil
}

// SetActiveTopic 은 활성 주제를 바꾼다.
func (m *Manager) SetActiveTopic(ctx context.Context, sessionID string, topicID string) error {
	meta, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	if meta.FindTopic(topicID) == nil {
		return ErrTopicNotFound
	}

	meta.ActiveTopicID = topicID
	return m.store.UpdateSession(ctx, *meta)
}

// RecordExchange 는 질문/응답 쌍을 히스토리에 적재한다.
func (m *Manager) RecordExchange(ctx context.Context, sessionID string, query string, response string) error {
	entries := []llm.HistoryEntry{
		{Role: "user", Content: query},
	}
	if response != "" {
		entries = append(entries, llm.HistoryEntry{Role: "assistant", Content: response})
	}

	if err := m.store.AppendHistory(ctx, sessionID, entries...); err != nil {
		return err
	}

	meta, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	meta.MessageCount += len(entries)
	meta.UpdatedAt = time.Now()
	return m.store.UpdateSession(ctx, *meta)
}

// Slides 는 주제의 슬라이드 묶음을 조회한다.
func (m *Manager) Slides(ctx context.Context, sessionID string, topicID string) ([]Slide, error) {
	return m.store.GetSlides(ctx, sessionID, topicID)
}

// SaveSlides 는 주제의 슬라이드 묶음을 덮어쓴다. 후속 생성이 이어 붙일 때 쓴다.
func (m *Manager) SaveSlides(ctx context.Context, sessionID string, topicID string, slides []Slide) error {
	return m.store.SaveSlides(ctx, sessionID, topicID, slides)
}

// Delete 세션 삭제
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	if err := m.store.DeleteSession(ctx, sessionID); err != nil {
		return err
	}

	m.logger.Debug("session_deleted", "session_id", sessionID)
	return nil
}

// Count 현재 세션 수
func (m *Manager) Count(ctx context.Context) int {
	count, err := m.store.SessionCount(ctx)
	if err != nil {
		return 0
	}
	return count
}

// newID 랜덤 ID 생성
func newID() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// NewTopicID 는 주제 ID 를 발급한다.
func NewTopicID() (string, error) {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate topic id: %w", err)
	}
	return "topic_" + hex.EncodeToString(bytes), nil
}
