package session

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/valkey-io/valkey-go"

	"github.com/park285/showme-server-go/internal/config"
	"github.com/park285/showme-server-go/internal/llm"
)

var (
	// ErrSessionNotFound 는 세션 미존재 오류다.
	ErrSessionNotFound = errors.New("session not found")
	// ErrTopicNotFound 는 주제 미존재 오류다.
	ErrTopicNotFound = errors.New("topic not found")
	// ErrStoreDisabled 는 저장소 비활성 오류다.
	ErrStoreDisabled = errors.New("session store disabled")
)

type storeBackend int

const (
	storeBackendMemory storeBackend = iota
	storeBackendValkey
)

// Topic 는 세션이 추적 중인 학습 주제다.
type Topic struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Icon      string    `json:"icon"`
	CreatedAt time.Time `json:"createdAt"`
}

// Slide 는 생성된 프레젠테이션 슬라이드 1장이다.
// ImageURL/AudioURL 은 base64 data URL 이라 저장 시 zstd 압축 대상이 된다.
type Slide struct {
	ID            string  `json:"id"`
	TopicID       string  `json:"topicId"`
	ImageURL      string  `json:"imageUrl"`
	AudioURL      string  `json:"audioUrl"`
	Subtitle      string  `json:"subtitle"`
	Duration      float64 `json:"duration"`
	SegmentID     string  `json:"segmentId"`
	IsTopicHeader bool    `json:"isTopicHeader"`
}

// Meta 는 세션 메타데이터다. 주제 목록은 생성 순서(오래된 것 먼저)를 유지한다.
type Meta struct {
	ID            string    `json:"id"`
	Topics        []Topic   `json:"topics"`
	ActiveTopicID string    `json:"activeTopicId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	MessageCount  int       `json:"messageCount"`
}

// TopicCount 는 추적 중인 주제 수를 반환한다.
func (m *Meta) TopicCount() int {
	return len(m.Topics)
}

// OldestTopicID 는 가장 오래된 주제 ID 를 반환한다. 주제가 없으면 빈 문자열이다.
func (m *Meta) OldestTopicID() string {
	if len(m.Topics) == 0 {
		return ""
	}
	return m.Topics[0].ID
}

// ActiveTopic 는 활성 주제를 반환한다. 없으면 nil 이다.
func (m *Meta) ActiveTopic() *Topic {
	for i := range m.Topics {
		if m.Topics[i].ID == m.ActiveTopicID {
			return &m.Topics[i]
		}
	}
	return nil
}

// FindTopic 는 ID 로 주제를 찾는다.
func (m *Meta) FindTopic(topicID string) *Topic {
	for i := range m.Topics {
		if m.Topics[i].ID == topicID {
			return &m.Topics[i]
		}
	}
	return nil
}

// RemoveTopic 는 주제를 목록에서 제거하고 제거 여부를 반환한다.
func (m *Meta) RemoveTopic(topicID string) bool {
	for i := range m.Topics {
		if m.Topics[i].ID == topicID {
			m.Topics = append(m.Topics[:i], m.Topics[i+1:]...)
			if m.ActiveTopicID == topicID {
				m.ActiveTopicID = ""
			}
			return true
		}
	}
	return false
}

// Store 는 Valkey 기반 세션 저장소다.
type Store struct {
	client  valkey.Client
	cfg     *config.Config
	enabled bool
	backend storeBackend

	mu              sync.RWMutex
	meta            map[string]Meta
	history         map[string][]llm.HistoryEntry
	slides          map[string][]Slide
	metaExpiresAt   map[string]time.Time
	historyExpireAt map[string]time.Time
	slidesExpireAt  map[string]time.Time
}

// NewStore 는 세션 저장소를 생성한다.
func NewStore(cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	if !cfg.SessionStore.Enabled {
		if cfg.SessionStore.Required {
			return nil, errors.New("session store required but disabled")
		}
		return newMemoryStore(cfg), nil
	}

	conn, err := parseStoreURL(cfg.SessionStore.URL)
	if err != nil {
		return nil, fmt.Errorf("parse session store url: %w", err)
	}

	var tlsConfig *tls.Config
	if conn.useTLS {
		host, _, splitErr := net.SplitHostPort(conn.addr)
		if splitErr != nil {
			return nil, fmt.Errorf("parse session store addr: %w", splitErr)
		}
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12, ServerName: host}
	}

	client, err := valkey.NewClient(valkey.ClientOption{
		TLSConfig:    tlsConfig,
		Username:     conn.username,
		Password:     conn.password,
		InitAddress:  []string{conn.addr},
		SelectDB:     conn.selectDB,
		DisableCache: cfg.SessionStore.DisableCache,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to valkey: %w", err)
	}

	return &Store{
		client:  client,
		cfg:     cfg,
		enabled: true,
		backend: storeBackendValkey,
	}, nil
}

// WaitReady 는 저장소 연결이 확인될 때까지 재시도한다.
// 필수 저장소로 설정된 경우 부팅 시점에 호출된다.
func (s *Store) WaitReady(ctx context.Context) error {
	if s.backend == storeBackendMemory {
		return nil
	}
	attempts := s.cfg.SessionStore.ConnectMaxAttempts
	delay := time.Duration(s.cfg.SessionStore.ConnectRetrySeconds) * time.Second

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if lastErr = s.Ping(ctx); lastErr == nil {
			return nil
		}
		if attempt < attempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return fmt.Errorf("session store not ready after %d attempts: %w", attempts, lastErr)
}

func newMemoryStore(cfg *config.Config) *Store {
	return &Store{
		cfg:             cfg,
		enabled:         true,
		backend:         storeBackendMemory,
		meta:            make(map[string]Meta),
		history:         make(map[string][]llm.HistoryEntry),
		slides:          make(map[string][]Slide),
		metaExpiresAt:   make(map[string]time.Time),
		historyExpireAt: make(map[string]time.Time),
		slidesExpireAt:  make(map[string]time.Time),
	}
}

// IsEnabled 는 저장소 활성화 여부를 반환한다.
func (s *Store) IsEnabled() bool {
	return s.enabled
}

// Close 는 Valkey 연결을 종료한다.
func (s *Store) Close() {
	if s == nil {
		return
	}
	if s.backend == storeBackendValkey && s.client != nil {
		s.client.Close()
	}
}

// metaKey 세션 메타데이터 키
func (s *Store) metaKey(sessionID string) string {
	return fmt.Sprintf("session:%s:meta", sessionID)
}

// historyKey 세션 히스토리 키
func (s *Store) historyKey(sessionID string) string {
	return fmt.Sprintf("session:%s:history", sessionID)
}

// slidesKey 주제별 슬라이드 키
func (s *Store) slidesKey(sessionID string, topicID string) string {
	return fmt.Sprintf("session:%s:slides:%s", sessionID, topicID)
}

// ttl 세션 TTL
func (s *Store) ttl() time.Duration {
	return time.Duration(s.cfg.Session.SessionTTLMinutes) * time.Minute
}

// CreateSession 세션 생성
func (s *Store) CreateSession(ctx context.Context, meta Meta) error {
	if !s.enabled {
		return ErrStoreDisabled
	}
	if s.backend == storeBackendMemory {
		return s.createSessionMemory(meta)
	}

	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal session meta: %w", err)
	}

	cmd := s.client.B().Set().Key(s.metaKey(meta.ID)).Value(string(data)).Ex(s.ttl()).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	return nil
}

// GetSession 세션 메타데이터 조회
func (s *Store) GetSession(ctx context.Context, sessionID string) (*Meta, error) {
	if !s.enabled {
		return nil, ErrStoreDisabled
	}
	if s.backend == storeBackendMemory {
		return s.getSessionMemory(sessionID)
	}

	cmd := s.client.B().Get().Key(s.metaKey(sessionID)).Build()
	result, err := s.client.Do(ctx, cmd).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var m Meta
	if err := json.Unmarshal([]byte(result), &m); err != nil {
		return nil, fmt.Errorf("unmarshal session meta: %w", err)
	}

	return &m, nil
}

// UpdateSession 세션 메타데이터 업데이트
func (s *Store) UpdateSession(ctx context.Context, meta Meta) error {
	if !s.enabled {
		return ErrStoreDisabled
	}
	if s.backend == storeBackendMemory {
		return s.updateSessionMemory(meta)
	}

	meta.UpdatedAt = time.Now()
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal session meta: %w", err)
	}

	cmd := s.client.B().Set().Key(s.metaKey(meta.ID)).Value(string(data)).Ex(s.ttl()).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("update session: %w", err)
	}

	return nil
}

// DeleteSession 세션 삭제
// DoMulti로 배치 처리하여 다중 키 삭제를 1 RTT로 수행
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	if !s.enabled {
		return ErrStoreDisabled
	}
	if s.backend == storeBackendMemory {
		return s.deleteSessionMemory(sessionID)
	}

	// 슬라이드 키는 주제 목록에서 역산한다.
	meta, err := s.GetSession(ctx, sessionID)
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		return err
	}

	cmds := make([]valkey.Completed, 0, 2)
	cmds = append(cmds, s.client.B().Del().Key(s.metaKey(sessionID)).Build())
	cmds = append(cmds, s.client.B().Del().Key(s.historyKey(sessionID)).Build())
	if meta != nil {
		for _, topic := range meta.Topics {
			cmds = append(cmds, s.client.B().Del().Key(s.slidesKey(sessionID, topic.ID)).Build())
		}
	}

	results := s.client.DoMulti(ctx, cmds...)
	for _, result := range results {
		if err := result.Error(); err != nil && !valkey.IsValkeyNil(err) {
			return fmt.Errorf("delete session: %w", err)
		}
	}
	return nil
}

// GetHistory 세션 히스토리 조회
func (s *Store) GetHistory(ctx context.Context, sessionID string) ([]llm.HistoryEntry, error) {
	if !s.enabled {
		return nil, ErrStoreDisabled
	}
	if s.backend == storeBackendMemory {
		return s.getHistoryMemory(sessionID), nil
	}

	cmd := s.client.B().Lrange().Key(s.historyKey(sessionID)).Start(0).Stop(-1).Build()
	results, err := s.client.Do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}

	history := make([]llm.HistoryEntry, 0, len(results))
	for _, item := range results {
		var entry llm.HistoryEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			continue // skip invalid entries
		}
		history = append(history, entry)
	}

	return history, nil
}

// AppendHistory 히스토리에 메시지 추가
// DoMulti로 배치 처리하여 N+2 RTT → 1 RTT로 최적화
func (s *Store) AppendHistory(ctx context.Context, sessionID string, entries ...llm.HistoryEntry) error {
	if !s.enabled {
		return ErrStoreDisabled
	}
	if len(entries) == 0 {
		return nil
	}
	if s.backend == storeBackendMemory {
		return s.appendHistoryMemory(sessionID, entries...)
	}

	historyKey := s.historyKey(sessionID)

	// 모든 entry를 미리 직렬화
	elements := make([]string, 0, len(entries))
	for _, entry := range entries {
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshal history entry: %w", err)
		}
		elements = append(elements, string(data))
	}

	// 명령어 배치 구성: RPUSH + EXPIRE + (optional) LTRIM
	cmds := make([]valkey.Completed, 0, 3)

	rpushCmd := s.client.B().Rpush().Key(historyKey).Element(elements...).Build()
	cmds = append(cmds, rpushCmd)

	expireCmd := s.client.B().Expire().Key(historyKey).Seconds(int64(s.ttl().Seconds())).Build()
	cmds = append(cmds, expireCmd)

	maxPairs := s.cfg.Session.HistoryMaxPairs
	if maxPairs > 0 {
		trimCmd := s.client.B().Ltrim().Key(historyKey).Start(int64(-maxPairs * 2)).Stop(-1).Build()
		cmds = append(cmds, trimCmd)
	}

	results := s.client.DoMulti(ctx, cmds...)
	if err := results[0].Error(); err != nil {
		return fmt.Errorf("append history: %w", err)
	}

	return nil
}

// SaveSlides 는 주제의 슬라이드 묶음을 저장한다.
// data URL 페이로드가 커서 설정에 따라 zstd 압축 후 적재한다.
func (s *Store) SaveSlides(ctx context.Context, sessionID string, topicID string, slides []Slide) error {
	if !s.enabled {
		return ErrStoreDisabled
	}
	if s.backend == storeBackendMemory {
		return s.saveSlidesMemory(sessionID, topicID, slides)
	}

	data, err := json.Marshal(slides)
	if err != nil {
		return fmt.Errorf("marshal slides: %w", err)
	}

	payload, err := maybeCompress(data, s.cfg.Session.CompressSlides)
	if err != nil {
		return fmt.Errorf("compress slides: %w", err)
	}

	cmd := s.client.B().Set().Key(s.slidesKey(sessionID, topicID)).Value(string(payload)).Ex(s.ttl()).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("save slides: %w", err)
	}
	return nil
}

// GetSlides 는 주제의 슬라이드 묶음을 조회한다.
func (s *Store) GetSlides(ctx context.Context, sessionID string, topicID string) ([]Slide, error) {
	if !s.enabled {
		return nil, ErrStoreDisabled
	}
	if s.backend == storeBackendMemory {
		return s.getSlidesMemory(sessionID, topicID)
	}

	cmd := s.client.B().Get().Key(s.slidesKey(sessionID, topicID)).Build()
	result, err := s.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, ErrTopicNotFound
		}
		return nil, fmt.Errorf("get slides: %w", err)
	}

	data, err := maybeDecompress(result)
	if err != nil {
		return nil, fmt.Errorf("decompress slides: %w", err)
	}

	var slides []Slide
	if err := json.Unmarshal(data, &slides); err != nil {
		return nil, fmt.Errorf("unmarshal slides: %w", err)
	}
	return slides, nil
}

// DeleteSlides 는 주제의 슬라이드 묶음을 삭제한다. 주제 퇴출 시 호출된다.
func (s *Store) DeleteSlides(ctx context.Context, sessionID string, topicID string) error {
	if !s.enabled {
		return ErrStoreDisabled
	}
	if s.backend == storeBackendMemory {
		return s.deleteSlidesMemory(sessionID, topicID)
	}

	cmd := s.client.B().Del().Key(s.slidesKey(sessionID, topicID)).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil && !valkey.IsValkeyNil(err) {
		return fmt.Errorf("delete slides: %w", err)
	}
	return nil
}

// SessionCount 현재 세션 수 (근사치)
// SCAN 기반으로 구현하여 O(N) 블로킹 KEYS 명령 대신 논블로킹 처리
func (s *Store) SessionCount(ctx context.Context) (int, error) {
	if !s.enabled {
		return 0, nil
	}
	if s.backend == storeBackendMemory {
		return s.sessionCountMemory(), nil
	}

	var count int
	var cursor uint64
	for {
		cmd := s.client.B().Scan().Cursor(cursor).Match("session:*:meta").Count(100).Build()
		result, err := s.client.Do(ctx, cmd).AsScanEntry()
		if err != nil {
			return 0, fmt.Errorf("scan sessions: %w", err)
		}
		count += len(result.Elements)
		cursor = result.Cursor
		if cursor == 0 {
			break
		}
	}
	return count, nil
}

// Ping Valkey 연결 확인
func (s *Store) Ping(ctx context.Context) error {
	if !s.enabled {
		return ErrStoreDisabled
	}
	if s.backend == storeBackendMemory {
		return nil
	}

	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("ping valkey: %w", err)
	}
	return nil
}
