package generate

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"github.com/park285/showme-server-go/internal/config"
	"github.com/park285/showme-server-go/internal/gemini"
	"github.com/park285/showme-server-go/internal/llm"
	"github.com/park285/showme-server-go/internal/randx"
	"github.com/park285/showme-server-go/internal/session"
)

// defaultIcons: 모델이 아이콘을 비워 보냈을 때의 대체 목록
var defaultIcons = []string{"sparkles", "rocket", "microscope", "globe", "bulb", "atom", "leaf"}

// Service 는 슬라이드쇼 생성을 담당한다. 대본을 구조화 출력으로 받고,
// 슬라이드별 이미지와 음성을 동시 생성해 data URL 로 채운다.
type Service struct {
	llm     gemini.LLM
	cfg     *config.Config
	prompts *Prompts
	rng     *randx.LockedRand
	logger  *slog.Logger
}

// NewService 는 생성 서비스를 만든다.
func NewService(llmClient gemini.LLM, cfg *config.Config, rng *randx.LockedRand, logger *slog.Logger) (*Service, error) {
	prompts, err := NewPrompts()
	if err != nil {
		return nil, err
	}
	return &Service{
		llm:     llmClient,
		cfg:     cfg,
		prompts: prompts,
		rng:     rng,
		logger:  logger,
	}, nil
}

// TopicContent 는 한 번의 생성 결과다.
type TopicContent struct {
	Topic     session.Topic
	Slides    []session.Slide
	SegmentID string
}

// GenerateTopic 은 새 주제의 슬라이드쇼를 생성한다. 첫 슬라이드가 주제 헤더다.
func (s *Service) GenerateTopic(ctx context.Context, query string, history []llm.HistoryEntry, notify ProgressFunc) (*TopicContent, error) {
	userPrompt, err := s.prompts.ScriptUser(query, s.cfg.Generation.SlidesPerTopic)
	if err != nil {
		return nil, err
	}

	script, err := s.generateScript(ctx, userPrompt, history)
	if err != nil {
		return nil, err
	}

	topicID, err := session.NewTopicID()
	if err != nil {
		return nil, err
	}
	topic := session.Topic{
		ID:   topicID,
		Name: script.TopicName,
		Icon: s.pickIcon(script.Icon),
	}

	return s.assemble(ctx, topic, script, true, notify)
}

// ExtendTopic 은 기존 주제에 이어 붙일 후속 슬라이드를 생성한다.
func (s *Service) ExtendTopic(ctx context.Context, query string, topic session.Topic, history []llm.HistoryEntry, notify ProgressFunc) (*TopicContent, error) {
	userPrompt, err := s.prompts.ScriptFollowUpUser(query, topic.Name, s.cfg.Generation.SlidesPerTopic)
	if err != nil {
		return nil, err
	}

	script, err := s.generateScript(ctx, userPrompt, history)
	if err != nil {
		return nil, err
	}

	return s.assemble(ctx, topic, script, false, notify)
}

// assemble 은 대본을 슬라이드로 펼치고 미디어를 채운다.
func (s *Service) assemble(ctx context.Context, topic session.Topic, script *scriptPayload, topicHeader bool, notify ProgressFunc) (*TopicContent, error) {
	segmentID, err := newSegmentID()
	if err != nil {
		return nil, err
	}

	notify.notify(ProgressEvent{Stage: StageScript, SlideIndex: -1, SlideCount: len(script.Slides), TopicID: topic.ID})

	duration := float64(s.cfg.Generation.SlideDurationSec)
	slides := make([]session.Slide, len(script.Slides))
	imagePrompts := make([]string, len(script.Slides))
	for i, line := range script.Slides {
		slides[i] = session.Slide{
			ID:            fmt.Sprintf("%s_%d", segmentID, i+1),
			TopicID:       topic.ID,
			Subtitle:      line.Subtitle,
			Duration:      duration,
			SegmentID:     segmentID,
			IsTopicHeader: topicHeader && i == 0,
		}
		imagePrompts[i] = line.ImagePrompt
	}

	if err := s.renderMedia(ctx, slides, imagePrompts, notify); err != nil {
		return nil, err
	}

	notify.notify(ProgressEvent{Stage: StageDone, SlideIndex: -1, SlideCount: len(slides), TopicID: topic.ID})
	s.logger.Debug("slides_generated",
		"topic_id", topic.ID,
		"segment_id", segmentID,
		"slides", len(slides),
	)

	return &TopicContent{Topic: topic, Slides: slides, SegmentID: segmentID}, nil
}

func (s *Service) pickIcon(icon string) string {
	icon = strings.ToLower(strings.TrimSpace(icon))
	if icon != "" {
		return icon
	}
	return defaultIcons[s.rng.IntN(len(defaultIcons))]
}

// newSegmentID 세그먼트 ID 생성
func newSegmentID() (string, error) {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate segment id: %w", err)
	}
	return "seg_" + hex.EncodeToString(bytes), nil
}
