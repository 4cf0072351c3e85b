package generate

import (
	"context"
	"fmt"
	"strings"

	"github.com/park285/showme-server-go/internal/gemini"
	"github.com/park285/showme-server-go/internal/handler/shared"
)

// FunFact 는 주제와 관련된 재미있는 사실 하나다.
type FunFact struct {
	Text  string `json:"text"`
	Emoji string `json:"emoji,omitempty"`
}

// Engagement 는 슬라이드쇼 사이에 보여줄 참여 콘텐츠다.
type Engagement struct {
	FunFact            FunFact  `json:"funFact"`
	SuggestedQuestions []string `json:"suggestedQuestions"`
}

var engagementSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"funFact": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text":  map[string]any{"type": "string"},
				"emoji": map[string]any{"type": "string"},
			},
			"required": []string{"text"},
		},
		"suggestedQuestions": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
	},
	"required": []string{"funFact", "suggestedQuestions"},
}

type engagementPayload struct {
	FunFact            FunFact  `json:"funFact"`
	SuggestedQuestions []string `json:"suggestedQuestions"`
}

// GenerateEngagement 는 질문 주제의 재미있는 사실과 후속 질문 3개를 생성한다.
// 제안 질문은 정확히 3개로 맞춘다. 초과분은 버리고, 부족하면 오류다.
func (s *Service) GenerateEngagement(ctx context.Context, query string) (*Engagement, error) {
	system, err := s.prompts.EngagementSystem()
	if err != nil {
		return nil, err
	}
	userPrompt, err := s.prompts.EngagementUser(query)
	if err != nil {
		return nil, err
	}

	parsed, _, err := s.llm.Structured(ctx, gemini.Request{
		Prompt:       userPrompt,
		SystemPrompt: system,
		Task:         "engagement",
	}, engagementSchema)
	if err != nil {
		return nil, fmt.Errorf("generate engagement: %w", err)
	}

	var payload engagementPayload
	if err := shared.DecodeStrict(parsed, &payload); err != nil {
		return nil, fmt.Errorf("decode engagement payload: %w", err)
	}

	if strings.TrimSpace(payload.FunFact.Text) == "" {
		return nil, fmt.Errorf("engagement missing fun fact")
	}

	want := s.cfg.Generation.SuggestedQuestions
	if want <= 0 {
		want = 3
	}
	questions := make([]string, 0, want)
	for _, question := range payload.SuggestedQuestions {
		question = strings.TrimSpace(question)
		if question == "" {
			continue
		}
		questions = append(questions, question)
		if len(questions) == want {
			break
		}
	}
	if len(questions) < want {
		return nil, fmt.Errorf("engagement returned %d suggested questions, want %d", len(questions), want)
	}

	return &Engagement{
		FunFact:            FunFact{Text: payload.FunFact.Text, Emoji: payload.FunFact.Emoji},
		SuggestedQuestions: questions,
	}, nil
}
