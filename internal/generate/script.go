package generate

import (
	"context"
	"fmt"
	"strings"

	"github.com/park285/showme-server-go/internal/gemini"
	"github.com/park285/showme-server-go/internal/handler/shared"
	"github.com/park285/showme-server-go/internal/llm"
)

var scriptSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"topicName": map[string]any{"type": "string"},
		"icon":      map[string]any{"type": "string"},
		"slides": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"subtitle":    map[string]any{"type": "string"},
					"imagePrompt": map[string]any{"type": "string"},
				},
				"required": []string{"subtitle", "imagePrompt"},
			},
		},
	},
	"required": []string{"topicName", "icon", "slides"},
}

type scriptSlide struct {
	Subtitle    string `json:"subtitle"`
	ImagePrompt string `json:"imagePrompt"`
}

type scriptPayload struct {
	TopicName string        `json:"topicName"`
	Icon      string        `json:"icon"`
	Slides    []scriptSlide `json:"slides"`
}

// generateScript 는 구조화 출력으로 슬라이드 대본을 받는다.
func (s *Service) generateScript(ctx context.Context, userPrompt string, history []llm.HistoryEntry) (*scriptPayload, error) {
	system, err := s.prompts.ScriptSystem()
	if err != nil {
		return nil, err
	}

	parsed, _, err := s.llm.Structured(ctx, gemini.Request{
		Prompt:       userPrompt,
		SystemPrompt: system,
		History:      history,
		Task:         "script",
	}, scriptSchema)
	if err != nil {
		return nil, fmt.Errorf("generate script: %w", err)
	}

	// responseSchema 로 형태를 고정했으므로 스키마 밖 필드는 모델 이탈이다.
	var payload scriptPayload
	if err := shared.DecodeStrict(parsed, &payload); err != nil {
		return nil, fmt.Errorf("decode script payload: %w", err)
	}
	return &payload, validateScript(&payload)
}

func validateScript(payload *scriptPayload) error {
	if strings.TrimSpace(payload.TopicName) == "" {
		return fmt.Errorf("script missing topic name")
	}
	if len(payload.Slides) == 0 {
		return fmt.Errorf("script has no slides")
	}
	for i, slide := range payload.Slides {
		if strings.TrimSpace(slide.Subtitle) == "" {
			return fmt.Errorf("slide %d missing subtitle", i)
		}
		if strings.TrimSpace(slide.ImagePrompt) == "" {
			return fmt.Errorf("slide %d missing image prompt", i)
		}
	}
	return nil
}
