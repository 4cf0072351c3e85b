package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/park285/showme-server-go/internal/classify"
)

const complexitySystemPrompt = `You grade how much explanation a child's question needs.
Given the question and an optional line of on-screen context, answer with one
of: trivial, simple, moderate, complex.
- trivial: answerable in one short sentence
- simple: a short everyday explanation
- moderate: needs an analogy or a couple of steps
- complex: needs background concepts built up first
Respond with JSON only.`

var complexitySchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"complexity": map[string]any{
			"type": "string",
			"enum": []string{"trivial", "simple", "moderate", "complex"},
		},
	},
	"required": []string{"complexity"},
}

type complexityPayload struct {
	Complexity string `mapstructure:"complexity"`
}

// DetermineComplexity 는 질의의 설명 난도를 4단계 티어로 판정한다.
// 비정상 응답은 오류로 돌려주고 기본값 결정은 호출자(어노테이터)에 맡긴다.
func (c *Client) DetermineComplexity(ctx context.Context, query string, contextLine string) (string, error) {
	prompt := "Question: " + query
	if strings.TrimSpace(contextLine) != "" {
		prompt += "\nContext: " + contextLine
	}

	parsed, _, err := c.Structured(ctx, Request{
		Prompt:       prompt,
		SystemPrompt: complexitySystemPrompt,
		Task:         "classify",
	}, complexitySchema)
	if err != nil {
		return "", err
	}

	var payload complexityPayload
	if err := mapstructure.Decode(parsed, &payload); err != nil {
		return "", fmt.Errorf("decode complexity payload: %w", err)
	}
	if strings.TrimSpace(payload.Complexity) == "" {
		return "", fmt.Errorf("complexity missing in response")
	}
	return payload.Complexity, nil
}

// Client 가 분류기의 복잡도 협력자 인터페이스를 구현하는지 컴파일 타임 확인
var _ classify.ComplexityClassifier = (*Client)(nil)
