package gemini

import (
	"context"
)

// LLM 은 LLM 클라이언트 인터페이스다.
// 테스트에서 mock 구현을 주입할 수 있도록 한다.
type LLM interface {
	// Structured JSON 스키마 기반 응답
	Structured(ctx context.Context, req Request, schema map[string]any) (map[string]any, string, error)

	// GenerateImage 슬라이드 일러스트 생성
	GenerateImage(ctx context.Context, prompt string) (Image, error)

	// Synthesize 자막 음성 합성
	Synthesize(ctx context.Context, text string) (Audio, error)

	// DetermineComplexity 질의 설명 난도 판정
	DetermineComplexity(ctx context.Context, query string, contextLine string) (string, error)
}

// Client가 LLM 인터페이스를 구현하는지 컴파일 타임 확인
var _ LLM = (*Client)(nil)
