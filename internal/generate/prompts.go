package generate

import (
	"embed"
	"fmt"
	"strconv"

	"github.com/park285/showme-server-go/internal/prompt"
)

//go:embed prompts/*.yml
var promptsFS embed.FS

// Prompts 는 생성 프롬프트 모음이다.
type Prompts struct {
	bundle *prompt.Bundle
}

// NewPrompts 는 생성 프롬프트를 로드한다.
func NewPrompts() (*Prompts, error) {
	bundle, err := prompt.LoadBundle(promptsFS, "prompts", "generate")
	if err != nil {
		return nil, fmt.Errorf("load generate prompts: %w", err)
	}
	return &Prompts{bundle: bundle}, nil
}

// ScriptSystem 은 스크립트 시스템 프롬프트를 반환한다.
func (p *Prompts) ScriptSystem() (string, error) {
	return p.bundle.Field("script", "system")
}

// ScriptUser 는 새 주제용 유저 프롬프트를 반환한다.
func (p *Prompts) ScriptUser(query string, slideCount int) (string, error) {
	return p.bundle.Template("script", "user", map[string]string{
		"query":       query,
		"slide_count": strconv.Itoa(slideCount),
	})
}

// ScriptFollowUpUser 는 기존 주제를 잇는 후속 질문용 유저 프롬프트를 반환한다.
func (p *Prompts) ScriptFollowUpUser(query string, topicName string, slideCount int) (string, error) {
	return p.bundle.Template("script", "followup_user", map[string]string{
		"query":       query,
		"topic_name":  topicName,
		"slide_count": strconv.Itoa(slideCount),
	})
}

// EngagementSystem 은 참여 콘텐츠 시스템 프롬프트를 반환한다.
func (p *Prompts) EngagementSystem() (string, error) {
	return p.bundle.Field("engagement", "system")
}

// EngagementUser 는 참여 콘텐츠 유저 프롬프트를 반환한다.
func (p *Prompts) EngagementUser(query string) (string, error) {
	return p.bundle.Template("engagement", "user", map[string]string{"query": query})
}
