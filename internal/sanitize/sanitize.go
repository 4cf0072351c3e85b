package sanitize

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/forPelevin/gomoji"

	"github.com/park285/showme-server-go/internal/config"
)

// Reason 은 입력 거부 사유 코드다.
type Reason string

const (
	// ReasonEmpty 는 정제 후 내용이 남지 않은 경우다.
	ReasonEmpty Reason = "EMPTY"
	// ReasonTooLong 는 길이 상한 초과다.
	ReasonTooLong Reason = "TOO_LONG"
	// ReasonEmoji 는 이모지 거부 모드에서 이모지가 발견된 경우다.
	ReasonEmoji Reason = "EMOJI"
)

// RejectedError 는 정제 단계에서 입력을 거부했음을 나타낸다.
type RejectedError struct {
	Reason  Reason
	Message string
}

func (e *RejectedError) Error() string {
	return e.Message
}

// Sanitizer 는 사용자 발화를 모델과 분류기에 넘기기 전에 정제한다.
// 제어 문자 제거, homoglyph 정규화, 공백 축약, 길이 검증을 수행한다.
type Sanitizer struct {
	maxLen      int
	rejectEmoji bool
}

// NewSanitizer 는 설정 기반 정제기를 생성한다.
func NewSanitizer(cfg config.SanitizeConfig) *Sanitizer {
	maxLen := cfg.MaxQueryLength
	if maxLen <= 0 {
		maxLen = 500
	}
	return &Sanitizer{
		maxLen:      maxLen,
		rejectEmoji: cfg.RejectEmoji,
	}
}

// CleanQuery 는 원본 발화를 정제해 반환한다. 거부 시 RejectedError 를 돌려준다.
func (s *Sanitizer) CleanQuery(raw string) (string, error) {
	text := normalizeText(raw)

	if gomoji.ContainsEmoji(text) {
		if s.rejectEmoji {
			return "", &RejectedError{
				Reason:  ReasonEmoji,
				Message: "Query contains emoji",
			}
		}
		text = gomoji.RemoveEmojis(text)
	}

	text = collapseSpaces(text)
	if text == "" {
		return "", &RejectedError{
			Reason:  ReasonEmpty,
			Message: "Query is empty after sanitization",
		}
	}

	if utf8.RuneCountInString(text) > s.maxLen {
		return "", &RejectedError{
			Reason:  ReasonTooLong,
			Message: fmt.Sprintf("Query exceeds %d characters", s.maxLen),
		}
	}

	return text, nil
}

func collapseSpaces(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
