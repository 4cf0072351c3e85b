package sanitize

import (
	"strings"
	"unicode"

	"github.com/mtibben/confusables"
	"golang.org/x/text/unicode/norm"
)

// isASCIIOnly: 문자열이 ASCII만 포함하는지 확인 (Zero Allocation)
func isASCIIOnly(text string) bool {
	for i := 0; i < len(text); i++ {
		if text[i] > unicode.MaxASCII {
			return false
		}
	}
	return true
}

func normalizeText(text string) string {
	// [Fast Path] ASCII만 포함된 경우 Skeleton 변환 불필요
	if isASCIIOnly(text) {
		return stripControlChars(text)
	}

	// NFD 입력 우회 방지: 먼저 NFC로 정규화
	nfcText := norm.NFC.String(text)

	// Homoglyph 정규화: 시각적으로 동일한 문자를 표준 형태로 치환
	// 예: "whаt" (키릴 а) → "what"
	skeleton := confusables.Skeleton(nfcText)
	return stripControlChars(norm.NFKC.String(skeleton))
}

// stripControlChars: 불필요한 할당 방지.
// 개행/탭 등 공백 계열은 단어 경계를 위해 남기고 뒤에서 축약한다.
func stripControlChars(text string) string {
	hasControl := false
	for _, r := range text {
		if isStrippable(r) {
			hasControl = true
			break
		}
	}
	if !hasControl {
		return text
	}

	var builder strings.Builder
	builder.Grow(len(text))
	for _, r := range text {
		if isStrippable(r) {
			continue
		}
		builder.WriteRune(r)
	}
	return builder.String()
}

func isStrippable(r rune) bool {
	if unicode.IsSpace(r) {
		return false
	}
	return unicode.Is(unicode.Cf, r) || unicode.Is(unicode.Cc, r)
}
