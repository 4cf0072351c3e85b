package classify

import (
	"regexp"
	"strings"
)

// apostropheReplacer: 잘못 인코딩된 아포스트로피 바이트 시퀀스와 ASCII 아포스트로피를 제거한다.
// "â€™"는 U+2019가 cp1252로 다시 읽힌 모지바케다. 음성 인식 프런트엔드에서 실제로 관측됨.
var apostropheReplacer = strings.NewReplacer(
	"â€™", "",
	"'", "",
)

// NormalizeQuery 는 원시 질의를 매처용 표준 형태로 변환한다.
// 소문자화 → 아포스트로피 제거 → 영숫자 외 문자를 공백으로 치환 → 공백 압축 → 트림.
// 빈 입력은 빈 문자열을 반환한다. 파이프라인 진입 시 한 번만 수행되고 모든 매처가 재사용한다.
func NormalizeQuery(raw string) string {
	if raw == "" {
		return ""
	}

	lowered := apostropheReplacer.Replace(strings.ToLower(raw))

	var builder strings.Builder
	builder.Grow(len(lowered))
	pendingSpace := false
	for _, r := range lowered {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSpace && builder.Len() > 0 {
				builder.WriteByte(' ')
			}
			pendingSpace = false
			builder.WriteRune(r)
			continue
		}
		pendingSpace = true
	}

	return builder.String()
}

// ContainsPhrase 는 정규화된 haystack 안에 phrase가 단어 경계로 둘러싸여
// 존재하는지 검사한다. "ok"가 "broken" 내부에 매칭되지 않도록 한다.
// phrase의 특수 문자는 이스케이프된다. 순수 함수.
func ContainsPhrase(haystack string, phrase string) bool {
	if haystack == "" || phrase == "" {
		return false
	}
	pattern, err := regexp.Compile(`\b` + regexp.QuoteMeta(phrase) + `\b`)
	if err != nil {
		return false
	}
	return pattern.MatchString(haystack)
}

// compilePhrase 는 카탈로그 로드 시점에 구문 패턴을 미리 컴파일한다.
func compilePhrase(phrase string) (*regexp.Regexp, error) {
	return regexp.Compile(`\b` + regexp.QuoteMeta(phrase) + `\b`)
}

// compilePhraseSet 는 구문 목록을 단일 대안 패턴으로 컴파일한다.
// 개별 매칭보다 1회 스캔이 저렴하고, 어느 구문이 맞았는지는 중요하지 않은 경로에 사용한다.
func compilePhraseSet(phrases []string) (*regexp.Regexp, error) {
	if len(phrases) == 0 {
		return nil, nil
	}
	escaped := make([]string, 0, len(phrases))
	for _, phrase := range phrases {
		escaped = append(escaped, regexp.QuoteMeta(phrase))
	}
	return regexp.Compile(`\b(?:` + strings.Join(escaped, "|") + `)\b`)
}
