package classify

import "strings"

// minFallbackWordLen: 카탈로그 미등재 주제 이름을 단어로 쪼갤 때 유지하는 최소 길이.
// "of", "a", "is" 같은 짧은 기능어가 키워드로 새는 것을 막는다.
const minFallbackWordLen = 3

// ResolveTopicKeywords 는 활성 주제 이름을 선별 키워드 집합으로 해석한다.
// 카테고리 이름 또는 키워드가 (소문자화된) 주제 이름의 부분 문자열이면 해당 카테고리를
// 사용하고, 매칭이 없으면 주제 이름을 단어로 쪼갠 것을 키워드로 쓴다 (category="").
// 후속 판정(활성 주제 관련성)에만 쓰이고, 전 카테고리 스멜 테스트와는 별개다.
func (c *Catalog) ResolveTopicKeywords(topicName string) (string, []string) {
	name := strings.ToLower(strings.TrimSpace(topicName))
	if name == "" {
		return "", nil
	}

	for _, category := range c.categories {
		if strings.Contains(name, category.Name) {
			return category.Name, category.Keywords
		}
		for _, keyword := range category.Keywords {
			if strings.Contains(name, keyword) {
				return category.Name, category.Keywords
			}
		}
	}

	words := strings.Fields(NormalizeQuery(name))
	keywords := make([]string, 0, len(words))
	for _, word := range words {
		if len(word) < minFallbackWordLen {
			continue
		}
		keywords = append(keywords, word)
	}
	return "", keywords
}

// FindCategoryKeyword 는 activeCategory 를 제외한 전체 카탈로그에서 질의에 매칭되는
// 첫 키워드를 찾는다. 반환: (카테고리 라벨, 키워드, 발견 여부).
func (c *Catalog) FindCategoryKeyword(norm string, activeCategory string) (string, string, bool) {
	for _, category := range c.categories {
		if category.Name == activeCategory {
			continue
		}
		for _, keyword := range category.Keywords {
			if ContainsPhrase(norm, keyword) {
				return category.Name, keyword, true
			}
		}
	}
	return "", "", false
}
