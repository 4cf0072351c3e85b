package classify

// MatchChitchat 는 스몰토크 인텐트를 분류한다.
// 선언 순서대로 순회하며, 트리거가 매칭된 인텐트에 억제 플래그를 적용한다:
// blockWhenRequest && hasTopicRequest 또는 blockWhenTopic && hasTopicKeyword면
// 해당 인텐트를 건너뛰고 다음 인텐트로 계속한다. 살아남은 첫 매칭을 반환하고, 없으면 nil.
func (c *Catalog) MatchChitchat(norm string, hasTopicRequest bool, hasTopicKeyword bool) *ChitchatIntent {
	for i := range c.intents {
		intent := &c.intents[i]
		if !intent.matches(norm) {
			continue
		}
		if intent.BlockWhenRequest && hasTopicRequest {
			continue
		}
		if intent.BlockWhenTopic && hasTopicKeyword {
			continue
		}
		return intent
	}
	return nil
}

// HasTopicRequest 는 질의에 명령형/의문형 요청 오프너가 있는지 판정한다.
// 감사+설명 복합 패턴("thanks for explaining")이 매칭되고 독립 후속 마커가 없으면
// 요청 신호를 억제한다: "thanks for explaining that"는 감사지 새 요청이 아니고,
// "thanks, can you also explain x"는 여전히 요청이다.
func (c *Catalog) HasTopicRequest(norm string) bool {
	if c.requestSet == nil || !c.requestSet.MatchString(norm) {
		return false
	}
	if c.gratitudeSet != nil && c.gratitudeSet.MatchString(norm) {
		if _, ok := c.FollowUpMarker(norm); !ok {
			return false
		}
	}
	return true
}

// HasTopicKeyword 는 전 카테고리 키워드를 대상으로 한 거친 주제성 검사다.
// 활성 주제와 무관하게 "교육 콘텐츠 냄새"만 본다.
func (c *Catalog) HasTopicKeyword(norm string) bool {
	return c.allKeywordSet != nil && c.allKeywordSet.MatchString(norm)
}

// FollowUpMarker 는 질의에 포함된 첫 후속 마커 구문을 반환한다.
func (c *Catalog) FollowUpMarker(norm string) (string, bool) {
	for _, marker := range c.markers {
		if marker.pattern.MatchString(norm) {
			return marker.phrase, true
		}
	}
	return "", false
}
