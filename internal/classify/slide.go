package classify

// IsSlideQuestion 는 정규화된 질의가 화면 지시어("whats that", "the arrow" 등)를
// 포함하는지 검사한다. 구문이 짧고 충돌이 적어 단어 경계 없이 부분 문자열 포함으로
// 판정한다. 슬라이드 컨텍스트 유무 확인은 호출측(오케스트레이터) 책임이다.
func (c *Catalog) IsSlideQuestion(norm string) bool {
	if c.slideMatcher == nil || norm == "" {
		return false
	}
	return len(c.slideMatcher.MatchThreadSafe([]byte(norm))) > 0
}
