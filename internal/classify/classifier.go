package classify

import (
	"context"
	"fmt"
	"log/slog"
)

// Classifier 는 5단계 우선순위 파이프라인으로 사용자 발화를 분류한다.
// 슬라이드 질문 → 스몰토크 → 콜드 스타트 → 주제 관련성 → 퇴출 권고 순서이며,
// 먼저 확정된 단계가 나머지를 단락시킨다. 단계 간 병렬화는 의미가 없다.
// 뒤 단계의 전제가 앞 단계의 불발이기 때문이다.
//
// 분류기 자체는 상태를 저장하지 않는다. 모든 입력은 요청 스코프이고,
// 퇴출은 호출자가 자기 세션 저장소에 적용할 권고일 뿐이다.
type Classifier struct {
	catalog   *Catalog
	annotator *Annotator
	logger    *slog.Logger
}

// NewClassifier 는 분류기를 생성한다.
func NewClassifier(catalog *Catalog, annotator *Annotator, logger *slog.Logger) *Classifier {
	return &Classifier{
		catalog:   catalog,
		annotator: annotator,
		logger:    logger,
	}
}

// Classify 는 발화 1건을 분류한다. 어떤 입력에도 정확히 하나의 결과 변형을 반환하며,
// 실패를 호출자에게 올리지 않는다. 유일한 외부 호출(복잡도)은 실패 시 기본값으로 복구된다.
func (c *Classifier) Classify(ctx context.Context, in Input) Result {
	norm := NormalizeQuery(in.Query)

	// 파이프라인 본체는 순수 동기 로직이고, 비동기 단계는 복잡도 부착 하나뿐이다.
	result := c.pipeline(norm, in)

	if result.Kind == KindFollowUp || result.Kind == KindSlideQuestion {
		result.Complexity = c.annotator.Annotate(ctx, in.Query, contextLine(in))
	}

	if c.logger != nil {
		c.logger.Debug(
			"query_classified",
			"kind", result.Kind,
			"intent", result.IntentID,
			"evict", result.ShouldEvictOldest,
			"reasoning", result.Reasoning,
		)
	}
	return result
}

func (c *Classifier) pipeline(norm string, in Input) Result {
	// 1. 슬라이드 질문: 슬라이드 컨텍스트가 있을 때만 검사한다.
	if in.CurrentSlide != nil && c.catalog.IsSlideQuestion(norm) {
		return Result{
			Kind:      KindSlideQuestion,
			Reasoning: "Query points at on-screen slide content",
		}
	}

	// 2. 스몰토크
	hasRequest := c.catalog.HasTopicRequest(norm)
	hasKeyword := c.catalog.HasTopicKeyword(norm)
	if intent := c.catalog.MatchChitchat(norm, hasRequest, hasKeyword); intent != nil {
		return Result{
			Kind:         KindChitchat,
			IntentID:     intent.ID,
			ResponseText: intent.ResponseText,
			Reasoning:    fmt.Sprintf("Matched small-talk intent %q", intent.ID),
		}
	}

	// 3. 활성 주제 없음: 이어갈 대상이 없으므로 무조건 새 주제 (퇴출 없음).
	if in.ActiveTopicID == "" {
		return Result{
			Kind:      KindNewTopic,
			Reasoning: "No active topic to continue; starting a new topic",
		}
	}

	// 4. 활성 주제와의 관계
	result := c.classifyRelation(norm, in)

	// 5. 퇴출 권고: 4단계가 new_topic으로 끝난 경우에만 도달한다.
	// follow_up과 slide_question은 절대 퇴출을 권고하지 않는다.
	if result.Kind == KindNewTopic && in.TopicCount >= maxTrackedTopics {
		result.ShouldEvictOldest = true
		result.EvictTopicID = in.OldestTopicID
	}
	return result
}

// classifyRelation 는 질의가 활성 주제의 연속인지 새 주제인지 판정한다.
func (c *Classifier) classifyRelation(norm string, in Input) Result {
	// 슬라이드 질문 검사를 여기서 한 번 더 수행한다. 1단계와 동일 술어(IsSlideQuestion)의
	// 중복 호출이고 동작은 멱등하다. 의도된 방어인지 병합 잔재인지 불명확해
	// 동작 보존을 위해 유지한다. 제거 후보.
	if in.CurrentSlide != nil && c.catalog.IsSlideQuestion(norm) {
		return Result{
			Kind:      KindSlideQuestion,
			Reasoning: "Query points at on-screen slide content",
		}
	}

	// a. 명시적 후속 마커
	if marker, ok := c.catalog.FollowUpMarker(norm); ok {
		return Result{
			Kind:      KindFollowUp,
			Reasoning: fmt.Sprintf("Follow-up marker %q continues the active topic", marker),
		}
	}

	// b. 활성 주제 키워드
	topicName := ""
	if in.ActiveTopic != nil {
		topicName = in.ActiveTopic.Name
	}
	activeCategory, keywords := c.catalog.ResolveTopicKeywords(topicName)
	for _, keyword := range keywords {
		if ContainsPhrase(norm, keyword) {
			return Result{
				Kind:      KindFollowUp,
				Reasoning: fmt.Sprintf("Query mentions active-topic keyword %q", keyword),
			}
		}
	}

	// c. 다른 카테고리 키워드: 발견된 무관 카테고리를 reasoning에 명시한다.
	if category, keyword, ok := c.catalog.FindCategoryKeyword(norm, activeCategory); ok {
		return Result{
			Kind:      KindNewTopic,
			Reasoning: fmt.Sprintf("Query mentions %q content (%q) unrelated to the active topic", category, keyword),
		}
	}

	// d. 기본값: 연결 고리를 찾지 못했다.
	return Result{
		Kind:      KindNewTopic,
		Reasoning: "No discernible connection to the active topic",
	}
}

// contextLine 는 복잡도 분류기에 넘길 한 줄 컨텍스트를 만든다.
// 현재 슬라이드 자막이 있으면 그것을, 없으면 활성 주제 이름을 쓴다.
func contextLine(in Input) string {
	if in.CurrentSlide != nil && in.CurrentSlide.Subtitle != "" {
		return in.CurrentSlide.Subtitle
	}
	if in.ActiveTopic != nil {
		return in.ActiveTopic.Name
	}
	return ""
}
