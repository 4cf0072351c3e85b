package classify

import (
	"context"

	"github.com/park285/showme-server-go/internal/llm"
)

// Kind 는 분류 결과 변형 태그다.
type Kind string

const (
	// KindChitchat 는 교육 콘텐츠 요청이 아닌 스몰토크다.
	KindChitchat Kind = "chitchat"
	// KindSlideQuestion 는 화면에 표시된 슬라이드에 대한 질문이다.
	KindSlideQuestion Kind = "slide_question"
	// KindNewTopic 는 새로운 주제의 시작이다.
	KindNewTopic Kind = "new_topic"
	// KindFollowUp 는 활성 주제의 연속 질문이다.
	KindFollowUp Kind = "follow_up"
)

// 복잡도 티어 상수 목록. 외부 분류기가 반환하는 값과 일치해야 한다.
const (
	ComplexityTrivial  = "trivial"
	ComplexitySimple   = "simple"
	ComplexityModerate = "moderate"
	ComplexityComplex  = "complex"
)

// maxTrackedTopics: 동시 추적 주제 수 상한. 초과 시 가장 오래된 주제 퇴출을 권고한다.
const maxTrackedTopics = 3

// ActiveTopic 는 호출자가 요청별로 전달하는 활성 주제 스냅샷이다.
// 분류기가 소유하거나 저장하지 않는다.
type ActiveTopic struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SlideContext 는 현재 화면의 슬라이드 컨텍스트다.
// non-nil 여부 자체가 슬라이드 질문 검사의 전제 조건이다.
type SlideContext struct {
	Subtitle string `json:"subtitle"`
}

// Input 는 1회 분류 호출의 요청 스코프 입력이다.
// Query는 외부 sanitizer가 이미 트림/길이 검증을 마친 상태로 전달된다.
type Input struct {
	Query               string
	ActiveTopicID       string
	ActiveTopic         *ActiveTopic
	ConversationHistory []llm.HistoryEntry
	TopicCount          int
	OldestTopicID       string
	CurrentSlide        *SlideContext
}

// Result 는 분류 파이프라인의 단일 출력이다. 호출마다 정확히 하나의 변형이 생성된다.
// ShouldEvictOldest는 new_topic 변형에서만 true가 될 수 있다.
type Result struct {
	Kind              Kind   `json:"classification"`
	IntentID          string `json:"intentId,omitempty"`
	ResponseText      string `json:"responseText,omitempty"`
	Reasoning         string `json:"reasoning"`
	Complexity        string `json:"complexity,omitempty"`
	ShouldEvictOldest bool   `json:"shouldEvictOldest"`
	EvictTopicID      string `json:"evictTopicId,omitempty"`
}

// ComplexityClassifier 는 외부 복잡도 분류 협력자 인터페이스다.
// 테스트에서 mock 구현을 주입할 수 있도록 한다.
type ComplexityClassifier interface {
	// DetermineComplexity 질문과 한 줄 컨텍스트로 복잡도 티어 결정
	DetermineComplexity(ctx context.Context, query string, contextLine string) (string, error)
}
