package generate

// Stage 는 생성 진행 단계다.
type Stage string

const (
	StageScript Stage = "script"
	StageImage  Stage = "image"
	StageSpeech Stage = "speech"
	StageDone   Stage = "done"
)

// ProgressEvent 는 생성 진행 스트림의 이벤트 하나다.
// SlideIndex 는 0부터 시작하고, 단계가 슬라이드 단위가 아니면 -1 이다.
type ProgressEvent struct {
	Stage      Stage  `json:"stage"`
	SlideIndex int    `json:"slideIndex"`
	SlideCount int    `json:"slideCount"`
	TopicID    string `json:"topicId,omitempty"`
}

// ProgressFunc 는 진행 이벤트를 받는 콜백이다. nil 이면 무시된다.
type ProgressFunc func(ProgressEvent)

func (f ProgressFunc) notify(event ProgressEvent) {
	if f != nil {
		f(event)
	}
}
