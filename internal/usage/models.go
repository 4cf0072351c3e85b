package usage

import "time"

// 호출 작업 구분. gemini 클라이언트가 건네는 Task 문자열과 같은 값을 쓴다.
const (
	TaskScript     = "script"
	TaskImage      = "image"
	TaskTTS        = "tts"
	TaskClassify   = "classify"
	TaskEngagement = "engagement"
	TaskOther      = "other"
)

// TokenUsage 는 (일자, 작업)별 토큰 사용량 집계를 저장하는 DB 모델이다.
// 대본/이미지/음성/분류 호출의 비용이 분리되어 쌓인다.
type TokenUsage struct {
	ID              int64     `gorm:"column:id;primaryKey"`
	UsageDate       time.Time `gorm:"column:usage_date;type:date"`
	Task            string    `gorm:"column:task"`
	InputTokens     int64     `gorm:"column:input_tokens"`
	OutputTokens    int64     `gorm:"column:output_tokens"`
	ReasoningTokens int64     `gorm:"column:reasoning_tokens"`
	RequestCount    int64     `gorm:"column:request_count"`
	Version         int64     `gorm:"column:version"`
}

// TableName 은 GORM에서 사용할 테이블명을 반환한다.
func (TokenUsage) TableName() string {
	return "token_usage"
}

// DailyUsage 는 작업 구분 없이 합산한 일자별 사용량 뷰 모델이다.
type DailyUsage struct {
	UsageDate       time.Time
	InputTokens     int64
	OutputTokens    int64
	ReasoningTokens int64
	RequestCount    int64
}

// TotalTokens 는 입력+출력 토큰 합계를 반환한다.
func (d DailyUsage) TotalTokens() int64 {
	return d.InputTokens + d.OutputTokens
}

// TaskUsage 는 특정 일자의 작업별 사용량 뷰 모델이다.
type TaskUsage struct {
	Task            string
	InputTokens     int64
	OutputTokens    int64
	ReasoningTokens int64
	RequestCount    int64
}

// TotalTokens 는 입력+출력 토큰 합계를 반환한다.
func (u TaskUsage) TotalTokens() int64 {
	return u.InputTokens + u.OutputTokens
}

// normalizeTask 는 빈 작업명을 TaskOther 로 흡수한다.
func normalizeTask(task string) string {
	if task == "" {
		return TaskOther
	}
	return task
}
