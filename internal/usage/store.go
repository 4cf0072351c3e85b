package usage

import (
	"context"
	"time"
)

// Store 는 토큰 사용량 저장소 인터페이스다. 테스트에서 목 구현을 주입한다.
type Store interface {
	// RecordUsage 는 (일자, 작업)별 사용량을 누적한다.
	RecordUsage(
		ctx context.Context,
		task string,
		inputTokens int64,
		outputTokens int64,
		reasoningTokens int64,
		requestCount int64,
		usageDate time.Time,
	) error

	// GetDailyUsage 는 특정 일자의 합산 사용량을 조회한다.
	GetDailyUsage(ctx context.Context, usageDate time.Time) (*DailyUsage, error)

	// GetDailyByTask 는 특정 일자의 작업별 사용량을 조회한다.
	GetDailyByTask(ctx context.Context, usageDate time.Time) ([]TaskUsage, error)

	// GetRecentUsage 는 최근 N일의 일자별 합산 사용량을 조회한다.
	GetRecentUsage(ctx context.Context, days int) ([]DailyUsage, error)

	// GetTotalUsage 는 최근 N일 합계를 조회한다.
	GetTotalUsage(ctx context.Context, days int) (DailyUsage, error)

	// Close 는 리소스를 정리한다.
	Close()
}

var _ Store = (*Repository)(nil)
