package classify

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/park285/showme-server-go/internal/cache"
)

// Annotator 는 follow_up / slide_question 결과에 복잡도 티어를 붙인다.
// 외부 분류기 실패(타임아웃, 제공자 오류, 비정상 응답, 취소)는 전부 로컬에서
// ComplexitySimple 로 흡수한다. 재시도는 하지 않는다. 재시도 정책은 AI 클라이언트 몫이다.
type Annotator struct {
	classifier ComplexityClassifier
	timeout    time.Duration
	logger     *slog.Logger
	memo       *cache.TTLCache[string, string]
	group      singleflight.Group
}

// NewAnnotator 는 복잡도 어노테이터를 생성한다.
func NewAnnotator(classifier ComplexityClassifier, timeout time.Duration, memoSize int, memoTTL time.Duration, logger *slog.Logger) *Annotator {
	return &Annotator{
		classifier: classifier,
		timeout:    timeout,
		logger:     logger,
		memo:       cache.NewTTLCache[string, string](memoSize, memoTTL),
	}
}

// Annotate 는 질의와 한 줄 컨텍스트로 복잡도 티어를 결정한다.
// 동일 입력의 동시 호출은 singleflight 로 합치고, 결과는 TTL 캐시에 적재한다.
func (a *Annotator) Annotate(ctx context.Context, query string, contextLine string) string {
	if a == nil || a.classifier == nil {
		return ComplexitySimple
	}

	key := query + "\x1f" + contextLine
	if cached, ok := a.memo.Get(key); ok {
		return cached
	}

	value, _, _ := a.group.Do(key, func() (any, error) {
		tier := a.determine(ctx, query, contextLine)
		a.memo.Set(key, tier)
		return tier, nil
	})

	if tier, ok := value.(string); ok {
		return tier
	}
	return ComplexitySimple
}

func (a *Annotator) determine(ctx context.Context, query string, contextLine string) string {
	callCtx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	tier, err := a.classifier.DetermineComplexity(callCtx, query, contextLine)
	if err != nil {
		if a.logger != nil {
			a.logger.Warn("complexity_fallback", "err", err)
		}
		return ComplexitySimple
	}

	switch strings.ToLower(strings.TrimSpace(tier)) {
	case ComplexityTrivial:
		return ComplexityTrivial
	case ComplexitySimple:
		return ComplexitySimple
	case ComplexityModerate:
		return ComplexityModerate
	case ComplexityComplex:
		return ComplexityComplex
	default:
		if a.logger != nil {
			a.logger.Warn("complexity_malformed", "tier", tier)
		}
		return ComplexitySimple
	}
}
