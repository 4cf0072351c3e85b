package di

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/park285/showme-server-go/internal/classify"
	"github.com/park285/showme-server-go/internal/config"
	"github.com/park285/showme-server-go/internal/logging"
	"github.com/park285/showme-server-go/internal/randx"
)

// ProvideLogger: 로거를 구성해 반환합니다.
func ProvideLogger(cfg *config.Config) (*slog.Logger, error) {
	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}

// ProvideAnnotator: 복잡도 어노테이터를 설정값으로 조립합니다.
func ProvideAnnotator(cfg *config.Config, complexity classify.ComplexityClassifier, logger *slog.Logger) *classify.Annotator {
	return classify.NewAnnotator(
		complexity,
		time.Duration(cfg.Classifier.ComplexityTimeoutMillis)*time.Millisecond,
		cfg.Classifier.MemoSize,
		time.Duration(cfg.Classifier.MemoTTLSeconds)*time.Second,
		logger,
	)
}

// ProvideRandom: 프로세스 전역 난수 소스를 반환합니다.
func ProvideRandom() *randx.LockedRand {
	return randx.New(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
}
