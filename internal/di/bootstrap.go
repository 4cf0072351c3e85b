package di

import (
	"context"
	"fmt"

	"github.com/park285/showme-server-go/internal/classify"
	"github.com/park285/showme-server-go/internal/config"
	"github.com/park285/showme-server-go/internal/gemini"
	"github.com/park285/showme-server-go/internal/generate"
	"github.com/park285/showme-server-go/internal/handler"
	"github.com/park285/showme-server-go/internal/metrics"
	"github.com/park285/showme-server-go/internal/sanitize"
	"github.com/park285/showme-server-go/internal/server"
	"github.com/park285/showme-server-go/internal/session"
	"github.com/park285/showme-server-go/internal/usage"
)

// InitializeApp 은 애플리케이션 의존성을 초기화하고 App 인스턴스를 반환한다.
func InitializeApp() (*App, error) {
	cfg, err := config.ProvideConfig()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	metricsStore := metrics.NewStore()

	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	usageRepository := usage.NewRepository(cfg, logger)
	usageRecorder := usage.NewRecorder(cfg, usageRepository, logger)

	geminiClient, err := gemini.NewClient(cfg, metricsStore, usageRecorder)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	catalog, err := classify.NewCatalog()
	if err != nil {
		return nil, fmt.Errorf("classify catalog: %w", err)
	}
	annotator := ProvideAnnotator(cfg, geminiClient, logger)
	classifier := classify.NewClassifier(catalog, annotator, logger)

	sanitizer := sanitize.NewSanitizer(cfg.Sanitize)

	sessionStore, err := session.NewStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}
	if cfg.SessionStore.Required {
		if err := sessionStore.WaitReady(context.Background()); err != nil {
			sessionStore.Close()
			return nil, fmt.Errorf("session store: %w", err)
		}
	}
	sessionManager := session.NewManager(sessionStore, cfg, logger)

	generator, err := generate.NewService(geminiClient, cfg, ProvideRandom(), logger)
	if err != nil {
		return nil, fmt.Errorf("generate service: %w", err)
	}

	classifyHandler := handler.NewClassifyHandler(classifier, sanitizer, sessionManager, logger)
	generateHandler := handler.NewGenerateHandler(generator, sanitizer, sessionManager, cfg, logger)
	sessionHandler := handler.NewSessionHandler(sessionManager, logger)
	usageHandler := handler.NewUsageHandler(cfg, usageRepository, logger)

	router := handler.NewRouter(cfg, logger, metricsStore, classifyHandler, generateHandler, sessionHandler, usageHandler)
	httpServer := server.NewHTTPServer(cfg, router)

	return NewApp(httpServer, logger, cfg, sessionStore, usageRepository, usageRecorder), nil
}
