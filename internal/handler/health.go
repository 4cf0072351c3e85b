package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/park285/showme-server-go/internal/config"
	"github.com/park285/showme-server-go/internal/health"
	"github.com/park285/showme-server-go/internal/metrics"
)

// ModelConfigResponse: 모델 설정 응답입니다.
type ModelConfigResponse struct {
	ModelText             string  `json:"model_text"`
	ModelClassifier       string  `json:"model_classifier"`
	ModelImage            string  `json:"model_image"`
	ModelTTS              string  `json:"model_tts"`
	Temperature           float64 `json:"temperature"`
	ConfiguredTemperature float64 `json:"configured_temperature"`
	TimeoutSeconds        int     `json:"timeout_seconds"`
	MaxRetries            int     `json:"max_retries"`
	HTTP2Enabled          bool    `json:"http2_enabled"`
	TransportMode         string  `json:"transport_mode"`
}

// RegisterHealthRoutes: 상태 확인 라우트를 등록합니다.
func RegisterHealthRoutes(router *gin.Engine, cfg *config.Config, metricsStore *metrics.Store) {
	router.GET("/health", func(c *gin.Context) {
		// Liveness: 외부 의존성(Valkey/DB 등) 상태로 인해 다운 판정되지 않도록 shallow로 유지합니다.
		payload := health.Collect(c.Request.Context(), cfg, false)
		c.JSON(http.StatusOK, payload)
	})

	router.GET("/health/ready", func(c *gin.Context) {
		payload := health.Collect(c.Request.Context(), cfg, true)
		status := http.StatusOK
		if payload.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, payload)
	})

	// LLM 호출 누적 통계
	router.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, metricsStore.Snapshot())
	})

	router.GET("/health/models", func(c *gin.Context) {
		transportMode := "h1"
		if cfg.HTTP.HTTP2Enabled {
			transportMode = "h2c"
		}

		response := ModelConfigResponse{
			ModelText:             cfg.Gemini.TextModel,
			ModelClassifier:       cfg.Gemini.ModelForTask("classify"),
			ModelImage:            cfg.Gemini.ModelForTask("image"),
			ModelTTS:              cfg.Gemini.ModelForTask("tts"),
			Temperature:           cfg.Gemini.TemperatureForModel(cfg.Gemini.TextModel),
			ConfiguredTemperature: cfg.Gemini.Temperature,
			TimeoutSeconds:        cfg.Gemini.TimeoutSeconds,
			MaxRetries:            cfg.Gemini.MaxRetries,
			HTTP2Enabled:          cfg.HTTP.HTTP2Enabled,
			TransportMode:         transportMode,
		}

		c.JSON(http.StatusOK, response)
	})
}
