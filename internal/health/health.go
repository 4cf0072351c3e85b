package health

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/park285/showme-server-go/internal/config"
	"github.com/park285/showme-server-go/internal/session"
)

var startTime = time.Now()

// Component 는 상태 구성 요소다.
type Component struct {
	Status string         `json:"status"`
	Detail map[string]any `json:"detail"`
}

// Response 는 상태 응답 본문이다.
type Response struct {
	Status       string               `json:"status"`
	Components   map[string]Component `json:"components"`
	SessionStore map[string]any       `json:"session_store"`
}

// Collect 는 헬스 상태를 수집한다.
func Collect(ctx context.Context, cfg *config.Config, deepChecks bool) Response {
	components := make(map[string]Component)

	appStatus := buildAppStatus()
	components["app"] = appStatus

	sessionStoreStatus := buildSessionStoreStatus(ctx, cfg, deepChecks)
	components["session_store"] = sessionStoreStatus

	geminiStatus := buildGeminiStatus(cfg)
	components["gemini"] = geminiStatus

	components["usage_db"] = buildUsageDBStatus(ctx, cfg, deepChecks)

	overall := "ok"
	for _, component := range components {
		if component.Status != "ok" {
			overall = "degraded"
			break
		}
	}

	return Response{
		Status:       overall,
		Components:   components,
		SessionStore: sessionStoreStatus.Detail,
	}
}

func buildAppStatus() Component {
	uptimeSeconds := int(time.Since(startTime).Seconds())
	return Component{
		Status: "ok",
		Detail: map[string]any{
			"uptime_seconds": uptimeSeconds,
		},
	}
}

func buildGeminiStatus(cfg *config.Config) Component {
	apiKeyPresent := false
	defaultModel := ""
	timeoutSeconds := 0
	maxRetries := 0

	if cfg != nil {
		apiKeyPresent = cfg.Gemini.PrimaryKey() != ""
		defaultModel = cfg.Gemini.TextModel
		timeoutSeconds = cfg.Gemini.TimeoutSeconds
		maxRetries = cfg.Gemini.MaxRetries
	}
	status := "ok"
	if !apiKeyPresent {
		status = "degraded"
	}

	detail := map[string]any{
		"api_key_present": apiKeyPresent,
		"default_model":   defaultModel,
		"timeout_seconds": timeoutSeconds,
		"max_retries":     maxRetries,
	}

	return Component{
		Status: status,
		Detail: detail,
	}
}

func buildSessionStoreStatus(ctx context.Context, cfg *config.Config, deepChecks bool) Component {
	reachability := false
	backend := "memory"
	storeEnabled := false
	storeURL := ""
	sessionTTL := 0
	sessionCount := 0
	sessionCountErr := ""

	if cfg != nil {
		storeEnabled = cfg.SessionStore.Enabled
		storeURL = cfg.SessionStore.URL
		sessionTTL = cfg.Session.SessionTTLMinutes
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if storeEnabled && deepChecks {
		checkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()

		store, err := session.NewStore(cfg)
		if err != nil {
			sessionCountErr = err.Error()
		} else {
			defer store.Close()
			if err := store.Ping(checkCtx); err != nil {
				sessionCountErr = err.Error()
			} else {
				reachability = true
				backend = "valkey"
				count, err := store.SessionCount(checkCtx)
				if err != nil {
					sessionCountErr = err.Error()
				} else {
					sessionCount = count
				}
			}
		}
	}

	status := "ok"
	if storeEnabled && !reachability {
		status = "degraded"
	}

	detail := map[string]any{
		"store_enabled":       storeEnabled,
		"store_connected":     reachability,
		"backend":             backend,
		"session_count":       sessionCount,
		"store_url":           storeURL,
		"session_ttl_minutes": sessionTTL,
		"deep_checked":        deepChecks,
	}
	if sessionCountErr != "" {
		detail["session_count_error"] = sessionCountErr
	}

	return Component{
		Status: status,
		Detail: detail,
	}
}

// buildUsageDBStatus 는 사용량 DB의 상태를 수집한다. 깊은 검사는 연결 풀을
// 열지 않고 TCP 도달성만 본다.
func buildUsageDBStatus(ctx context.Context, cfg *config.Config, deepChecks bool) Component {
	host := ""
	port := 0
	name := ""
	configured := false
	if cfg != nil {
		host = cfg.Database.Host
		port = cfg.Database.Port
		name = cfg.Database.Name
		configured = host != "" && port > 0
	}

	detail := map[string]any{
		"configured":   configured,
		"host":         host,
		"name":         name,
		"deep_checked": deepChecks,
	}

	// 사용량 집계는 선택 기능이라 미설정이어도 ok 다.
	if !configured {
		return Component{Status: "ok", Detail: detail}
	}

	if !deepChecks {
		return Component{Status: "ok", Detail: detail}
	}

	if ctx == nil {
		ctx = context.Background()
	}
	checkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(checkCtx, "tcp", addr)
	if err != nil {
		detail["reachable"] = false
		detail["error"] = err.Error()
		return Component{Status: "degraded", Detail: detail}
	}
	_ = conn.Close()

	detail["reachable"] = true
	return Component{Status: "ok", Detail: detail}
}

func storeAddress(storeURL string) (string, error) {
	parsed, err := url.Parse(storeURL)
	if err != nil {
		return "", fmt.Errorf("parse session store url: %w", err)
	}

	host := parsed.Hostname()
	if host == "" {
		return "", fmt.Errorf("session store host missing")
	}

	port := parsed.Port()
	if port == "" {
		port = "6379"
	}

	return net.JoinHostPort(host, port), nil
}
