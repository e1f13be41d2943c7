package health

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"dish-suggester/internal/infrastructure/config"
	"dish-suggester/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Context 中注入依賴使用的鍵
const (
	ConfigKey = "config"
	ModelKey  = "model"
	ModeKey   = "output_mode"
	StoreKey  = "session_store"
)

// statser 可回報統計的儲存（記憶體儲存）
type statser interface {
	Stats() map[string]interface{}
}

// pinger 可檢查連線的儲存（Redis 儲存）
type pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Model     string                 `json:"model,omitempty"`
	Provider  string                 `json:"provider,omitempty"`
	Mode      string                 `json:"output_mode,omitempty"`
	Runtime   map[string]interface{} `json:"runtime"`
	Sessions  *SessionStatus         `json:"sessions,omitempty"`
}

// SessionStatus session 儲存狀態
type SessionStatus struct {
	Backend string                 `json:"backend"`
	Stats   map[string]interface{} `json:"stats,omitempty"`
}

// HealthCheck 健康檢查處理器
func HealthCheck(c *gin.Context) {
	// 獲取配置
	value, exists := c.Get(ConfigKey)
	if !exists {
		common.LogError("Configuration not found in context")
		common.WriteError(c, common.ErrInternalError, false)
		return
	}
	cfg, ok := value.(*config.Config)
	if !ok {
		common.LogError("Invalid configuration type in context")
		common.WriteError(c, common.ErrInternalError, false)
		return
	}

	// 獲取運行時信息
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   cfg.App.Version,
		Model:     c.GetString(ModelKey),
		Provider:  cfg.AI.Provider,
		Mode:      c.GetString(ModeKey),
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
		Sessions: &SessionStatus{Backend: cfg.Session.Store},
	}

	if store, ok := c.Get(StoreKey); ok {
		if s, ok := store.(statser); ok {
			response.Sessions.Stats = s.Stats()
		}
	}

	common.LogDebug("Health check request",
		zap.String("client_ip", c.ClientIP()),
		zap.String("path", c.Request.URL.Path),
	)

	c.JSON(http.StatusOK, response)
}

// ReadinessCheck 就緒檢查處理器，Redis 儲存無法連線時回傳 503
func ReadinessCheck(c *gin.Context) {
	if store, ok := c.Get(StoreKey); ok {
		if p, ok := store.(pinger); ok {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := p.Ping(ctx); err != nil {
				common.LogWarn("Session store not ready", zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status": "not_ready",
					"reason": "session store unreachable",
				})
				return
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

// LivenessCheck 存活檢查處理器
func LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
