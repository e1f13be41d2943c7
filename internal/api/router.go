package api

import (
	"fmt"
	"time"

	"dish-suggester/internal/api/handlers/health"
	"dish-suggester/internal/api/handlers/suggestion"
	"dish-suggester/internal/api/middleware"
	"dish-suggester/internal/core/dish"
	"dish-suggester/internal/core/session"
	"dish-suggester/internal/infrastructure/config"
	"dish-suggester/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// 請求體大小限制 (64KB)
	maxBodySize = 64 << 10
)

// Dependencies 路由需要的服務
type Dependencies struct {
	Sessions  suggestion.SessionManager
	Suggester session.Suggester
	Store     session.Store
	Model     string
	Mode      dish.OutputMode
	Now       func() time.Time
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Dependencies) (*gin.Engine, error) {
	if deps.Sessions == nil || deps.Suggester == nil {
		return nil, fmt.Errorf("session manager and suggester are required")
	}

	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(requestid.New())

	origins := cfg.Server.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: !containsWildcard(origins),
		MaxAge:           12 * time.Hour,
	}))

	router.Use(middleware.BodySizeLimit(maxBodySize))
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	// 注入健康檢查需要的依賴
	router.Use(func(c *gin.Context) {
		c.Set(health.ConfigKey, cfg)
		c.Set(health.ModelKey, deps.Model)
		c.Set(health.ModeKey, string(deps.Mode))
		if deps.Store != nil {
			c.Set(health.StoreKey, deps.Store)
		}
		c.Next()
	})

	// 健康檢查路由
	router.GET("/health", health.HealthCheck)
	router.GET("/ready", health.ReadinessCheck)
	router.GET("/live", health.LivenessCheck)

	api := router.Group("/api/v1")
	if cfg.RateLimit.Enabled {
		api.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	// session 路由由 Manager 擋下重疊請求，去重只用在單次推薦
	handler := suggestion.NewHandler(deps.Sessions, deps.Suggester, deps.Now, cfg.App.Debug)
	handler.Register(api, middleware.Deduplication(cfg.DedupWindow))

	common.LogInfo("Router setup completed successfully",
		zap.String("model", deps.Model),
		zap.String("session_store", cfg.Session.Store),
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
		zap.Duration("timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_body_size", maxBodySize),
	)

	return router, nil
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
