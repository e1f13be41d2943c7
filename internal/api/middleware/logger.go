package middleware

import (
	"time"

	"dish-suggester/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Logger 存取日誌中間件，記錄 session 與推薦結果
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
			// requestid 中間件在後面註冊，請求結束後才讀得到
			zap.String("request_id", c.Writer.Header().Get("X-Request-ID")),
		}
		if id := c.Param("id"); id != "" {
			fields = append(fields, zap.String("session_id", id))
		}
		if code := c.GetString(common.ErrorCodeKey); code != "" {
			fields = append(fields, zap.String("code", code))
		}
		if name := c.GetString(common.DishNameKey); name != "" {
			fields = append(fields, zap.String("dish_name", name))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}

		switch {
		case status >= 500:
			common.LogError("推薦服務錯誤", fields...)
		case status >= 400:
			common.LogWarn("請求被拒絕", fields...)
		default:
			common.LogInfo("請求完成", fields...)
		}
	}
}

// Recovery 攔截 panic 並回傳 INTERNAL_ERROR
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				common.LogError("Panic recovered",
					zap.Any("error", err),
					zap.String("path", c.Request.URL.Path),
					zap.String("session_id", c.Param("id")),
				)
				common.AbortWithError(c, common.ErrInternalError)
			}
		}()

		c.Next()
	}
}
