package common

import (
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GenerateUUID 生成 UUID
func GenerateUUID() string {
	return uuid.New().String()
}

// RequestID 取得請求 ID，requestid 中間件未設定時補一個新的
func RequestID(c *gin.Context) string {
	if id := requestid.Get(c); id != "" {
		return id
	}
	id := GenerateUUID()
	c.Header("X-Request-ID", id)
	return id
}

// 存取日誌從 Context 讀取的鍵
const (
	ErrorCodeKey = "error_code"
	DishNameKey  = "dish_name"
)

// WriteError 寫入錯誤響應並記下錯誤代碼
func WriteError(c *gin.Context, err *CustomError, debug bool) {
	c.Set(ErrorCodeKey, err.Code)
	c.JSON(err.Status, err.Response(debug))
}

// AbortWithError 中斷請求並寫入錯誤響應
func AbortWithError(c *gin.Context, err *CustomError) {
	c.Set(ErrorCodeKey, err.Code)
	c.AbortWithStatusJSON(err.Status, err.Response(false))
}
