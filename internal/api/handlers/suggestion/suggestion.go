package suggestion

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"dish-suggester/internal/core/ai/service"
	"dish-suggester/internal/core/dish"
	"dish-suggester/internal/core/session"
	"dish-suggester/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SessionManager session 操作
type SessionManager interface {
	Create(ctx context.Context) (*session.Snapshot, error)
	Get(ctx context.Context, id string) (*session.Snapshot, error)
	Suggest(ctx context.Context, id string, force bool) (*dish.SuggestionResponse, *session.Snapshot, error)
	Delete(ctx context.Context, id string) error
}

// SuggestRequest 單次推薦請求，未指定時段時依伺服器時鐘判斷
type SuggestRequest struct {
	TimeOfDay         string   `json:"time_of_day,omitempty"`
	ExcludedDishNames []string `json:"excluded_dish_names,omitempty"`
}

// SessionResponse session 狀態響應
type SessionResponse struct {
	Session *session.Snapshot `json:"session"`
}

// OutcomeResponse 推薦結果響應，成功與失敗都以同一結構回傳
type OutcomeResponse struct {
	dish.Outcome
	Code    string            `json:"code,omitempty"`
	Session *session.Snapshot `json:"session,omitempty"`
}

// TimeOfDayResponse 目前時段
type TimeOfDayResponse struct {
	TimeOfDay dish.TimeOfDay `json:"time_of_day"`
	Hour      int            `json:"hour"`
}

// Handler 推薦處理程序
type Handler struct {
	sessions  SessionManager
	suggester session.Suggester
	now       func() time.Time
	debug     bool
}

// NewHandler 創建推薦處理程序
func NewHandler(sessions SessionManager, suggester session.Suggester, now func() time.Time, debug bool) *Handler {
	if now == nil {
		now = time.Now
	}
	return &Handler{
		sessions:  sessions,
		suggester: suggester,
		now:       now,
		debug:     debug,
	}
}

// Register 註冊路由，stateless 只套用在不使用 session 的單次推薦
func (h *Handler) Register(rg *gin.RouterGroup, stateless ...gin.HandlerFunc) {
	sessions := rg.Group("/sessions")
	{
		sessions.POST("", h.HandleCreateSession)
		sessions.GET("/:id", h.HandleGetSession)
		sessions.DELETE("/:id", h.HandleDeleteSession)
		sessions.POST("/:id/suggestion", h.HandleSessionSuggestion)
	}

	rg.POST("/suggestion", append(stateless, h.HandleSuggestion)...)
	rg.GET("/time-of-day", h.HandleTimeOfDay)
}

// HandleCreateSession 建立新的推薦 session
func (h *Handler) HandleCreateSession(c *gin.Context) {
	requestID := common.RequestID(c)

	snapshot, err := h.sessions.Create(c.Request.Context())
	if err != nil {
		common.LogError("建立 session 失敗",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		common.WriteError(c, mapError(err), h.debug)
		return
	}

	common.LogInfo("Session 已建立",
		zap.String("request_id", requestID),
		zap.String("session_id", snapshot.ID),
	)
	c.JSON(http.StatusCreated, SessionResponse{Session: snapshot})
}

// HandleGetSession 取得 session 狀態
func (h *Handler) HandleGetSession(c *gin.Context) {
	snapshot, err := h.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.WriteError(c, mapError(err), h.debug)
		return
	}
	c.JSON(http.StatusOK, SessionResponse{Session: snapshot})
}

// HandleDeleteSession 刪除 session，進行中的請求會被取消
func (h *Handler) HandleDeleteSession(c *gin.Context) {
	if err := h.sessions.Delete(c.Request.Context(), c.Param("id")); err != nil {
		common.WriteError(c, mapError(err), h.debug)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleSessionSuggestion 為 session 取得下一道推薦，force=true 時取代進行中的請求
func (h *Handler) HandleSessionSuggestion(c *gin.Context) {
	requestID := common.RequestID(c)
	id := c.Param("id")

	force := false
	if raw := c.Query("force"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			common.WriteError(c, common.ErrInvalidRequest.Wrap(err), h.debug)
			return
		}
		force = parsed
	}

	common.LogInfo("開始處理推薦請求",
		zap.String("request_id", requestID),
		zap.String("session_id", id),
		zap.Bool("force", force),
		zap.String("client_ip", c.ClientIP()),
	)

	ctx := service.WithRequestID(c.Request.Context(), requestID)
	resp, snapshot, err := h.sessions.Suggest(ctx, id, force)
	if err != nil {
		h.writeFailure(c, requestID, err, snapshot)
		return
	}

	common.LogInfo("推薦成功",
		zap.String("request_id", requestID),
		zap.String("session_id", id),
		zap.String("dish_name", resp.DishName),
		zap.Int("excluded_count", len(snapshot.ExcludedDishNames)),
	)
	c.Set(common.DishNameKey, resp.DishName)
	c.JSON(http.StatusOK, OutcomeResponse{
		Outcome: dish.NewOutcome(resp, nil),
		Session: snapshot,
	})
}

// HandleSuggestion 不使用 session 的單次推薦，排除清單由呼叫端提供
func (h *Handler) HandleSuggestion(c *gin.Context) {
	requestID := common.RequestID(c)

	var req SuggestRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			common.WriteError(c, common.ErrBodyTooLarge, h.debug)
			return
		}
		common.LogError("請求格式無效",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		common.WriteError(c, common.ErrInvalidRequest.Wrap(err), h.debug)
		return
	}

	tod := dish.CurrentTimeOfDay(h.now)
	if req.TimeOfDay != "" {
		parsed, err := dish.ParseTimeOfDay(req.TimeOfDay)
		if err != nil {
			common.WriteError(c, common.ErrInvalidRequest.Wrap(err), h.debug)
			return
		}
		tod = parsed
	}

	ctx := service.WithRequestID(c.Request.Context(), requestID)
	resp, err := h.suggester.RequestSuggestion(ctx, tod, req.ExcludedDishNames)
	if err != nil {
		h.writeFailure(c, requestID, err, nil)
		return
	}

	c.Set(common.DishNameKey, resp.DishName)
	c.JSON(http.StatusOK, OutcomeResponse{Outcome: dish.NewOutcome(resp, nil)})
}

// HandleTimeOfDay 回傳伺服器目前的時段
func (h *Handler) HandleTimeOfDay(c *gin.Context) {
	now := h.now()
	c.JSON(http.StatusOK, TimeOfDayResponse{
		TimeOfDay: dish.TimeOfDayForHour(now.Hour()),
		Hour:      now.Hour(),
	})
}

func (h *Handler) writeFailure(c *gin.Context, requestID string, err error, snapshot *session.Snapshot) {
	ce := mapError(err)
	fields := []zap.Field{
		zap.Error(err),
		zap.String("request_id", requestID),
		zap.String("code", ce.Code),
	}
	if ce.Status >= http.StatusInternalServerError {
		common.LogError("推薦失敗", fields...)
	} else {
		common.LogWarn("推薦請求被拒絕", fields...)
	}

	c.Set(common.ErrorCodeKey, ce.Code)
	c.JSON(ce.Status, OutcomeResponse{
		Outcome: dish.NewOutcome(nil, err),
		Code:    ce.Code,
		Session: snapshot,
	})
}

// mapError 將領域錯誤轉換為 API 錯誤
func mapError(err error) *common.CustomError {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return common.ErrSessionNotFound.Wrap(err)
	case errors.Is(err, session.ErrSuggestionInFlight):
		return common.ErrConflict.Wrap(err)
	case errors.Is(err, session.ErrStaleRequest):
		return common.NewError("SUPERSEDED", "suggestion was superseded by a newer request", http.StatusConflict, err)
	case errors.Is(err, session.ErrInvalidTransition):
		return common.ErrConflict.Wrap(err)
	case errors.Is(err, session.ErrStoreFull):
		return common.ErrStoreFull.Wrap(err)
	}

	switch dish.KindOf(err) {
	case dish.ServiceUnavailable:
		return common.ErrServiceUnavailable.Wrap(err)
	case dish.InvalidResponse:
		return common.ErrInvalidResponse.Wrap(err)
	case dish.InvalidRequest:
		return common.ErrInvalidRequest.Wrap(err)
	}

	return common.AsCustomError(err)
}
