package dish

import (
	"context"

	"dish-suggester/internal/core/ai/service"
	"dish-suggester/internal/pkg/common"

	"go.uber.org/zap"
)

// Generator 生成服務
type Generator interface {
	ProcessRequest(ctx context.Context, systemPrompt, prompt string) (*service.Response, error)
}

// Options 推薦器設定
type Options struct {
	Mode OutputMode
	// CuisineDescriptor 圖片關鍵字預設值的描述，空字串時使用 DefaultCuisineDescriptor
	CuisineDescriptor string
}

// Requestor 組裝請求、呼叫生成服務一次並驗證結果
type Requestor struct {
	generator  Generator
	mode       OutputMode
	descriptor string
}

// NewRequestor 創建推薦器
func NewRequestor(generator Generator, opts Options) *Requestor {
	mode := opts.Mode
	if mode != OutputImageKeywords {
		mode = OutputNutrition
	}
	descriptor := opts.CuisineDescriptor
	if descriptor == "" {
		descriptor = DefaultCuisineDescriptor
	}
	return &Requestor{
		generator:  generator,
		mode:       mode,
		descriptor: descriptor,
	}
}

// Mode 回傳輸出模式
func (r *Requestor) Mode() OutputMode {
	return r.mode
}

// RequestSuggestion 依時段與排除清單取得一道菜的推薦。
// 生成服務只呼叫一次；排除清單只是提示，回傳已排除的菜名時仍會接受。
func (r *Requestor) RequestSuggestion(ctx context.Context, tod TimeOfDay, excludedDishNames []string) (*SuggestionResponse, error) {
	if !tod.Valid() {
		return nil, newError(InvalidRequest, "invalid time of day", nil)
	}
	excluded := cleanExcluded(excludedDishNames)

	prompt, err := buildPrompt(tod, excluded, r.mode)
	if err != nil {
		return nil, newError(InvalidRequest, "failed to build prompt", err)
	}

	common.LogDebug("Requesting dish suggestion",
		zap.String("time_of_day", string(tod)),
		zap.Int("excluded", len(excluded)),
		zap.String("mode", string(r.mode)),
	)

	resp, err := r.generator.ProcessRequest(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, newError(ServiceUnavailable, "generation service call failed", err)
	}

	raw, err := decodeSuggestion(resp.Content)
	if err != nil {
		common.LogError("AI 回應解析失敗",
			zap.Error(err),
			zap.Int("ai_response_length", len(resp.Content)),
		)
		return nil, newError(InvalidResponse, "generation service returned malformed output", err)
	}

	suggestion, err := normalizeSuggestion(raw, r.descriptor)
	if err != nil {
		common.LogError("AI 回應缺少必要欄位", zap.Error(err))
		return nil, newError(InvalidResponse, "generation service returned an incomplete suggestion", err)
	}

	if containsFold(excluded, suggestion.DishName) {
		common.LogWarn("Generator repeated an excluded dish",
			zap.String("dish", suggestion.DishName),
			zap.Int("excluded", len(excluded)),
		)
	}

	return suggestion, nil
}
