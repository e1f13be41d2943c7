package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dish-suggester/internal/core/ai/gemini"
	"dish-suggester/internal/core/ai/openrouter"
	"dish-suggester/internal/core/ai/provider"
	"dish-suggester/internal/infrastructure/config"
	"dish-suggester/internal/pkg/common"

	"go.uber.org/zap"
)

// Response AI 回應結構
type Response struct {
	Content string
	Model   string
	Usage   provider.Usage
}

// Service 生成服務，包裝底層供應商
type Service struct {
	provider provider.Provider
}

// NewProvider 依設定建立供應商
func NewProvider(ctx context.Context, cfg *config.Config) (provider.Provider, error) {
	switch cfg.AI.Provider {
	case config.ProviderGemini:
		return gemini.NewClient(ctx, cfg)
	case config.ProviderOpenRouter:
		return openrouter.NewClient(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", cfg.AI.Provider)
	}
}

// NewService 創建 AI 服務
func NewService(p provider.Provider) *Service {
	return &Service{provider: p}
}

// ProcessRequest 統一對外方法，每次呼叫只送出一次請求，不做重試
func (s *Service) ProcessRequest(ctx context.Context, systemPrompt, prompt string) (*Response, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, fmt.Errorf("prompt is empty")
	}

	if timeout := s.provider.GetTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	messages := make([]provider.Message, 0, 2)
	if systemPrompt = strings.TrimSpace(systemPrompt); systemPrompt != "" {
		messages = append(messages, provider.Message{Role: provider.RoleSystem, Content: systemPrompt})
	}
	messages = append(messages, provider.Message{Role: provider.RoleUser, Content: prompt})

	start := time.Now()
	resp, err := s.provider.Generate(ctx, &provider.Request{
		Messages:   messages,
		JSONOutput: true,
	})
	common.LogAICall(s.provider.GetModel(), time.Since(start), err, requestIDFrom(ctx))
	if err != nil {
		return nil, err
	}

	common.LogDebug("AI usage",
		zap.String("model", resp.Model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)

	return &Response{Content: resp.Content, Model: resp.Model, Usage: resp.Usage}, nil
}

// Model 回傳目前模型名稱
func (s *Service) Model() string {
	return s.provider.GetModel()
}

// Close 關閉底層供應商
func (s *Service) Close() error {
	return s.provider.Close()
}

type requestIDKey struct{}

// WithRequestID 將請求 ID 放入 context，供日誌使用
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
