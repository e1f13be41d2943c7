package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dish-suggester/internal/core/ai/provider"
	"dish-suggester/internal/infrastructure/config"
	"dish-suggester/internal/pkg/common"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Client Google Gemini API 客戶端
type Client struct {
	client *genai.Client
	config config.GeminiConfig
}

// NewClient 創建新的 Gemini 客戶端
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.Gemini.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Client{client: client, config: cfg.Gemini}, nil
}

// Generate 生成回應，每次請求建立獨立的 GenerativeModel 以免共享設定
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	model := c.client.GenerativeModel(c.config.Model)

	temperature := c.config.Temperature
	if req.Temperature > 0 {
		temperature = float32(req.Temperature)
	}
	model.SetTemperature(temperature)
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.JSONOutput {
		model.ResponseMIMEType = "application/json"
	}

	system, parts := splitMessages(req.Messages)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("no user content in request")
	}

	common.LogDebug("Sending request to Gemini",
		zap.String("model", c.config.Model),
		zap.Int("parts", len(parts)),
		zap.Bool("json_output", req.JSONOutput),
	)

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	content, err := extractText(resp)
	if err != nil {
		return nil, err
	}

	out := &provider.Response{
		Model:   c.config.Model,
		Content: content,
	}
	if resp.UsageMetadata != nil {
		out.Usage = provider.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return out, nil
}

// splitMessages 將 system 訊息合併為系統指令，其餘轉為文字 part
func splitMessages(messages []provider.Message) (string, []genai.Part) {
	var system []string
	var parts []genai.Part
	for _, m := range messages {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		if m.Role == provider.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		parts = append(parts, genai.Text(m.Content))
	}
	return strings.Join(system, "\n\n"), parts
}

// extractText 取出第一個候選結果的文字內容
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", provider.ErrEmptyCompletion
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return "", fmt.Errorf("prompt blocked by Gemini: %s", resp.PromptFeedback.BlockReason.String())
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no candidates in Gemini response: %w", provider.ErrEmptyCompletion)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	content := strings.TrimSpace(sb.String())
	if content == "" {
		return "", fmt.Errorf("finish reason %s: %w", resp.Candidates[0].FinishReason.String(), provider.ErrEmptyCompletion)
	}
	return content, nil
}

// GetModel 獲取模型名稱
func (c *Client) GetModel() string {
	return c.config.Model
}

// GetTimeout 獲取請求超時時間
func (c *Client) GetTimeout() time.Duration {
	return c.config.Timeout
}

// Close 關閉底層 Gemini 客戶端
func (c *Client) Close() error {
	return c.client.Close()
}
