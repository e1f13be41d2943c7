package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper(overrides map[string]any) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.Set("openrouter.api_key", "sk-or-test-key-123456")
	for k, val := range overrides {
		v.Set(k, val)
	}
	return v
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "sk-or-env-key-123456")
	t.Setenv("AI_OUTPUT_MODE", "image_keywords")
	t.Setenv("APP_SERVER_PORT", "9090")
	t.Setenv("SESSION_TTL", "30m")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "sk-or-env-key-123456", cfg.OpenRouter.APIKey)
	assert.Equal(t, OutputModeImageKeywords, cfg.AI.OutputMode)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, ProviderOpenRouter, cfg.AI.Provider)
	assert.Equal(t, "North Indian food vegetarian", cfg.AI.CuisineDescriptor)
}

func TestDecodeDefaults(t *testing.T) {
	cfg, err := decode(newTestViper(nil))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, OutputModeNutrition, cfg.AI.OutputMode)
	assert.Equal(t, SessionStoreMemory, cfg.Session.Store)
	assert.Equal(t, 12*time.Hour, cfg.Session.TTL)
	assert.Equal(t, time.Second, cfg.DedupWindow)
	assert.Equal(t, cfg.OpenRouter.Model, cfg.ActiveModel())
}

func TestDecodeNormalisesCase(t *testing.T) {
	cfg, err := decode(newTestViper(map[string]any{
		"ai.provider":    " Gemini ",
		"gemini.api_key": "gm-key",
		"session.store":  "REDIS",
	}))
	require.NoError(t, err)

	assert.Equal(t, ProviderGemini, cfg.AI.Provider)
	assert.Equal(t, SessionStoreRedis, cfg.Session.Store)
	assert.Equal(t, cfg.Gemini.Model, cfg.ActiveModel())
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]any
		wantErr   string
	}{
		{"missing openrouter key", map[string]any{"openrouter.api_key": ""}, "openrouter api key is required"},
		{"missing gemini key", map[string]any{"ai.provider": "gemini"}, "gemini api key is required"},
		{"unknown provider", map[string]any{"ai.provider": "bard"}, "unsupported ai provider"},
		{"unknown output mode", map[string]any{"ai.output_mode": "pictures"}, "unsupported output mode"},
		{"unknown store", map[string]any{"session.store": "disk"}, "unsupported session store"},
		{"zero ttl", map[string]any{"session.ttl": "0s"}, "invalid session ttl"},
		{"zero port", map[string]any{"server.port": 0}, "server port is required"},
		{"bad rate limit", map[string]any{"rate_limit.requests": 0}, "invalid rate limit requests"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decode(newTestViper(tt.overrides))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", MaskAPIKey("short"))
	assert.Equal(t, "sk-o...3456", MaskAPIKey("sk-or-test-key-123456"))
}
