package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"dish-suggester/internal/core/ai/provider"
	"dish-suggester/internal/infrastructure/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	calls    int
	last     *provider.Request
	deadline bool
	resp     *provider.Response
	err      error
}

func (f *fakeProvider) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	f.calls++
	f.last = req
	_, f.deadline = ctx.Deadline()
	return f.resp, f.err
}

func (f *fakeProvider) GetModel() string          { return "fake/model" }
func (f *fakeProvider) GetTimeout() time.Duration { return time.Minute }
func (f *fakeProvider) Close() error              { return nil }

func TestProcessRequest(t *testing.T) {
	fp := &fakeProvider{resp: &provider.Response{Content: `{"dishName":"Poha"}`, Model: "fake/model"}}
	svc := NewService(fp)

	resp, err := svc.ProcessRequest(WithRequestID(context.Background(), "req-1"), "  be a chef ", "  suggest  ")
	require.NoError(t, err)

	assert.Equal(t, `{"dishName":"Poha"}`, resp.Content)
	assert.Equal(t, 1, fp.calls)
	assert.True(t, fp.deadline)
	assert.True(t, fp.last.JSONOutput)
	assert.Equal(t, []provider.Message{
		{Role: provider.RoleSystem, Content: "be a chef"},
		{Role: provider.RoleUser, Content: "suggest"},
	}, fp.last.Messages)
}

func TestProcessRequestNoSystemPrompt(t *testing.T) {
	fp := &fakeProvider{resp: &provider.Response{Content: "{}"}}
	_, err := NewService(fp).ProcessRequest(context.Background(), "", "suggest")
	require.NoError(t, err)
	require.Len(t, fp.last.Messages, 1)
	assert.Equal(t, provider.RoleUser, fp.last.Messages[0].Role)
}

func TestProcessRequestDoesNotRetry(t *testing.T) {
	fp := &fakeProvider{err: errors.New("upstream 502")}
	_, err := NewService(fp).ProcessRequest(context.Background(), "", "suggest")
	require.Error(t, err)
	assert.Equal(t, 1, fp.calls)
}

func TestProcessRequestRejectsEmptyPrompt(t *testing.T) {
	fp := &fakeProvider{}
	_, err := NewService(fp).ProcessRequest(context.Background(), "sys", "   ")
	require.Error(t, err)
	assert.Zero(t, fp.calls)
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(context.Background(), &config.Config{
		AI:         config.AIConfig{Provider: config.ProviderOpenRouter},
		OpenRouter: config.OpenRouterConfig{Model: "m", BaseURL: "http://localhost"},
	})
	require.NoError(t, err)
	assert.Equal(t, "m", p.GetModel())

	_, err = NewProvider(context.Background(), &config.Config{AI: config.AIConfig{Provider: "other"}})
	assert.Error(t, err)
}
