package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"cvstudio/internal/config"
	cvstudioErrors "cvstudio/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockProvider struct {
	reply        string
	usage        *TokenUsage
	err          error
	gotSystem    string
	gotUser      string
	calls        int
	modelChecked bool
}

func (m *mockProvider) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, *TokenUsage, error) {
	m.calls++
	m.gotSystem = systemPrompt
	m.gotUser = userPrompt
	return m.reply, m.usage, m.err
}

func (m *mockProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	m.modelChecked = true
	return &ModelInfo{Name: "mock", Available: true}
}

func (m *mockProvider) Stats() map[string]any {
	return map[string]any{"provider": "mock"}
}

func (m *mockProvider) Close() error { return nil }

func TestParseType(t *testing.T) {
	for _, typ := range SuggestionTypes {
		got, err := ParseType(" " + string(typ) + " ")
		require.NoError(t, err)
		assert.Equal(t, typ, got)
	}

	_, err := ParseType("poem")
	require.Error(t, err)
	appErr, ok := cvstudioErrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, cvstudioErrors.ErrorTypeValidation, appErr.Type)
	assert.Equal(t, cvstudioErrors.ErrCodeUnknownSuggestionType, appErr.Code)
	assert.Contains(t, appErr.Message, "poem")
}

func TestService_Suggest(t *testing.T) {
	tests := []struct {
		name            string
		req             Request
		reply           string
		want            string
		wantSuggestions []string
	}{
		{
			name:  "summary",
			req:   Request{Text: "I write code", Type: "summary", Context: "Backend Engineer"},
			reply: "  Backend engineer shipping reliable services.  ",
			want:  "Backend engineer shipping reliable services.",
		},
		{
			name:  "quotes stripped",
			req:   Request{Text: "Ada", Type: "headline"},
			reply: `"Analyst | First Programmer"`,
			want:  "Analyst | First Programmer",
		},
		{
			name:            "skills capped at five",
			req:             Request{Text: "Go, SQL", Type: "skills", Context: "SRE"},
			reply:           "Kubernetes, Terraform, , Prometheus, Linux, Python, Rust",
			want:            "Kubernetes, Terraform, Prometheus, Linux, Python",
			wantSuggestions: []string{"Kubernetes", "Terraform", "Prometheus", "Linux", "Python"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &mockProvider{reply: tt.reply, usage: &TokenUsage{TotalTokens: 42}}
			svc := NewServiceWithProvider(provider, config.PromptConfig{}, nil)

			resp, err := svc.Suggest(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.Suggestion)
			assert.Equal(t, tt.wantSuggestions, resp.Suggestions)
			assert.Equal(t, int64(42), resp.Usage.TotalTokens)
			assert.Equal(t, DefaultSystemPrompt, provider.gotSystem)
			assert.Contains(t, provider.gotUser, tt.req.Text)
		})
	}
}

func TestService_SuggestSwallowsProviderErrors(t *testing.T) {
	provider := &mockProvider{err: errors.New("quota exceeded")}
	svc := NewServiceWithProvider(provider, config.PromptConfig{}, nil)

	resp, err := svc.Suggest(context.Background(), Request{Text: "x", Type: "bullet"})
	require.NoError(t, err)
	assert.Empty(t, resp.Suggestion)
	assert.Nil(t, resp.Suggestions)
	assert.Equal(t, 1, provider.calls)
}

func TestService_UnknownTypeSkipsProvider(t *testing.T) {
	provider := &mockProvider{reply: "unused"}
	svc := NewServiceWithProvider(provider, config.PromptConfig{}, nil)

	_, err := svc.Suggest(context.Background(), Request{Text: "x", Type: "haiku"})
	require.Error(t, err)
	assert.True(t, cvstudioErrors.IsType(err, cvstudioErrors.ErrorTypeValidation))
	assert.Zero(t, provider.calls)
}

func TestService_WithoutProvider(t *testing.T) {
	svc, err := NewService(context.Background(), config.AIConfig{
		Enabled:  true,
		Provider: "gemini",
		Timeout:  time.Second,
	}, nil)
	require.NoError(t, err)
	assert.False(t, svc.Enabled())

	resp, err := svc.Suggest(context.Background(), Request{Text: "x", Type: "summary"})
	require.NoError(t, err)
	assert.Empty(t, resp.Suggestion)

	_, err = svc.Suggest(context.Background(), Request{Text: "x", Type: "nope"})
	require.Error(t, err, "type validation still applies")

	assert.Equal(t, map[string]any{"enabled": false}, svc.Stats())
	assert.False(t, svc.GetModelInfo(context.Background()).Available)
	assert.NoError(t, svc.Close())
}

func TestNewService_UnsupportedProvider(t *testing.T) {
	_, err := NewService(context.Background(), config.AIConfig{
		Enabled:  true,
		Provider: "acme",
		APIKey:   "key",
	}, nil)
	require.Error(t, err)
	assert.True(t, cvstudioErrors.IsType(err, cvstudioErrors.ErrorTypeConfig))
}

func TestService_StatsAndModelInfo(t *testing.T) {
	provider := &mockProvider{}
	svc := NewServiceWithProvider(provider, config.PromptConfig{}, nil)

	stats := svc.Stats()
	assert.Equal(t, true, stats["enabled"])
	assert.Equal(t, "mock", stats["provider"])

	info := svc.GetModelInfo(context.Background())
	assert.True(t, info.Available)
	assert.True(t, provider.modelChecked)
}

func TestPrompts(t *testing.T) {
	t.Run("defaults fill blank inputs", func(t *testing.T) {
		p := NewPrompts(config.PromptConfig{})
		prompt := p.User(TypeSummary, "", "")
		assert.Contains(t, prompt, "Current summary: No summary provided")
		assert.Contains(t, prompt, "Target role: General professional")
		assert.NotContains(t, prompt, "{{")
	})

	t.Run("every type has a template", func(t *testing.T) {
		p := NewPrompts(config.PromptConfig{})
		for _, typ := range SuggestionTypes {
			prompt := p.User(typ, "input text", "hint")
			assert.Contains(t, prompt, "input text", string(typ))
			assert.NotContains(t, prompt, "{{", string(typ))
		}
	})

	t.Run("configured overrides win", func(t *testing.T) {
		p := NewPrompts(config.PromptConfig{
			System: "Be brief.",
			Types:  map[string]string{"bullet": "Improve {{text}} for {{context}}"},
		})
		assert.Equal(t, "Be brief.", p.System())
		assert.Equal(t, "Improve shipped X for SRE", p.User(TypeBullet, "shipped X", "SRE"))
		assert.True(t, strings.HasPrefix(p.User(TypeHonor, "award", ""), "You are formatting"))
	})
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, isRetryableError(nil))
	assert.False(t, isRetryableError(errors.New("bad request")))
	assert.True(t, retryableStatus(503))
	assert.True(t, retryableStatus(429))
	assert.False(t, retryableStatus(400))
}
