package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cvstudio/internal/breaker"
	"cvstudio/internal/config"
	cvstudioErrors "cvstudio/internal/errors"
	"cvstudio/internal/retry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

const modelCheckTimeout = 10 * time.Second

// GeminiProvider implements Provider for Google Gemini
type GeminiProvider struct {
	client         *genai.Client
	config         config.AIConfig
	retryPolicy    retry.Policy
	circuitBreaker *breaker.Breaker[*genai.GenerateContentResponse]
	modelBreaker   *breaker.Breaker[*genai.Model]
	logger         *cvstudioErrors.Logger
}

// Ensure GeminiProvider implements Provider
var _ Provider = (*GeminiProvider)(nil)

// NewGeminiProvider creates a Gemini client from the AI configuration
func NewGeminiProvider(ctx context.Context, cfg config.AIConfig, logger *cvstudioErrors.Logger) (*GeminiProvider, error) {
	if logger == nil {
		logger = cvstudioErrors.NewNopLogger()
	}
	if cfg.APIKey == "" {
		return nil, cvstudioErrors.NewConfigError(cvstudioErrors.ErrCodeMissingAPIKey,
			"Gemini provider requires an API key", nil)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, cvstudioErrors.NewAIError(cvstudioErrors.ErrCodeAIServiceFailed,
			"Failed to create Gemini client", err)
	}

	// Model lookups are less critical than generation, so they trip later.
	modelBreakerCfg := cfg.CircuitBreaker
	modelBreakerCfg.MinRequests = max(modelBreakerCfg.MinRequests, 5)
	modelBreakerCfg.FailureThreshold = max(modelBreakerCfg.FailureThreshold, 0.8)

	return &GeminiProvider{
		client: client,
		config: cfg,
		retryPolicy: retry.Policy{
			MaxRetries: cfg.MaxRetries,
			Retryable:  isRetryableError,
			Logger:     logger,
		},
		circuitBreaker: breaker.New[*genai.GenerateContentResponse]("ai-suggest", cfg.CircuitBreaker, logger),
		modelBreaker:   breaker.New[*genai.Model]("ai-model", modelBreakerCfg, logger),
		logger:         logger,
	}, nil
}

// GetModelInfo checks the readiness and availability of the configured model
func (g *GeminiProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	modelInfo := &ModelInfo{
		Name:      g.config.Model,
		Available: false,
	}

	checkCtx, cancel := context.WithTimeout(ctx, modelCheckTimeout)
	defer cancel()

	model, err := g.modelBreaker.Execute(func() (*genai.Model, error) {
		return g.client.Models.Get(checkCtx, g.config.Model, &genai.GetModelConfig{})
	})
	if err != nil {
		modelInfo.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed",
			"model", g.config.Model,
			"provider", g.config.Provider,
			"error", err.Error())
		return modelInfo
	}

	modelInfo.Available = true
	modelInfo.DisplayName = model.DisplayName
	modelInfo.Version = model.Version

	g.logger.Debug("Model availability check successful",
		"model", g.config.Model,
		"display_name", modelInfo.DisplayName,
		"version", modelInfo.Version)

	return modelInfo
}

// isRetryableError retries transport failures, rate limits and server errors
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if retry.IsNetworkError(err) {
		return true
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.Code)
	}
	return false
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Generate sends one prompt and returns the model's text
func (g *GeminiProvider) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, *TokenUsage, error) {
	tracer := otel.Tracer("cvstudio.ai.gemini")
	ctx, span := tracer.Start(ctx, "gemini.generate")
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", g.config.Model),
		attribute.Float64("ai.temperature", float64(g.config.Temperature)),
		attribute.Int("input.prompt_length", len(userPrompt)),
	)

	if g.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.config.Timeout)
		defer cancel()
	}
	genaiConfig := g.buildConfig(systemPrompt)

	result, err := g.circuitBreaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return retry.Do(ctx, g.retryPolicy, "ai_suggest", func(ctx context.Context) (*genai.GenerateContentResponse, error) {
			return g.client.Models.GenerateContent(ctx, g.config.Model, genai.Text(userPrompt), genaiConfig)
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("success", false))
		if cvstudioErrors.IsType(err, cvstudioErrors.ErrorTypeNetwork) {
			return "", nil, err
		}
		return "", nil, cvstudioErrors.NewAIError(cvstudioErrors.ErrCodeAIServiceFailed,
			"Failed to generate suggestion", err)
	}

	tokenUsage := extractTokenUsage(result)
	if tokenUsage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", tokenUsage.InputTokens),
			attribute.Int64("ai.tokens.output", tokenUsage.OutputTokens),
			attribute.Int64("ai.tokens.total", tokenUsage.TotalTokens),
		)
	}

	text := result.Text()
	span.SetAttributes(
		attribute.Bool("success", true),
		attribute.Int("output.length", len(text)),
	)
	return text, tokenUsage, nil
}

func (g *GeminiProvider) buildConfig(systemPrompt string) *genai.GenerateContentConfig {
	genaiConfig := &genai.GenerateContentConfig{}
	if systemPrompt != "" {
		genaiConfig.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}
	if g.config.Temperature > 0 {
		temperature := g.config.Temperature
		genaiConfig.Temperature = &temperature
	}
	if g.config.MaxTokens > 0 {
		genaiConfig.MaxOutputTokens = g.config.MaxTokens
	}
	return genaiConfig
}

// Stats returns circuit breaker statistics
func (g *GeminiProvider) Stats() map[string]any {
	return map[string]any{
		"provider":         "gemini",
		"model":            g.config.Model,
		"ai_operations":    g.circuitBreaker.Stats(),
		"model_operations": g.modelBreaker.Stats(),
		"overall_healthy":  g.circuitBreaker.IsHealthy() && g.modelBreaker.IsHealthy(),
	}
}

// Close implements Provider. The genai client holds no connections that
// need releasing in single-shot usage.
func (g *GeminiProvider) Close() error {
	return nil
}

// extractTokenUsage extracts token usage information from Gemini API response
func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}
