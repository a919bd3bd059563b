// Package ai produces writing suggestions for CV fields through an LLM provider.
package ai

import (
	"context"
	"fmt"
	"strings"

	"cvstudio/internal/config"
	"cvstudio/internal/errors"
)

// Service turns suggestion requests into prompts and cleans up the answers.
// A Service without a provider is valid and always suggests nothing.
type Service struct {
	provider Provider
	prompts  Prompts
	logger   *errors.Logger
}

// NewService creates the service for the configured provider. When AI is
// disabled or no API key is available the service runs without a provider.
func NewService(ctx context.Context, cfg config.AIConfig, logger *errors.Logger) (*Service, error) {
	if logger == nil {
		logger = errors.NewNopLogger()
	}

	logger.Debug("Initializing AI service",
		"provider", cfg.Provider,
		"model", cfg.Model,
		"enabled", cfg.Enabled,
		"temperature", cfg.Temperature,
		"max_tokens", cfg.MaxTokens,
		"timeout", cfg.Timeout,
		"max_retries", cfg.MaxRetries)

	if !cfg.Enabled || cfg.APIKey == "" {
		logger.Warn("AI suggestions disabled, no provider configured",
			"enabled", cfg.Enabled,
			"api_key_set", cfg.APIKey != "")
		return NewServiceWithProvider(nil, cfg.Prompts, logger), nil
	}

	var provider Provider
	var err error
	switch cfg.Provider {
	case "gemini":
		provider, err = NewGeminiProvider(ctx, cfg, logger)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported AI provider: %s", cfg.Provider), nil)
	}
	if err != nil {
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed,
			"Failed to create AI provider", err)
	}

	return NewServiceWithProvider(provider, cfg.Prompts, logger), nil
}

// NewServiceWithProvider wires an explicit provider, which may be nil.
func NewServiceWithProvider(provider Provider, prompts config.PromptConfig, logger *errors.Logger) *Service {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	return &Service{
		provider: provider,
		prompts:  NewPrompts(prompts),
		logger:   logger,
	}
}

// Enabled reports whether a provider is configured.
func (s *Service) Enabled() bool {
	return s.provider != nil
}

// Suggest returns a suggestion for req. Only an unknown type is an error;
// provider failures are logged and yield an empty suggestion.
func (s *Service) Suggest(ctx context.Context, req Request) (Response, error) {
	typ, err := ParseType(req.Type)
	if err != nil {
		return Response{}, err
	}
	if s.provider == nil {
		return Response{}, nil
	}

	text, usage, err := s.provider.Generate(ctx, s.prompts.System(), s.prompts.User(typ, req.Text, req.Context))
	if err != nil {
		s.logger.LogError(err, "Suggestion failed", "type", string(typ))
		return Response{}, nil
	}

	suggestion := cleanSuggestion(text)
	if typ != TypeSkills {
		return Response{Suggestion: suggestion, Usage: usage}, nil
	}

	skills := splitSkills(suggestion)
	return Response{
		Suggestion:  strings.Join(skills, ", "),
		Suggestions: skills,
		Usage:       usage,
	}, nil
}

// cleanSuggestion trims whitespace and one pair of surrounding quotes.
func cleanSuggestion(text string) string {
	text = strings.TrimSpace(text)
	if len(text) >= 2 && strings.HasPrefix(text, `"`) && strings.HasSuffix(text, `"`) {
		text = strings.TrimSpace(text[1 : len(text)-1])
	}
	return text
}

func splitSkills(text string) []string {
	skills := make([]string, 0, maxSkillSuggestions)
	for _, part := range strings.Split(text, ",") {
		if part = strings.TrimSpace(part); part == "" {
			continue
		}
		skills = append(skills, part)
		if len(skills) == maxSkillSuggestions {
			break
		}
	}
	return skills
}

// GetModelInfo returns information about the AI model for health checks
func (s *Service) GetModelInfo(ctx context.Context) *ModelInfo {
	if s.provider == nil {
		return &ModelInfo{Available: false, Error: "no AI provider configured"}
	}
	return s.provider.GetModelInfo(ctx)
}

// Stats returns provider statistics for the stats endpoint.
func (s *Service) Stats() map[string]any {
	if s.provider == nil {
		return map[string]any{"enabled": false}
	}
	stats := s.provider.Stats()
	stats["enabled"] = true
	return stats
}

// Close releases the provider.
func (s *Service) Close() error {
	if s.provider == nil {
		return nil
	}
	return s.provider.Close()
}
