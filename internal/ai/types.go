package ai

import (
	"context"
	"fmt"
	"strings"

	"cvstudio/internal/errors"
)

// SuggestionType selects which prompt a suggestion request uses.
type SuggestionType string

const (
	TypeSummary          SuggestionType = "summary"
	TypeHeadline         SuggestionType = "headline"
	TypeBullet           SuggestionType = "bullet"
	TypeEducation        SuggestionType = "education"
	TypeProjectSummary   SuggestionType = "project_summary"
	TypeProjectHighlight SuggestionType = "project_highlight"
	TypeSkills           SuggestionType = "skills"
	TypeGenerate         SuggestionType = "generate"
	TypeHonor            SuggestionType = "honor"
)

// maxSkillSuggestions caps the list returned for TypeSkills.
const maxSkillSuggestions = 5

// SuggestionTypes lists every supported type.
var SuggestionTypes = []SuggestionType{
	TypeSummary,
	TypeHeadline,
	TypeBullet,
	TypeEducation,
	TypeProjectSummary,
	TypeProjectHighlight,
	TypeSkills,
	TypeGenerate,
	TypeHonor,
}

// ParseType validates a suggestion type name.
func ParseType(value string) (SuggestionType, error) {
	typ := SuggestionType(strings.TrimSpace(value))
	for _, known := range SuggestionTypes {
		if typ == known {
			return typ, nil
		}
	}
	return "", errors.NewValidationError(errors.ErrCodeUnknownSuggestionType,
		fmt.Sprintf("Unknown suggestion type: %s", value), nil).
		WithContext("field", "type")
}

// Request is a suggestion query. Context carries the type-specific hint:
// a target role, a degree, a project name and so on.
type Request struct {
	Text    string `json:"text"`
	Type    string `json:"type"`
	Context string `json:"context"`
}

// Response carries the suggestion. Suggestions is set for the skills type only.
type Response struct {
	Suggestion  string      `json:"suggestion"`
	Suggestions []string    `json:"suggestions,omitempty"`
	Usage       *TokenUsage `json:"-"`
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// ModelInfo represents information about the AI model
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}

// Provider generates text from a system instruction and a user prompt.
type Provider interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, *TokenUsage, error)
	GetModelInfo(ctx context.Context) *ModelInfo
	Stats() map[string]any
	Close() error
}
