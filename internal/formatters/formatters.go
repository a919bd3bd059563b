package formatters

import (
	"encoding/json"
	"fmt"
	"strings"

	"cvstudio/internal/ai"
	"cvstudio/internal/cv"
	"cvstudio/internal/derive"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// ThemeList is the catalogue printed by the themes command
type ThemeList struct {
	Themes  []cv.Theme `json:"themes"`
	Default cv.Theme   `json:"default"`
}

// YAMLOutput is the typesetter input generated for a document
type YAMLOutput struct {
	YAML string `json:"yaml"`
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "Insights", &InsightsTextFormatter{})
	registry.RegisterFormatter("markdown", "Insights", &InsightsMarkdownFormatter{})
	registry.RegisterFormatter("text", "ThemeList", &ThemesTextFormatter{})
	registry.RegisterFormatter("markdown", "ThemeList", &ThemesMarkdownFormatter{})
	registry.RegisterFormatter("text", "Suggestion", &SuggestionTextFormatter{})
	registry.RegisterFormatter("markdown", "Suggestion", &SuggestionMarkdownFormatter{})
	registry.RegisterFormatter("text", "YAMLOutput", &YAMLTextFormatter{})
	registry.RegisterFormatter("markdown", "YAMLOutput", &YAMLMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case derive.Insights:
		return "Insights"
	case ThemeList:
		return "ThemeList"
	case ai.Response:
		return "Suggestion"
	case YAMLOutput:
		return "YAMLOutput"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// InsightsTextFormatter prints section progress, date checks and the ATS score
type InsightsTextFormatter struct{}

func (f *InsightsTextFormatter) Format(data any) (string, error) {
	result, ok := data.(derive.Insights)
	if !ok {
		return "", fmt.Errorf("expected Insights, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== SECTIONS ===\n")
	for _, s := range result.Sections {
		output.WriteString(fmt.Sprintf("%-14s %3d%%  %d words\n", s.Section, s.Progress, s.WordCount))
	}
	output.WriteString(fmt.Sprintf("\nTotal words: %d\n\n", result.TotalWords))

	output.WriteString("=== DATES ===\n")
	invalid := result.InvalidDates()
	if len(invalid) == 0 {
		output.WriteString("All date ranges are valid\n")
	}
	for _, d := range invalid {
		output.WriteString(fmt.Sprintf("- %s #%d (%s - %s): %s\n", d.Section, d.Index+1, d.Start, d.End, d.Message))
	}

	output.WriteString("\n=== ATS SCORE ===\n")
	output.WriteString(fmt.Sprintf("Score: %d/100\n", result.Score.Score))
	if len(result.Score.Tips) > 0 {
		output.WriteString("Tips:\n")
		for _, tip := range result.Score.Tips {
			output.WriteString(fmt.Sprintf("- %s\n", tip))
		}
	}

	return output.String(), nil
}

func (f *InsightsTextFormatter) SupportedType() string {
	return "Insights"
}

// InsightsMarkdownFormatter renders insights as a markdown report
type InsightsMarkdownFormatter struct{}

func (f *InsightsMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(derive.Insights)
	if !ok {
		return "", fmt.Errorf("expected Insights, got %T", data)
	}

	var output strings.Builder

	output.WriteString("# CV Insights\n\n")
	output.WriteString(fmt.Sprintf("**ATS score:** %d/100  \n", result.Score.Score))
	output.WriteString(fmt.Sprintf("**Total words:** %d\n\n", result.TotalWords))

	output.WriteString("## Sections\n\n")
	output.WriteString("| Section | Progress | Words |\n")
	output.WriteString("|---------|----------|-------|\n")
	for _, s := range result.Sections {
		output.WriteString(fmt.Sprintf("| %s | %d%% | %d |\n", s.Section, s.Progress, s.WordCount))
	}

	if invalid := result.InvalidDates(); len(invalid) > 0 {
		output.WriteString("\n## Date Problems\n\n")
		for _, d := range invalid {
			output.WriteString(fmt.Sprintf("- **%s #%d** (%s - %s): %s\n", d.Section, d.Index+1, d.Start, d.End, d.Message))
		}
	}

	if len(result.Score.Tips) > 0 {
		output.WriteString("\n## Tips\n\n")
		for _, tip := range result.Score.Tips {
			output.WriteString(fmt.Sprintf("- %s\n", tip))
		}
	}

	return output.String(), nil
}

func (f *InsightsMarkdownFormatter) SupportedType() string {
	return "Insights"
}

// ThemesTextFormatter lists the themes with their section order
type ThemesTextFormatter struct{}

func (f *ThemesTextFormatter) Format(data any) (string, error) {
	list, ok := data.(ThemeList)
	if !ok {
		return "", fmt.Errorf("expected ThemeList, got %T", data)
	}

	var output strings.Builder
	for _, theme := range list.Themes {
		marker := " "
		if theme == list.Default {
			marker = "*"
		}
		output.WriteString(fmt.Sprintf("%s %-20s %s\n", marker, theme, joinSections(theme.SectionOrder(), " > ")))
	}
	return output.String(), nil
}

func (f *ThemesTextFormatter) SupportedType() string {
	return "ThemeList"
}

// ThemesMarkdownFormatter lists the themes as a markdown table
type ThemesMarkdownFormatter struct{}

func (f *ThemesMarkdownFormatter) Format(data any) (string, error) {
	list, ok := data.(ThemeList)
	if !ok {
		return "", fmt.Errorf("expected ThemeList, got %T", data)
	}

	var output strings.Builder
	output.WriteString("| Theme | Section order |\n")
	output.WriteString("|-------|---------------|\n")
	for _, theme := range list.Themes {
		name := string(theme)
		if theme == list.Default {
			name = fmt.Sprintf("**%s** (default)", theme)
		}
		output.WriteString(fmt.Sprintf("| %s | %s |\n", name, joinSections(theme.SectionOrder(), ", ")))
	}
	return output.String(), nil
}

func (f *ThemesMarkdownFormatter) SupportedType() string {
	return "ThemeList"
}

func joinSections(sections []cv.Section, sep string) string {
	names := make([]string, len(sections))
	for i, s := range sections {
		names[i] = s.String()
	}
	return strings.Join(names, sep)
}

// SuggestionTextFormatter prints the suggestion, one skill per line for skills
type SuggestionTextFormatter struct{}

func (f *SuggestionTextFormatter) Format(data any) (string, error) {
	resp, ok := data.(ai.Response)
	if !ok {
		return "", fmt.Errorf("expected Response, got %T", data)
	}
	if len(resp.Suggestions) > 0 {
		return strings.Join(resp.Suggestions, "\n") + "\n", nil
	}
	return resp.Suggestion + "\n", nil
}

func (f *SuggestionTextFormatter) SupportedType() string {
	return "Suggestion"
}

// SuggestionMarkdownFormatter renders a suggestion as markdown
type SuggestionMarkdownFormatter struct{}

func (f *SuggestionMarkdownFormatter) Format(data any) (string, error) {
	resp, ok := data.(ai.Response)
	if !ok {
		return "", fmt.Errorf("expected Response, got %T", data)
	}

	var output strings.Builder
	output.WriteString("## Suggestion\n\n")
	if len(resp.Suggestions) > 0 {
		for _, s := range resp.Suggestions {
			output.WriteString(fmt.Sprintf("- %s\n", s))
		}
		return output.String(), nil
	}
	output.WriteString(resp.Suggestion)
	output.WriteString("\n")
	return output.String(), nil
}

func (f *SuggestionMarkdownFormatter) SupportedType() string {
	return "Suggestion"
}

// YAMLTextFormatter prints the raw typesetter input
type YAMLTextFormatter struct{}

func (f *YAMLTextFormatter) Format(data any) (string, error) {
	out, ok := data.(YAMLOutput)
	if !ok {
		return "", fmt.Errorf("expected YAMLOutput, got %T", data)
	}
	return out.YAML, nil
}

func (f *YAMLTextFormatter) SupportedType() string {
	return "YAMLOutput"
}

// YAMLMarkdownFormatter wraps the typesetter input in a fenced block
type YAMLMarkdownFormatter struct{}

func (f *YAMLMarkdownFormatter) Format(data any) (string, error) {
	out, ok := data.(YAMLOutput)
	if !ok {
		return "", fmt.Errorf("expected YAMLOutput, got %T", data)
	}
	return "```yaml\n" + strings.TrimRight(out.YAML, "\n") + "\n```\n", nil
}

func (f *YAMLMarkdownFormatter) SupportedType() string {
	return "YAMLOutput"
}

// GlobalRegistry is the default formatter registry instance
var GlobalRegistry = NewFormatterRegistry()
