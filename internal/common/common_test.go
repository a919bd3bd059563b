package common

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"cvstudio/internal/ai"
	"cvstudio/internal/cv"
	"cvstudio/internal/derive"
	"cvstudio/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
name: Ada Lovelace
email: ada@example.com
experience:
  - company: Analytical Engines
    position: Programmer
    start_date: 1842-09
    end_date: present
`

func writeSample(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadDocument(t *testing.T) {
	fp := NewFileProcessor(nil)

	doc, err := fp.LoadDocument(writeSample(t, "cv.yaml", sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", doc.Name)
	require.Len(t, doc.Experience, 1)
	assert.NotEmpty(t, doc.Experience[0].ID)
}

func TestLoadDocument_Errors(t *testing.T) {
	fp := NewFileProcessor(nil)

	tests := []struct {
		name    string
		path    func(t *testing.T) string
		errType errors.ErrorType
		code    string
	}{
		{
			name:    "missing file",
			path:    func(t *testing.T) string { return filepath.Join(t.TempDir(), "cv.json") },
			errType: errors.ErrorTypeValidation,
			code:    "INVALID_INPUT_FILE",
		},
		{
			name:    "unsupported extension",
			path:    func(t *testing.T) string { return writeSample(t, "cv.txt", sampleYAML) },
			errType: errors.ErrorTypeValidation,
			code:    errors.ErrCodeInvalidFormat,
		},
		{
			name:    "schema violation",
			path:    func(t *testing.T) string { return writeSample(t, "cv.json", `{"name": 42}`) },
			errType: errors.ErrorTypeValidation,
			code:    errors.ErrCodeSchemaViolation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fp.LoadDocument(tt.path(t))
			require.Error(t, err)
			appErr, ok := errors.AsAppError(err)
			require.True(t, ok, "expected AppError, got %T", err)
			assert.Equal(t, tt.errType, appErr.Type)
			assert.Equal(t, tt.code, appErr.Code)
		})
	}
}

func TestSaveDocument_RoundTrip(t *testing.T) {
	fp := NewFileProcessor(nil)
	doc := cv.New()
	doc.Name = "Ada Lovelace"
	doc.Skills = append(doc.Skills, cv.SkillEntry{ID: "s1", Label: "Maths", Details: "Analysis"})

	for _, name := range []string{"cv.json", "cv.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			require.NoError(t, fp.SaveDocument(path, doc))

			loaded, err := fp.LoadDocument(path)
			require.NoError(t, err)
			assert.Equal(t, "Ada Lovelace", loaded.Name)
			require.Len(t, loaded.Skills, 1)
			assert.Equal(t, "Maths", loaded.Skills[0].Label)
		})
	}

	err := fp.SaveDocument(filepath.Join(t.TempDir(), "cv.txt"), doc)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestHandleOutput(t *testing.T) {
	var stdout bytes.Buffer
	handler := NewOutputHandler(nil).WithStdout(&stdout)

	require.NoError(t, handler.HandleOutput(ai.Response{Suggestion: "Shipped it."}, CommandConfig{OutputFormat: "text"}))
	assert.Equal(t, "Shipped it.\n", stdout.String())

	target := filepath.Join(t.TempDir(), "out", "suggestion.md")
	require.NoError(t, handler.HandleOutput(ai.Response{Suggestion: "Shipped it."}, CommandConfig{OutputFile: target, OutputFormat: "markdown"}))
	written, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "## Suggestion\n\nShipped it.\n", string(written))

	err = handler.HandleOutput(ai.Response{}, CommandConfig{OutputFormat: "xml"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestWriteBinary(t *testing.T) {
	target := filepath.Join(t.TempDir(), "renders", "cv.png")
	require.NoError(t, NewOutputHandler(nil).WriteBinary([]byte{0x89, 'P', 'N', 'G'}, target))

	written, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, written)
}

func TestRunDocumentCommand(t *testing.T) {
	path := writeSample(t, "cv.yaml", sampleYAML)
	target := filepath.Join(t.TempDir(), "insights.json")
	var logged string

	err := RunDocumentCommand(context.Background(), nil, CommandConfig{OutputFile: target, OutputFormat: "json"}, path,
		func(ctx context.Context, doc cv.Document) (derive.Insights, error) {
			return derive.Analyze(doc, cv.DefaultTheme), nil
		},
		func(doc cv.Document, cfg CommandConfig) { logged = doc.Name })
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", logged)

	written, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(written), `"totalWords"`)
}

func TestRunAICommand(t *testing.T) {
	target := filepath.Join(t.TempDir(), "suggestion.txt")
	req := ai.Request{Text: "did stuff", Type: "experience"}

	err := RunAICommand(context.Background(), nil, CommandConfig{OutputFile: target, OutputFormat: "text"}, req,
		func(ctx context.Context, in ai.Request) (ai.Response, *ai.TokenUsage, error) {
			return ai.Response{Suggestion: "Delivered " + in.Text}, &ai.TokenUsage{TotalTokens: 3}, nil
		}, nil)
	require.NoError(t, err)

	written, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "Delivered did stuff\n", string(written))

	failure := errors.NewAIError(errors.ErrCodeAIServiceFailed, "boom", nil)
	err = RunAICommand(context.Background(), nil, CommandConfig{OutputFormat: "text"}, req,
		func(ctx context.Context, in ai.Request) (ai.Response, *ai.TokenUsage, error) {
			return ai.Response{}, nil, failure
		}, nil)
	assert.ErrorIs(t, err, failure)
}
