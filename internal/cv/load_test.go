package cv

import (
	"os"
	"path/filepath"
	"testing"

	"cvstudio/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
name: "**Ada** Lovelace"
headline: Analyst
phone: 5551234
email: ada@example.com
experience:
  - company: Analytical Engines
    position: Programmer
    start_date: 1842-09
    end_date: present
    highlights:
      - Published the first algorithm
publications:
  - title: Notes
    authors:
      - Ada Lovelace
      - Charles Babbage
    date: 1843
`

func TestParse_YAML(t *testing.T) {
	doc, err := Parse([]byte(sampleYAML), FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, "**Ada** Lovelace", doc.Name)
	assert.Equal(t, "5551234", doc.Phone)
	require.Len(t, doc.Experience, 1)
	assert.Equal(t, "1842-09", doc.Experience[0].StartDate)
	assert.NotEmpty(t, doc.Experience[0].ID)
	require.Len(t, doc.Publications, 1)
	assert.Equal(t, "Ada Lovelace, Charles Babbage", doc.Publications[0].Authors)
	assert.Equal(t, "1843", doc.Publications[0].Date)
	assert.NotNil(t, doc.Skills)
}

func TestParse_JSONNumericPhone(t *testing.T) {
	doc, err := Parse([]byte(`{"name":"Ada","phone":5551234567}`), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "5551234567", doc.Phone)
}

func TestParse_SchemaViolations(t *testing.T) {
	tests := []struct {
		name  string
		input string
		field string
	}{
		{
			name:  "missing required property",
			input: `{"experience":[{"company":"Acme"}]}`,
			field: "position",
		},
		{
			name:  "wrong type in entry",
			input: `{"skills":[{"label":true}]}`,
			field: "label",
		},
		{
			name:  "section is not a list",
			input: `{"honors":"many"}`,
			field: "honors",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input), FormatJSON)
			require.Error(t, err)

			appErr, ok := errors.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, errors.ErrCodeSchemaViolation, appErr.Code)
			assert.Equal(t, tt.field, appErr.ContextString("field"))
		})
	}
}

func TestParse_InvalidSyntax(t *testing.T) {
	_, err := Parse([]byte(`{"name":`), FormatJSON)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	_, err = Parse([]byte(`name: x`), Format("toml"))
	assert.Error(t, err)
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path     string
		expected Format
		wantErr  bool
	}{
		{path: "cv.json", expected: FormatJSON},
		{path: "cv.YAML", expected: FormatYAML},
		{path: "dir/cv.yml", expected: FormatYAML},
		{path: "cv.txt", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			format, err := FormatFromPath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, format)
		})
	}
}

func TestSaveAndLoadFile(t *testing.T) {
	for _, ext := range []string{".json", ".yaml"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cv"+ext)
			doc := New()
			doc.Name = "Grace Hopper"
			doc.Skills = append(doc.Skills, SkillEntry{Label: "COBOL", Details: "Designer"})

			require.NoError(t, SaveFile(path, doc))
			loaded, err := LoadFile(path)
			require.NoError(t, err)

			assert.Equal(t, "Grace Hopper", loaded.Name)
			require.Len(t, loaded.Skills, 1)
			assert.Equal(t, "COBOL", loaded.Skills[0].Label)
			assert.NotEmpty(t, loaded.Skills[0].ID)
		})
	}
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeFileNotFound, appErr.Code)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"talks":[{}]}`), 0600))
	_, err = LoadFile(bad)
	require.Error(t, err)
	appErr, ok = errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "reversed_number", appErr.ContextString("field"))
	assert.Equal(t, bad, appErr.Context["file"])
}
