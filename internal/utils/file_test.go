package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateInputFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "cv.json")
	require.NoError(t, os.WriteFile(file, []byte("{}"), 0600))

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{"existing file", file, ""},
		{"empty name", "", "filename cannot be empty"},
		{"missing file", filepath.Join(dir, "missing.json"), "file does not exist"},
		{"directory", dir, "path is a directory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateInputFile(tt.path)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateOutputFile_CreatesDirectory(t *testing.T) {
	target := filepath.Join(t.TempDir(), "out", "nested", "cv.pdf")

	require.NoError(t, ValidateOutputFile(target))
	info, err := os.Stat(filepath.Dir(target))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	assert.NoError(t, ValidateOutputFile(""))
}

func TestIsDocumentFile(t *testing.T) {
	tests := []struct {
		filename string
		want     bool
	}{
		{"cv.json", true},
		{"cv.YAML", true},
		{"cv.yml", true},
		{"cv.txt", false},
		{"cv", false},
		{"cv.json.bak", false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDocumentFile(tt.filename))
		})
	}
}

func TestReplaceExtension(t *testing.T) {
	assert.Equal(t, "out/cv.png", ReplaceExtension("out/cv.yaml", ".png"))
	assert.Equal(t, "cv.pdf", ReplaceExtension("cv", ".pdf"))
}

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatFileSize(tt.size))
		})
	}
}
