package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultConfig(t *testing.T) *Config {
	t.Helper()
	v := viper.New()
	setDefaults(v)
	var config Config
	require.NoError(t, v.Unmarshal(&config))
	return &config
}

func TestDefaults_AreValid(t *testing.T) {
	config := defaultConfig(t)

	require.NoError(t, config.Validate())
	assert.Equal(t, "http://localhost:8000", config.Renderer.BaseURL)
	assert.Equal(t, 1500*time.Millisecond, config.Sync.DebounceDelay)
	assert.True(t, config.Sync.FenceResponses)
	assert.Equal(t, "classic", config.Sync.DefaultTheme)
	assert.Equal(t, []string{"http://localhost:3000", "http://127.0.0.1:3000"}, config.Server.CORS.AllowedOrigins)
	assert.Equal(t, int32(300), config.AI.MaxTokens)
	assert.InDelta(t, 0.6, float64(config.AI.Temperature), 0.0001)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.App.LogLevel = "verbose" },
			wantErr: "app:",
		},
		{
			name:    "default format not supported",
			mutate:  func(c *Config) { c.App.DefaultFormat = "xml" },
			wantErr: "invalid default format",
		},
		{
			name:    "renderer url without scheme",
			mutate:  func(c *Config) { c.Renderer.BaseURL = "localhost:8000" },
			wantErr: "invalid renderer base URL",
		},
		{
			name:    "zero debounce",
			mutate:  func(c *Config) { c.Sync.DebounceDelay = 0 },
			wantErr: "debounce delay",
		},
		{
			name:    "unknown theme",
			mutate:  func(c *Config) { c.Sync.DefaultTheme = "fancy" },
			wantErr: "sync default theme",
		},
		{
			name:    "temperature out of range",
			mutate:  func(c *Config) { c.AI.Temperature = 3 },
			wantErr: "AI temperature",
		},
		{
			name:    "missing port",
			mutate:  func(c *Config) { c.Server.Port = "" },
			wantErr: "server port is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := defaultConfig(t)
			tt.mutate(config)
			err := config.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
app:
  logLevel: debug
renderer:
  baseURL: http://render.internal:9000
  timeout: 10s
sync:
  debounceDelay: 250ms
  fenceResponses: false
  defaultTheme: sb2nov
server:
  port: "9999"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	config, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", config.App.LogLevel)
	assert.Equal(t, "http://render.internal:9000", config.Renderer.BaseURL)
	assert.Equal(t, 10*time.Second, config.Renderer.Timeout)
	assert.Equal(t, 250*time.Millisecond, config.Sync.DebounceDelay)
	assert.False(t, config.Sync.FenceResponses)
	assert.Equal(t, "sb2nov", config.Sync.DefaultTheme)
	assert.Equal(t, "9999", config.Server.Port)
	assert.NotEmpty(t, config.Observability.ServiceInstance)
}

func TestApplyFallbacks(t *testing.T) {
	t.Setenv("CVSTUDIO_SERVER_APIKEYS", " one , two ")
	t.Setenv("GEMINI_API_KEY", "gemini-env")
	t.Setenv("CORS_ORIGINS", "https://cv.example.com")

	config := &Config{}
	config.applyFallbacks()

	assert.Equal(t, []string{"one", "two"}, config.Server.APIKeys)
	assert.Equal(t, "gemini-env", config.AI.APIKey)
	assert.Equal(t, []string{"https://cv.example.com"}, config.Server.CORS.AllowedOrigins)
}

func TestApplyFallbacks_ConfiguredValuesWin(t *testing.T) {
	t.Setenv("CVSTUDIO_SERVER_APIKEYS", "env-key")
	t.Setenv("GEMINI_API_KEY", "gemini-env")

	config := &Config{
		Server: ServerConfig{APIKeys: []string{"file-key"}},
		AI:     AIConfig{APIKey: "file-gemini"},
	}
	config.applyFallbacks()

	assert.Equal(t, []string{"file-key"}, config.Server.APIKeys)
	assert.Equal(t, "file-gemini", config.AI.APIKey)
}

func TestLoadPromptsFromFiles(t *testing.T) {
	dir := t.TempDir()
	systemFile := filepath.Join(dir, "system.md")
	headlineFile := filepath.Join(dir, "headline.md")
	require.NoError(t, os.WriteFile(systemFile, []byte("  You write CVs.  \n"), 0600))
	require.NoError(t, os.WriteFile(headlineFile, []byte("Write a headline for: %s"), 0600))

	config := &Config{AI: AIConfig{Prompts: PromptConfig{
		SystemFile: systemFile,
		TypeFiles:  map[string]string{"headline": headlineFile},
	}}}

	require.NoError(t, config.validatePromptFiles())
	require.NoError(t, config.loadPromptsFromFiles())
	assert.Equal(t, "You write CVs.", config.AI.Prompts.System)
	assert.Equal(t, "Write a headline for: %s", config.AI.Prompts.Types["headline"])
}

func TestValidatePromptFiles_Missing(t *testing.T) {
	config := &Config{AI: AIConfig{Prompts: PromptConfig{
		TypeFiles: map[string]string{"summary": "/nonexistent/summary.md"},
	}}}

	err := config.validatePromptFiles()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "summary prompt file not found")
}

func TestLoadPromptFromFile_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.md")
	require.NoError(t, os.WriteFile(path, []byte("   \n"), 0600))

	_, err := loadPromptFromFile(path, "system")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is empty")
}
