package server

import (
	"context"
	"time"

	"cvstudio/internal/ai"
	"cvstudio/internal/config"
	cvstudioErrors "cvstudio/internal/errors"
	"cvstudio/internal/render"

	"golang.org/x/sync/singleflight"
)

// RenderRequest is the body of the render, preview, download and yaml endpoints
type RenderRequest struct {
	CVData         map[string]any     `json:"cv_data"`
	Theme          string             `json:"theme"`
	Format         string             `json:"format"`
	DesignSettings *DesignSettingsDTO `json:"design_settings"`
	SectionOrder   []string           `json:"section_order"`
}

// DesignSettingsDTO carries optional visual overrides
type DesignSettingsDTO struct {
	PrimaryColor string `json:"primaryColor"`
	FontFamily   string `json:"fontFamily"`
}

// InsightsRequest is the body of the insights endpoint
type InsightsRequest struct {
	CVData map[string]any `json:"cv_data"`
	Theme  string         `json:"theme"`
}

// SuggestRequest is the body of the AI suggestion endpoint
type SuggestRequest struct {
	Text    string `json:"text"`
	Type    string `json:"type"`
	Context string `json:"context"`
}

// YAMLResponse carries the generated typesetter input
type YAMLResponse struct {
	YAML string `json:"yaml"`
}

// ThemeInfo describes one theme for the themes endpoint
type ThemeInfo struct {
	Name         string   `json:"name"`
	SectionOrder []string `json:"section_order"`
}

// ThemesResponse lists the available themes
type ThemesResponse struct {
	Themes  []string    `json:"themes"`
	Default string      `json:"default"`
	Details []ThemeInfo `json:"details"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// FieldErrorDetail is one entry of a validation error body
type FieldErrorDetail struct {
	Loc []string `json:"loc"`
	Msg string   `json:"msg"`
}

// ValidationErrorResponse is the 422 body, shaped the way the typesetter
// reports invalid fields so one parser handles both.
type ValidationErrorResponse struct {
	Detail []FieldErrorDetail `json:"detail"`
}

// Renderer renders documents through the typesetting service
type Renderer interface {
	Preview(ctx context.Context, req render.Request) ([]byte, error)
	Download(ctx context.Context, req render.Request) (*render.Document, error)
	Stats() map[string]any
}

// Suggester produces AI writing suggestions
type Suggester interface {
	Suggest(ctx context.Context, req ai.Request) (ai.Response, error)
	GetModelInfo(ctx context.Context) *ai.ModelInfo
	Stats() map[string]any
}

// Server holds configuration for the HTTP server
type Server struct {
	Host        string
	Port        string
	Version     string
	Environment string

	// Full application configuration
	AppConfig *config.Config

	// API Authentication
	APIKeys map[string]bool

	// Timeout configurations
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Request size limit
	MaxRequestSize int64

	// Rate limiting
	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	CORS config.CORSConfig

	Renderer  Renderer
	Suggester Suggester

	renders singleflight.Group

	// Logger
	Logger *cvstudioErrors.Logger
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	Environment    string
	APIKeys        []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
	RateLimit      *config.RateLimitConfig
	CORS           config.CORSConfig
	Renderer       Renderer
	Suggester      Suggester
}

// ConfigFromApp maps the application configuration onto a ServerConfig
func ConfigFromApp(cfg *config.Config, version string) ServerConfig {
	rateLimit := cfg.Server.RateLimit
	return ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Version:        version,
		Environment:    cfg.App.Environment,
		APIKeys:        cfg.Server.APIKeys,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxRequestSize: cfg.Server.MaxBodySize,
		RateLimit:      &rateLimit,
		CORS:           cfg.Server.CORS,
	}
}

// NewServer creates a new Server instance from a ServerConfig struct
func NewServer(appCfg *config.Config, cfg ServerConfig, logger *cvstudioErrors.Logger) *Server {
	if logger == nil {
		logger = cvstudioErrors.NewNopLogger()
	}

	// Convert API keys slice to map for O(1) lookup
	apiKeyMap := make(map[string]bool)
	for _, key := range cfg.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(
			cfg.RateLimit.RequestsPerMin,
			cfg.RateLimit.BurstCapacity,
			logger,
		)
	}

	environment := cfg.Environment
	if environment == "" {
		environment = "development"
	}

	return &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		Environment:    environment,
		AppConfig:      appCfg,
		APIKeys:        apiKeyMap,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		RateLimit:      cfg.RateLimit,
		RateLimiter:    rateLimiter,
		CORS:           cfg.CORS,
		Renderer:       cfg.Renderer,
		Suggester:      cfg.Suggester,
		Logger:         logger,
	}
}
