package cli

import (
	"fmt"

	"cvstudio/internal/ai"
	"cvstudio/internal/config"
	"cvstudio/internal/render"
	"cvstudio/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for the browser editor",
	Long: `Start an HTTP server that exposes the editor's operations as REST endpoints.

Available endpoints:
- POST /api/insights: Section progress, date checks and ATS score for a CV
- POST /api/yaml: Typesetter input generated for a CV
- POST /api/preview: Render a PNG preview through the typesetting service
- POST /api/download: Render a PDF through the typesetting service
- POST /api/render: Render either format, chosen by the request body
- POST /api/ai/suggest: AI writing suggestion for a piece of CV text
- GET /api/themes: Themes and their section order
- GET /health, /api/health: Health checks
- GET /stats: Rate limiting, renderer and AI provider statistics`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serveFlags struct {
	port    string
	host    string
	apiKeys []string
}

func init() {
	serveCmd.Flags().StringVarP(&serveFlags.port, "port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().StringVar(&serveFlags.host, "host", "", "Host to bind to (default from config)")
	serveCmd.Flags().StringSliceVar(&serveFlags.apiKeys, "api-key", nil, "API key accepted by protected endpoints (repeatable, replaces config)")
}

// applyServeOverrides copies explicitly set flags over the loaded config
func applyServeOverrides(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = serveFlags.port
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serveFlags.host
	}
	if cmd.Flags().Changed("api-key") {
		cfg.Server.APIKeys = serveFlags.apiKeys
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := commandContext(cmd)
	if err != nil {
		return err
	}
	applyServeOverrides(cmd, cfg)

	aiService, err := ai.NewService(cmd.Context(), cfg.AI, logger)
	if err != nil {
		return fmt.Errorf("failed to create AI service: %w", err)
	}
	defer func() {
		if err := aiService.Close(); err != nil {
			logger.Warn("Failed to close AI service", "error", err)
		}
	}()

	serverCfg := server.ConfigFromApp(cfg, Version)
	serverCfg.Renderer = render.NewClient(cfg.Renderer, logger)
	serverCfg.Suggester = aiService

	return server.NewServer(cfg, serverCfg, logger).Start(cmd.Context())
}
