package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cvstudio/internal/cli"
	"cvstudio/internal/config"
	"cvstudio/internal/errors"
)

func main() {
	// Create a context that is canceled on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := errors.New(cfg.App.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	logger.Debug("Starting cvstudio",
		"version", cli.Version,
		"log_level", cfg.App.LogLevel,
		"renderer", cfg.Renderer.BaseURL,
		"ai_enabled", cfg.AI.Enabled)

	if err := cli.Execute(ctx, cfg, logger); err != nil {
		logger.LogError(err, "Command failed")
		stop()
		os.Exit(1)
	}
}
