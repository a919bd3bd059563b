package cli

import (
	"cvstudio/internal/common"
	"cvstudio/internal/config"
	"cvstudio/internal/cv"

	"github.com/spf13/cobra"
)

// addOutputFlags registers --output and --format and validates the format
// before the command runs.
func addOutputFlags(cmd *cobra.Command, cmdConfig *common.CommandConfig) {
	cmd.Flags().StringVarP(&cmdConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&cmdConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return err
		}
		format, err := common.ResolveOutputFormat(cmdConfig.OutputFormat, cfg.App.DefaultFormat, cfg.App.SupportedFormats)
		if err != nil {
			return err
		}
		cmdConfig.OutputFormat = format
		return nil
	}

	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return []string{}, cobra.ShellCompDirectiveError
		}
		return cfg.App.SupportedFormats, cobra.ShellCompDirectiveNoFileComp
	})
}

// addThemeFlag registers --theme with completion over the known themes
func addThemeFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVar(target, "theme", "", "Theme name (default from config)")
	_ = cmd.RegisterFlagCompletionFunc("theme", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		names := make([]string, len(cv.Themes))
		for i, theme := range cv.Themes {
			names[i] = theme.String()
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})
}

// resolveTheme falls back to the configured default theme
func resolveTheme(name string, cfg *config.Config) (cv.Theme, error) {
	if name == "" {
		name = cfg.Sync.DefaultTheme
	}
	return cv.ParseTheme(name)
}

// documentArgCompletion restricts file completion to CV documents
func documentArgCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return []string{"json", "yaml", "yml"}, cobra.ShellCompDirectiveFilterFileExt
}
