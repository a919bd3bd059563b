package cli

import (
	"cvstudio/internal/common"
	"cvstudio/internal/cv"
	"cvstudio/internal/formatters"

	"github.com/spf13/cobra"
)

var themesCmd = &cobra.Command{
	Use:   "themes",
	Short: "List the available themes and their section order",
	Args:  cobra.NoArgs,
	RunE:  runThemes,
}

var themesConfig common.CommandConfig

func init() {
	addOutputFlags(themesCmd, &themesConfig)
}

func runThemes(cmd *cobra.Command, args []string) error {
	cfg, logger, err := commandContext(cmd)
	if err != nil {
		return err
	}

	defaultTheme, err := cv.ParseTheme(cfg.Sync.DefaultTheme)
	if err != nil {
		defaultTheme = cv.DefaultTheme
	}

	list := formatters.ThemeList{Themes: cv.Themes, Default: defaultTheme}
	return common.NewOutputHandler(logger).WithStdout(cmd.OutOrStdout()).HandleOutput(list, themesConfig)
}
