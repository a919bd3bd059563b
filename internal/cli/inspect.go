package cli

import (
	"context"
	"fmt"

	"cvstudio/internal/common"
	"cvstudio/internal/cv"
	"cvstudio/internal/derive"

	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [cv-file]",
	Short: "Report section progress, date problems and the ATS score",
	Long: `Inspect a CV file and report what the editor shows alongside it:

- Completion percentage and word count for every section, in the theme's order
- Date ranges that are unparseable or end before they start
- The ATS score out of 100 with a tip for every failed check`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: documentArgCompletion,
	RunE:              runInspect,
}

var (
	inspectConfig common.CommandConfig
	inspectTheme  string
)

func init() {
	addOutputFlags(inspectCmd, &inspectConfig)
	addThemeFlag(inspectCmd, &inspectTheme)
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, logger, err := commandContext(cmd)
	if err != nil {
		return err
	}

	theme, err := resolveTheme(inspectTheme, cfg)
	if err != nil {
		return err
	}

	logDetails := func(doc cv.Document, cmdConfig common.CommandConfig) {
		logger.Info("Inspecting CV",
			"file", args[0],
			"theme", theme.String(),
			"output_format", cmdConfig.OutputFormat)
	}

	analyze := func(ctx context.Context, doc cv.Document) (derive.Insights, error) {
		return derive.Analyze(doc, theme), nil
	}

	if err := common.RunDocumentCommand(cmd.Context(), logger, inspectConfig, args[0], analyze, logDetails); err != nil {
		return fmt.Errorf("failed to inspect CV: %w", err)
	}
	return nil
}
