package cli

import (
	"context"
	"fmt"

	"cvstudio/internal/common"
	"cvstudio/internal/cv"
	"cvstudio/internal/formatters"
	"cvstudio/internal/rendercv"

	"github.com/spf13/cobra"
)

var yamlCmd = &cobra.Command{
	Use:   "yaml [cv-file]",
	Short: "Print the typesetter input generated for a CV",
	Long: `Generate the YAML document the typesetting service renders, with the
theme, design overrides and section order applied. Useful for rendering
locally or checking what the service receives.`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: documentArgCompletion,
	RunE:              runYAML,
}

var (
	yamlConfig      common.CommandConfig
	yamlRenderFlags renderFlags
)

func init() {
	addOutputFlags(yamlCmd, &yamlConfig)
	yamlRenderFlags.register(yamlCmd)
}

func runYAML(cmd *cobra.Command, args []string) error {
	cfg, logger, err := commandContext(cmd)
	if err != nil {
		return err
	}

	opts, err := yamlRenderFlags.resolve(cfg)
	if err != nil {
		return err
	}

	generate := func(ctx context.Context, doc cv.Document) (formatters.YAMLOutput, error) {
		out, err := rendercv.Marshal(doc, opts.theme, opts.design, opts.sectionOrder())
		if err != nil {
			return formatters.YAMLOutput{}, err
		}
		return formatters.YAMLOutput{YAML: out}, nil
	}

	logDetails := func(doc cv.Document, cmdConfig common.CommandConfig) {
		logger.Debug("Generating typesetter YAML", "file", args[0], "theme", opts.theme.String())
	}

	if err := common.RunDocumentCommand(cmd.Context(), logger, yamlConfig, args[0], generate, logDetails); err != nil {
		return fmt.Errorf("failed to generate YAML: %w", err)
	}
	return nil
}
