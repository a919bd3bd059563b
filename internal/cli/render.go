package cli

import (
	"errors"
	"fmt"
	"strings"

	"cvstudio/internal/common"
	"cvstudio/internal/config"
	"cvstudio/internal/cv"
	"cvstudio/internal/render"
	"cvstudio/internal/rendercv"
	"cvstudio/internal/utils"

	"github.com/spf13/cobra"
)

// renderFlags are the theme and design options shared by every render command
type renderFlags struct {
	theme        string
	primaryColor string
	fontFamily   string
	sectionOrder []string
}

// renderOptions are validated renderFlags
type renderOptions struct {
	theme  cv.Theme
	design cv.DesignSettings
	order  []cv.Section
}

func (f *renderFlags) register(cmd *cobra.Command) {
	f.registerDesign(cmd)
	cmd.Flags().StringSliceVar(&f.sectionOrder, "section-order", nil, "Comma-separated section order (default: the theme's)")
}

// registerDesign registers the theme, color and font flags only
func (f *renderFlags) registerDesign(cmd *cobra.Command) {
	addThemeFlag(cmd, &f.theme)
	cmd.Flags().StringVar(&f.primaryColor, "color", "", "Primary color as a hex value such as #004f90")
	cmd.Flags().StringVar(&f.fontFamily, "font", "", "Font family (one of the typesetter's fonts)")

	_ = cmd.RegisterFlagCompletionFunc("font", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return cv.FontFamilies, cobra.ShellCompDirectiveNoFileComp
	})
}

func (f *renderFlags) resolve(cfg *config.Config) (renderOptions, error) {
	var opts renderOptions

	theme, err := resolveTheme(f.theme, cfg)
	if err != nil {
		return opts, err
	}
	opts.theme = theme

	opts.design = cv.DesignSettings{
		PrimaryColor: strings.TrimSpace(f.primaryColor),
		FontFamily:   strings.TrimSpace(f.fontFamily),
	}
	if err := opts.design.Validate(); err != nil {
		return opts, fmt.Errorf("invalid design settings: %w", err)
	}

	for _, name := range f.sectionOrder {
		section, err := cv.ParseOrderSection(name)
		if err != nil {
			return opts, err
		}
		opts.order = append(opts.order, section)
	}

	return opts, nil
}

func (o renderOptions) sectionOrder() []cv.Section {
	if len(o.order) > 0 {
		return o.order
	}
	return o.theme.SectionOrder()
}

func (o renderOptions) request(doc cv.Document, format render.Format) render.Request {
	req := render.NewRequest(doc, o.theme, o.design, format)
	req.SectionOrder = o.sectionOrder()
	return req
}

var previewCmd = &cobra.Command{
	Use:   "preview [cv-file]",
	Short: "Render a PNG preview of a CV",
	Long: `Send a CV to the typesetting service and save the first page as a PNG.
The output defaults to the CV's file name with a .png extension.`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: documentArgCompletion,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRender(cmd, args[0], render.FormatPNG, previewOutput, &previewRenderFlags)
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download [cv-file]",
	Short: "Render a CV as a PDF",
	Long: `Send a CV to the typesetting service and save the PDF it returns. The
output defaults to <Name>_CV.pdf in the current directory.`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: documentArgCompletion,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRender(cmd, args[0], render.FormatPDF, downloadOutput, &downloadRenderFlags)
	},
}

var (
	previewOutput       string
	previewRenderFlags  renderFlags
	downloadOutput      string
	downloadRenderFlags renderFlags
)

func init() {
	previewCmd.Flags().StringVarP(&previewOutput, "output", "o", "", "Output PNG path")
	previewRenderFlags.register(previewCmd)

	downloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", "", "Output PDF path")
	downloadRenderFlags.register(downloadCmd)
}

func runRender(cmd *cobra.Command, path string, format render.Format, output string, flags *renderFlags) error {
	cfg, logger, err := commandContext(cmd)
	if err != nil {
		return err
	}

	opts, err := flags.resolve(cfg)
	if err != nil {
		return err
	}

	doc, err := common.NewFileProcessor(logger).LoadDocument(path)
	if err != nil {
		return err
	}

	client := render.NewClient(cfg.Renderer, logger)
	req := opts.request(doc, format)

	logger.Info("Rendering CV",
		"file", path,
		"format", string(format),
		"theme", opts.theme.String())

	var data []byte
	target := output
	switch format {
	case render.FormatPDF:
		document, err := client.Download(cmd.Context(), req)
		if err != nil {
			return renderFailure(err)
		}
		data = document.Data
		if target == "" {
			target = rendercv.FileName(doc.Name, string(render.FormatPDF))
		}
	default:
		data, err = client.Preview(cmd.Context(), req)
		if err != nil {
			return renderFailure(err)
		}
		if target == "" {
			target = previewPath(path)
		}
	}

	if err := common.NewOutputHandler(logger).WriteBinary(data, target); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), target)
	return nil
}

// renderFailure names the offending field when the typesetter rejected one
func renderFailure(err error) error {
	var renderErr *render.RenderError
	if errors.As(err, &renderErr) && renderErr.Field != "" {
		return fmt.Errorf("render rejected field %q: %s", renderErr.Field, renderErr.Message)
	}
	return fmt.Errorf("render failed: %w", err)
}

// previewPath is the CV's path with a .png extension
func previewPath(documentPath string) string {
	return utils.ReplaceExtension(documentPath, ".png")
}
