package cli

import (
	"context"
	"fmt"
	"strings"

	"cvstudio/internal/ai"
	"cvstudio/internal/common"
	"cvstudio/internal/render"

	"github.com/spf13/cobra"
)

var suggestCmd = &cobra.Command{
	Use:   "suggest [text]",
	Short: "Ask for an improved version of a piece of CV text",
	Long: `Ask the AI provider to rewrite CV text. The type selects the prompt:
summary, headline, bullet, education, project_summary, project_highlight,
skills, generate or honor. --context passes a hint such as the target role.

With --remote the request goes through the typesetting service instead of
the locally configured provider. When no suggestion comes back the original
text is printed unchanged.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSuggest,
}

var (
	suggestConfig  common.CommandConfig
	suggestType    string
	suggestContext string
	suggestRemote  bool
)

func init() {
	addOutputFlags(suggestCmd, &suggestConfig)
	suggestCmd.Flags().StringVarP(&suggestType, "type", "t", string(ai.TypeSummary), "Suggestion type")
	suggestCmd.Flags().StringVar(&suggestContext, "context", "", "Hint for the suggestion, such as a target role")
	suggestCmd.Flags().BoolVar(&suggestRemote, "remote", false, "Use the typesetting service's suggestion endpoint")

	_ = suggestCmd.RegisterFlagCompletionFunc("type", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		names := make([]string, len(ai.SuggestionTypes))
		for i, typ := range ai.SuggestionTypes {
			names[i] = string(typ)
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})
}

func runSuggest(cmd *cobra.Command, args []string) error {
	cfg, logger, err := commandContext(cmd)
	if err != nil {
		return err
	}

	typ, err := ai.ParseType(suggestType)
	if err != nil {
		return err
	}
	req := ai.Request{Text: strings.Join(args, " "), Type: string(typ), Context: suggestContext}

	var operation common.AIOperationFunc[ai.Request, ai.Response]
	if suggestRemote {
		client := render.NewClient(cfg.Renderer, logger)
		operation = remoteSuggestion(client)
	} else {
		service, err := ai.NewService(cmd.Context(), cfg.AI, logger)
		if err != nil {
			return fmt.Errorf("failed to create AI service: %w", err)
		}
		defer func() {
			if err := service.Close(); err != nil {
				logger.Warn("Failed to close AI service", "error", err)
			}
		}()
		operation = localSuggestion(service)
	}

	logDetails := func(input ai.Request, cmdConfig common.CommandConfig) {
		logger.Info("Requesting suggestion",
			"type", input.Type,
			"text_chars", len(input.Text),
			"remote", suggestRemote,
			"output_format", cmdConfig.OutputFormat)
	}

	if err := common.RunAICommand(cmd.Context(), logger, suggestConfig, req, keepOriginal(operation), logDetails); err != nil {
		return fmt.Errorf("failed to get suggestion: %w", err)
	}
	return nil
}

func localSuggestion(service *ai.Service) common.AIOperationFunc[ai.Request, ai.Response] {
	return func(ctx context.Context, req ai.Request) (ai.Response, *ai.TokenUsage, error) {
		resp, err := service.Suggest(ctx, req)
		return resp, resp.Usage, err
	}
}

func remoteSuggestion(client *render.Client) common.AIOperationFunc[ai.Request, ai.Response] {
	return func(ctx context.Context, req ai.Request) (ai.Response, *ai.TokenUsage, error) {
		suggestion, ok := client.Suggest(ctx, req.Text, req.Type, req.Context)
		if !ok {
			return ai.Response{}, nil, nil
		}
		return ai.Response{Suggestion: suggestion}, nil, nil
	}
}

// keepOriginal answers with the input text when no suggestion came back
func keepOriginal(operation common.AIOperationFunc[ai.Request, ai.Response]) common.AIOperationFunc[ai.Request, ai.Response] {
	return func(ctx context.Context, req ai.Request) (ai.Response, *ai.TokenUsage, error) {
		resp, usage, err := operation(ctx, req)
		if err != nil {
			return resp, usage, err
		}
		if resp.Suggestion == "" && len(resp.Suggestions) == 0 {
			resp.Suggestion = req.Text
		}
		return resp, usage, nil
	}
}
