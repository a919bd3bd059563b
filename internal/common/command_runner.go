package common

import (
	"context"

	"cvstudio/internal/ai"
	"cvstudio/internal/cv"
	"cvstudio/internal/errors"
)

// DocumentOperationFunc computes a command result from a loaded CV.
type DocumentOperationFunc[Output any] func(context.Context, cv.Document) (Output, error)

// LogDetailsFunc defines how to log the start of an operation.
type LogDetailsFunc[Input any] func(input Input, cfg CommandConfig)

// AIOperationFunc is a generic function signature for any AI operation with context and token usage.
type AIOperationFunc[Input, Output any] func(context.Context, Input) (Output, *ai.TokenUsage, error)

// RunDocumentCommand loads the CV at path, runs operation on it and writes
// the formatted result.
func RunDocumentCommand[Output any](
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	path string,
	operation DocumentOperationFunc[Output],
	logDetails LogDetailsFunc[cv.Document],
) error {
	fileProcessor := NewFileProcessor(logger)
	outputHandler := NewOutputHandler(logger)

	doc, err := fileProcessor.LoadDocument(path)
	if err != nil {
		return err
	}

	if logDetails != nil {
		logDetails(doc, cmdConfig)
	}

	result, err := operation(ctx, doc)
	if err != nil {
		return err
	}

	return outputHandler.HandleOutput(result, cmdConfig)
}

// RunAICommand runs an AI operation, reports its token usage and writes the
// formatted result.
func RunAICommand[Input, Output any](
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	input Input,
	aiOperation AIOperationFunc[Input, Output],
	logDetails LogDetailsFunc[Input],
) error {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	outputHandler := NewOutputHandler(logger)

	if logDetails != nil {
		logDetails(input, cmdConfig)
	}

	result, tokenUsage, err := aiOperation(ctx, input)
	if err != nil {
		return err
	}

	if tokenUsage != nil {
		logger.Info("AI token usage",
			"input_tokens", tokenUsage.InputTokens,
			"output_tokens", tokenUsage.OutputTokens,
			"total_tokens", tokenUsage.TotalTokens)
	}

	return outputHandler.HandleOutput(result, cmdConfig)
}
