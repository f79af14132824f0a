package common

import (
	"context"
	"fmt"
	"os"

	"intervisage/internal/ai"
	"intervisage/internal/errors"
)

// CreateInputFunc defines how to build the flow input from the file arguments.
// Commands read the files themselves so binary formats can become data URIs.
type CreateInputFunc[Input any] func(paths []string) (Input, error)

// LogDetailsFunc defines how to log the start of an operation.
type LogDetailsFunc[Input any] func(input Input, cfg CommandConfig)

// FlowFunc is a generic function signature for any flow operation with context and token usage.
type FlowFunc[Input, Output any] func(context.Context, Input) (Output, *ai.TokenUsage, error)

// RunFlowCommand encapsulates the common logic for file-based CLI commands with token usage reporting.
func RunFlowCommand[Input, Output any](
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	args []string,
	createInput CreateInputFunc[Input],
	flow FlowFunc[Input, Output],
	logDetails LogDetailsFunc[Input],
) error {
	// Pass the logger when creating helpers
	fileProcessor := NewFileProcessor(logger)
	outputHandler := NewOutputHandler(logger)

	if err := fileProcessor.ValidateFiles(args...); err != nil {
		return err
	}

	input, err := createInput(args)
	if err != nil {
		return fmt.Errorf("failed to create input from file arguments: %w", err)
	}

	logDetails(input, cmdConfig)

	result, tokenUsage, err := flow(ctx, input)
	if err != nil {
		return err
	}

	// Report token usage
	if tokenUsage != nil {
		if logger != nil {
			logger.Info("Flow token usage", "input_tokens", tokenUsage.InputTokens, "output_tokens", tokenUsage.OutputTokens, "total_tokens", tokenUsage.TotalTokens)
		} else {
			fmt.Fprintf(os.Stderr, "Flow token usage: input=%d, output=%d, total=%d\n", tokenUsage.InputTokens, tokenUsage.OutputTokens, tokenUsage.TotalTokens)
		}
	}

	return outputHandler.HandleOutput(result, cmdConfig)
}
