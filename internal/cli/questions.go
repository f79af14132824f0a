package cli

import (
	"context"
	"fmt"

	"intervisage/internal/ai"
	"intervisage/internal/common"
	"intervisage/internal/media"
	"intervisage/internal/types"

	"github.com/spf13/cobra"
)

var questionsCmd = &cobra.Command{
	Use:   "questions [resume-file]",
	Short: "Generate interview questions from a resume",
	Long: `Generate tailored interview questions from a resume file. The resume is
parsed first, then the structured profile drives question generation. Each
question comes with a guidance link for preparing an answer.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		if questionsConfig.OutputFormat == "" {
			questionsConfig.OutputFormat = cfg.App.DefaultFormat
		}
		if err := common.ValidateOutputFormat(questionsConfig.OutputFormat, cfg.App.SupportedFormats); err != nil {
			return err
		}
		return common.ValidateQuestionCount(questionCount, cfg.Session.MaxQuestions)
	},
	RunE: runQuestions,
}

var (
	questionsConfig common.CommandConfig
	questionCount   int
)

func init() {
	questionsCmd.Flags().StringVarP(&questionsConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	questionsCmd.Flags().StringVar(&questionsConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")
	questionsCmd.Flags().IntVarP(&questionCount, "count", "n", 5, "Number of questions to generate")

	_ = questionsCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})
}

func runQuestions(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	// The command chains two flows: parse the resume, then generate questions
	parseAIConfig := cfg.GetParseConfig()
	parseService, err := ai.NewService(&parseAIConfig, "parse", logger)
	if err != nil {
		return fmt.Errorf("failed to create AI service: %w", err)
	}

	generateAIConfig := cfg.GetGenerateConfig()
	generateService, err := ai.NewService(&generateAIConfig, "generate", logger)
	if err != nil {
		return fmt.Errorf("failed to create AI service: %w", err)
	}

	createInput := func(paths []string) (types.ParseResumeInput, error) {
		if len(paths) != 1 {
			return types.ParseResumeInput{}, fmt.Errorf("expected 1 file path, got %d", len(paths))
		}
		dataURI, err := media.FileToDataURI(paths[0])
		if err != nil {
			return types.ParseResumeInput{}, err
		}
		return types.ParseResumeInput{ResumeDataURI: dataURI}, nil
	}

	logDetails := func(input types.ParseResumeInput, cfg common.CommandConfig) {
		logger.Info("Starting question generation",
			"resume_uri_chars", len(input.ResumeDataURI),
			"num_questions", questionCount,
			"output_format", cfg.OutputFormat)
	}

	generateOperation := func(ctx context.Context, input types.ParseResumeInput) (types.GenerateQuestionsOutput, *ai.TokenUsage, error) {
		profile, parseUsage, err := parseService.Provider.ParseResume(ctx, input)
		if err != nil {
			return types.GenerateQuestionsOutput{}, parseUsage, err
		}

		output, generateUsage, err := generateService.Provider.GenerateQuestions(ctx, types.GenerateQuestionsInput{
			ResumeData:        profile.Summary(),
			NumberOfQuestions: questionCount,
		})

		return output, sumTokenUsage(parseUsage, generateUsage), err
	}

	err = common.RunFlowCommand(
		cmd.Context(),
		logger,
		questionsConfig,
		args,
		createInput,
		generateOperation,
		logDetails,
	)

	if err != nil {
		return fmt.Errorf("failed to generate questions: %w", err)
	}
	logger.Info("Question generation completed successfully")
	return nil
}

// sumTokenUsage combines usage from chained flows, tolerating nil inputs
func sumTokenUsage(usages ...*ai.TokenUsage) *ai.TokenUsage {
	var total *ai.TokenUsage
	for _, u := range usages {
		if u == nil {
			continue
		}
		if total == nil {
			total = &ai.TokenUsage{}
		}
		total.InputTokens += u.InputTokens
		total.OutputTokens += u.OutputTokens
		total.TotalTokens += u.TotalTokens
	}
	return total
}
