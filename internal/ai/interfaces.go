package ai

import (
	"context"

	"intervisage/internal/types"
)

// FlowProvider is the narrow interface every hosted-model backend implements.
// All methods return token usage information - callers can ignore it if not needed
type FlowProvider interface {
	ParseResume(ctx context.Context, input types.ParseResumeInput) (types.ResumeProfile, *TokenUsage, error)
	GenerateQuestions(ctx context.Context, input types.GenerateQuestionsInput) (types.GenerateQuestionsOutput, *TokenUsage, error)
	TranscribeAnswer(ctx context.Context, input types.TranscribeAnswerInput) (types.TranscribeAnswerOutput, *TokenUsage, error)
	EvaluateAnswer(ctx context.Context, input types.EvaluateAnswerInput) (types.Evaluation, *TokenUsage, error)
	AnalyzeVideoPerformance(ctx context.Context, input types.AnalyzeVideoInput) (types.VideoAnalysis, *TokenUsage, error)
	GetModelInfo(ctx context.Context) *ModelInfo
	Close() error
}

// PromptBuilder interface for building flow prompts
type PromptBuilder interface {
	BuildParsePrompt() string
	BuildGeneratePrompt(resumeData string, count int) string
	BuildTranscribePrompt() string
	BuildEvaluatePrompt(question, answer, resumeData string) string
	BuildAnalyzePrompt(facialDataJSON string) string
}
