package interview

import (
	"context"

	"intervisage/internal/types"
)

// FlowClient is the narrow view of the AI layer a session needs. The server
// adapts its flow services to this interface; tests substitute fakes.
type FlowClient interface {
	ParseResume(ctx context.Context, resumeDataURI string) (types.ResumeProfile, error)
	GenerateQuestions(ctx context.Context, resumeData string, count int) ([]types.Question, error)
	TranscribeAnswer(ctx context.Context, mediaDataURI string) (string, error)
	EvaluateAnswer(ctx context.Context, question, answer, resumeData string) (types.Evaluation, error)
	AnalyzeVideoPerformance(ctx context.Context, facialDataJSON string) (types.VideoAnalysis, error)
}
