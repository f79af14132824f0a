package server

import (
	"context"

	"intervisage/internal/ai"
	"intervisage/internal/config"
	"intervisage/internal/interview"
	"intervisage/internal/observability"
	"intervisage/internal/types"
)

// flowsAdapter bridges the AI flow services to the narrow client interface
// sessions consume, recording flow metrics and token usage along the way.
type flowsAdapter struct {
	flows *ai.Flows
	om    *observability.ObservabilityManager
}

var _ interview.FlowClient = (*flowsAdapter)(nil)

func newFlowsAdapter(flows *ai.Flows, om *observability.ObservabilityManager) *flowsAdapter {
	return &flowsAdapter{flows: flows, om: om}
}

func (a *flowsAdapter) ParseResume(ctx context.Context, resumeDataURI string) (types.ResumeProfile, error) {
	var out types.ResumeProfile
	metrics := a.om.GetMetrics()
	err := metrics.TrackFlowOperation(ctx, config.OpParseResume, func(ctx context.Context) *observability.FlowOperationResult {
		profile, tokenUsage, flowErr := a.flows.Parse.Provider.ParseResume(ctx, types.ParseResumeInput{
			ResumeDataURI: resumeDataURI,
		})
		out = profile
		return &observability.FlowOperationResult{
			Error:      flowErr,
			TokenUsage: (*observability.TokenUsage)(tokenUsage),
		}
	}, a.om)
	return out, err
}

func (a *flowsAdapter) GenerateQuestions(ctx context.Context, resumeData string, count int) ([]types.Question, error) {
	var out types.GenerateQuestionsOutput
	metrics := a.om.GetMetrics()
	err := metrics.TrackFlowOperation(ctx, config.OpGenerateQuestions, func(ctx context.Context) *observability.FlowOperationResult {
		output, tokenUsage, flowErr := a.flows.Generate.Provider.GenerateQuestions(ctx, types.GenerateQuestionsInput{
			ResumeData:        resumeData,
			NumberOfQuestions: count,
		})
		out = output
		return &observability.FlowOperationResult{
			Error:      flowErr,
			TokenUsage: (*observability.TokenUsage)(tokenUsage),
		}
	}, a.om)
	return out.Questions, err
}

func (a *flowsAdapter) TranscribeAnswer(ctx context.Context, mediaDataURI string) (string, error) {
	var out types.TranscribeAnswerOutput
	metrics := a.om.GetMetrics()
	err := metrics.TrackFlowOperation(ctx, config.OpTranscribeAnswer, func(ctx context.Context) *observability.FlowOperationResult {
		output, tokenUsage, flowErr := a.flows.Transcribe.Provider.TranscribeAnswer(ctx, types.TranscribeAnswerInput{
			AudioDataURI: mediaDataURI,
		})
		out = output
		return &observability.FlowOperationResult{
			Error:      flowErr,
			TokenUsage: (*observability.TokenUsage)(tokenUsage),
		}
	}, a.om)
	return out.Transcription, err
}

func (a *flowsAdapter) EvaluateAnswer(ctx context.Context, question, answer, resumeData string) (types.Evaluation, error) {
	var out types.Evaluation
	metrics := a.om.GetMetrics()
	err := metrics.TrackFlowOperation(ctx, config.OpEvaluateAnswer, func(ctx context.Context) *observability.FlowOperationResult {
		evaluation, tokenUsage, flowErr := a.flows.Evaluate.Provider.EvaluateAnswer(ctx, types.EvaluateAnswerInput{
			Question:   question,
			Answer:     answer,
			ResumeData: resumeData,
		})
		out = evaluation
		return &observability.FlowOperationResult{
			Error:      flowErr,
			TokenUsage: (*observability.TokenUsage)(tokenUsage),
		}
	}, a.om)
	return out, err
}

func (a *flowsAdapter) AnalyzeVideoPerformance(ctx context.Context, facialDataJSON string) (types.VideoAnalysis, error) {
	var out types.VideoAnalysis
	metrics := a.om.GetMetrics()
	err := metrics.TrackFlowOperation(ctx, config.OpAnalyzeVideo, func(ctx context.Context) *observability.FlowOperationResult {
		analysis, tokenUsage, flowErr := a.flows.Analyze.Provider.AnalyzeVideoPerformance(ctx, types.AnalyzeVideoInput{
			FacialDataJSON: facialDataJSON,
		})
		out = analysis
		return &observability.FlowOperationResult{
			Error:      flowErr,
			TokenUsage: (*observability.TokenUsage)(tokenUsage),
		}
	}, a.om)
	return out, err
}
