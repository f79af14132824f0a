package interview

import (
	"context"

	"intervisage/internal/types"

	"golang.org/x/sync/errgroup"
)

// pipelineResult carries the outcome of the answer-processing pipeline. Each
// branch records its own value and error; one branch failing never blanks out
// what the others produced.
type pipelineResult struct {
	transcription *string
	evaluation    *types.Evaluation
	analysis      *types.VideoAnalysis

	transcribeErr error
	evaluateErr   error
	analyzeErr    error
}

// Err returns the first branch error in pipeline order, nil when every
// branch succeeded.
func (r pipelineResult) Err() error {
	if r.transcribeErr != nil {
		return r.transcribeErr
	}
	if r.evaluateErr != nil {
		return r.evaluateErr
	}
	return r.analyzeErr
}

// runAnswerPipeline fans out the answer-processing work: transcription and
// facial analysis start together, evaluation starts as soon as transcription
// finishes. A plain errgroup.Group (no shared context cancellation) is used
// deliberately: a transcription failure must not cancel an analysis already
// in flight, since partial results still go into the session log.
func runAnswerPipeline(ctx context.Context, flows FlowClient, question, resumeData, mediaDataURI, facialJSON string) pipelineResult {
	var result pipelineResult
	var g errgroup.Group

	g.Go(func() error {
		transcription, err := flows.TranscribeAnswer(ctx, mediaDataURI)
		if err != nil {
			result.transcribeErr = err
			return nil
		}
		result.transcription = &transcription

		evaluation, err := flows.EvaluateAnswer(ctx, question, transcription, resumeData)
		if err != nil {
			result.evaluateErr = err
			return nil
		}
		result.evaluation = &evaluation
		return nil
	})

	g.Go(func() error {
		analysis, err := flows.AnalyzeVideoPerformance(ctx, facialJSON)
		if err != nil {
			result.analyzeErr = err
			return nil
		}
		result.analysis = &analysis
		return nil
	})

	// Branch errors live in the result struct, so Wait's error is always nil.
	_ = g.Wait()

	return result
}
