package ai

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"net"
	"net/http"
	"time"

	"intervisage/internal/config"
	apperrors "intervisage/internal/errors"
	"intervisage/internal/media"
	"intervisage/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// GeminiProvider implements FlowProvider for Google Gemini
type GeminiProvider struct {
	client         *genai.Client
	httpClient     *http.Client
	config         *config.OperationAIConfig
	operation      string
	circuitBreaker *FlowCircuitBreaker
	modelBreaker   *ModelCircuitBreaker
	logger         *apperrors.Logger
}

// Ensure GeminiProvider implements FlowProvider
var _ FlowProvider = (*GeminiProvider)(nil)

// NewGeminiProvider creates a new Gemini provider instance for a specific flow
func NewGeminiProvider(cfg *config.OperationAIConfig, operation string, logger *apperrors.Logger) (*GeminiProvider, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, apperrors.NewAIError(apperrors.ErrCodeAIServiceFailed,
			"Failed to create Gemini client", err)
	}

	return &GeminiProvider{
		client: client,
		httpClient: &http.Client{
			Timeout: *cfg.Timeout,
		},
		config:         cfg,
		operation:      operation,
		circuitBreaker: NewFlowCircuitBreaker(operation, cfg, logger),
		modelBreaker:   NewModelCircuitBreaker(operation, cfg, logger),
		logger:         logger,
	}, nil
}

// ModelInfo represents information about the AI model
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}

// GetModelInfo checks the readiness and availability of the configured model
func (g *GeminiProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	modelInfo := &ModelInfo{
		Name:      g.config.Model,
		Available: false,
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	model, err := g.modelBreaker.ExecuteModel(func() (*genai.Model, error) {
		return g.client.Models.Get(checkCtx, g.config.Model, &genai.GetModelConfig{})
	})
	if err != nil {
		modelInfo.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed",
			"model", g.config.Model,
			"operation", g.operation,
			"error", err.Error())
		return modelInfo
	}

	modelInfo.Available = true
	if model.DisplayName != "" {
		modelInfo.DisplayName = model.DisplayName
	}
	if model.Version != "" {
		modelInfo.Version = model.Version
	}

	g.logger.Debug("Model availability check successful",
		"model", g.config.Model,
		"operation", g.operation,
		"display_name", modelInfo.DisplayName,
		"version", modelInfo.Version)

	return modelInfo
}

// executeWithRetry executes a flow call with retry logic and exponential backoff
func (g *GeminiProvider) executeWithRetry(ctx context.Context, operation string, fn func() (*genai.GenerateContentResponse, error)) (*genai.GenerateContentResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= *g.config.MaxRetries; attempt++ {
		if attempt > 0 {
			g.logger.Warn("Retrying flow call",
				"operation", operation,
				"attempt", attempt,
				"max_retries", *g.config.MaxRetries,
				"error", lastErr.Error())

			// Exponential backoff with jitter to prevent thundering herd
			baseDelay := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			jitterMax := big.NewInt(int64(float64(baseDelay) * 0.1))
			jitterBig, _ := rand.Int(rand.Reader, jitterMax)
			jitter := time.Duration(jitterBig.Int64())
			// Cap maximum backoff at 30 seconds
			backoff := min(baseDelay+jitter, 30*time.Second)

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		result, err := fn()
		if err == nil {
			if attempt > 0 {
				g.logger.Info("Flow call succeeded after retry",
					"operation", operation,
					"successful_attempt", attempt+1)
			}
			return result, nil
		}

		lastErr = err

		// Don't retry on certain errors (auth, invalid input, etc.)
		if !g.isRetryableError(err) {
			g.logger.Debug("Error is not retryable, stopping retry attempts",
				"operation", operation,
				"error", err.Error())
			break
		}
	}

	g.logger.LogError(lastErr, "Flow call failed after all retry attempts",
		"operation", operation,
		"total_attempts", *g.config.MaxRetries+1)

	return nil, fmt.Errorf("operation '%s' failed after %d retries: %w", operation, *g.config.MaxRetries, lastErr)
}

// isRetryableError determines if an error should trigger a retry
func (g *GeminiProvider) isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// Network errors (timeouts, connection issues) are retryable
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	// Google API errors by HTTP status code
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
	}

	return false
}

// executeFlow is a generic helper to run interview flows with common tracing,
// circuit breaker, and response parsing logic. Parts carry the user prompt
// plus any inline media payload.
func executeFlow[Out any](
	g *GeminiProvider,
	ctx context.Context,
	operationName string,
	parts []*genai.Part,
	systemPrompt string,
	genaiConfig *genai.GenerateContentConfig,
	spanAttributes ...attribute.KeyValue,
) (Out, *TokenUsage, error) {
	var output Out
	tracer := otel.Tracer("intervisage.ai.gemini")
	ctx, span := tracer.Start(ctx, "gemini."+operationName)
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", g.config.Model),
		attribute.Float64("ai.temperature", float64(*g.config.Temperature)),
	)
	span.SetAttributes(spanAttributes...)

	if *g.config.UseSystemPrompts && systemPrompt != "" {
		genaiConfig.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	result, err := g.circuitBreaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return g.executeWithRetry(ctx, operationName, func() (*genai.GenerateContentResponse, error) {
			return g.client.Models.GenerateContent(ctx, g.config.Model, contents, genaiConfig)
		})
	})

	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return output, nil, apperrors.NewAIError(apperrors.ErrCodeAIServiceFailed, "Failed to generate content for "+operationName, err)
	}

	if err := json.Unmarshal([]byte(result.Text()), &output); err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return output, nil, apperrors.NewAIError(apperrors.ErrCodeAIResponseInvalid, "Failed to parse flow response for "+operationName, err)
	}

	tokenUsage := extractTokenUsage(result)
	if tokenUsage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", tokenUsage.InputTokens),
			attribute.Int64("ai.tokens.output", tokenUsage.OutputTokens),
			attribute.Int64("ai.tokens.total", tokenUsage.TotalTokens),
		)
	}

	span.SetAttributes(attribute.Bool("success", true))
	return output, tokenUsage, nil
}

// ParseResume implements FlowProvider for resume parsing. The resume travels
// as an inline document part next to the instruction text.
func (g *GeminiProvider) ParseResume(ctx context.Context, input types.ParseResumeInput) (types.ResumeProfile, *TokenUsage, error) {
	uri, err := media.ValidateResumeURI(input.ResumeDataURI)
	if err != nil {
		return types.ResumeProfile{}, nil, err
	}
	payload, err := uri.Decode()
	if err != nil {
		return types.ResumeProfile{}, nil, err
	}

	parts := []*genai.Part{
		genai.NewPartFromText(g.getUserPrompt("parse")),
		genai.NewPartFromBytes(payload, uri.MIMEType),
	}

	output, tokenUsage, err := executeFlow[types.ResumeProfile](
		g,
		ctx,
		"parse_resume",
		parts,
		g.getSystemPrompt("parse"),
		g.buildParseSchema(),
		attribute.String("input.resume_mime_type", uri.MIMEType),
		attribute.Int("input.resume_bytes", len(payload)),
	)
	if err != nil {
		return types.ResumeProfile{}, nil, err
	}

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(
			attribute.Int("output.skills_length", len(output.Skills)),
			attribute.Int("output.experience_length", len(output.WorkExperience)),
		)
	}

	return output, tokenUsage, nil
}

// GenerateQuestions implements FlowProvider for interview question generation
func (g *GeminiProvider) GenerateQuestions(ctx context.Context, input types.GenerateQuestionsInput) (types.GenerateQuestionsOutput, *TokenUsage, error) {
	userPrompt := fmt.Sprintf(g.getUserPrompt("generate"),
		input.NumberOfQuestions, input.ResumeData, input.NumberOfQuestions)
	parts := []*genai.Part{genai.NewPartFromText(userPrompt)}

	output, tokenUsage, err := executeFlow[types.GenerateQuestionsOutput](
		g,
		ctx,
		"generate_questions",
		parts,
		g.getSystemPrompt("generate"),
		g.buildGenerateSchema(),
		attribute.Int("input.requested_questions", input.NumberOfQuestions),
		attribute.Int("input.resume_length", len(input.ResumeData)),
	)
	if err != nil {
		return types.GenerateQuestionsOutput{}, nil, err
	}

	if err := output.Validate(); err != nil {
		return types.GenerateQuestionsOutput{}, nil, apperrors.NewAIError(apperrors.ErrCodeAIResponseInvalid,
			"Question generation returned malformed output", err)
	}

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(attribute.Int("output.question_count", len(output.Questions)))
	}

	return output, tokenUsage, nil
}

// TranscribeAnswer implements FlowProvider for answer transcription. The
// recording travels as an inline audio/video part.
func (g *GeminiProvider) TranscribeAnswer(ctx context.Context, input types.TranscribeAnswerInput) (types.TranscribeAnswerOutput, *TokenUsage, error) {
	uri, err := media.ValidateAnswerURI(input.AudioDataURI)
	if err != nil {
		return types.TranscribeAnswerOutput{}, nil, err
	}
	payload, err := uri.Decode()
	if err != nil {
		return types.TranscribeAnswerOutput{}, nil, err
	}

	parts := []*genai.Part{
		genai.NewPartFromText(g.getUserPrompt("transcribe")),
		genai.NewPartFromBytes(payload, uri.MIMEType),
	}

	output, tokenUsage, err := executeFlow[types.TranscribeAnswerOutput](
		g,
		ctx,
		"transcribe_answer",
		parts,
		g.getSystemPrompt("transcribe"),
		g.buildTranscribeSchema(),
		attribute.String("input.media_mime_type", uri.MIMEType),
		attribute.Int("input.media_bytes", len(payload)),
	)
	if err != nil {
		return types.TranscribeAnswerOutput{}, nil, err
	}

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(attribute.Int("output.transcription_length", len(output.Transcription)))
	}

	return output, tokenUsage, nil
}

// EvaluateAnswer implements FlowProvider for answer evaluation
func (g *GeminiProvider) EvaluateAnswer(ctx context.Context, input types.EvaluateAnswerInput) (types.Evaluation, *TokenUsage, error) {
	userPrompt := fmt.Sprintf(g.getUserPrompt("evaluate"),
		input.Question, input.Answer, input.ResumeData)
	parts := []*genai.Part{genai.NewPartFromText(userPrompt)}

	output, tokenUsage, err := executeFlow[types.Evaluation](
		g,
		ctx,
		"evaluate_answer",
		parts,
		g.getSystemPrompt("evaluate"),
		g.buildEvaluateSchema(),
		attribute.Int("input.question_length", len(input.Question)),
		attribute.Int("input.answer_length", len(input.Answer)),
	)
	if err != nil {
		return types.Evaluation{}, nil, err
	}

	if err := output.Validate(); err != nil {
		return types.Evaluation{}, nil, apperrors.NewAIError(apperrors.ErrCodeAIResponseInvalid,
			"Answer evaluation returned malformed output", err)
	}

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(
			attribute.Float64("output.score", output.Score),
			attribute.Int("output.resource_count", len(output.SuggestedResources)),
		)
	}

	return output, tokenUsage, nil
}

// AnalyzeVideoPerformance implements FlowProvider for facial expression analysis
func (g *GeminiProvider) AnalyzeVideoPerformance(ctx context.Context, input types.AnalyzeVideoInput) (types.VideoAnalysis, *TokenUsage, error) {
	userPrompt := fmt.Sprintf(g.getUserPrompt("analyze"), input.FacialDataJSON)
	parts := []*genai.Part{genai.NewPartFromText(userPrompt)}

	output, tokenUsage, err := executeFlow[types.VideoAnalysis](
		g,
		ctx,
		"analyze_performance",
		parts,
		g.getSystemPrompt("analyze"),
		g.buildAnalyzeSchema(),
		attribute.Int("input.facial_log_length", len(input.FacialDataJSON)),
	)
	if err != nil {
		return types.VideoAnalysis{}, nil, err
	}

	if err := output.Validate(); err != nil {
		return types.VideoAnalysis{}, nil, apperrors.NewAIError(apperrors.ErrCodeAIResponseInvalid,
			"Video analysis returned malformed output", err)
	}

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(
			attribute.Float64("output.confidence_score", output.ConfidenceScore),
			attribute.Bool("output.cheating_suspicion", output.CheatingSuspicion),
		)
	}

	return output, tokenUsage, nil
}

// GetCircuitBreakerStats returns circuit breaker statistics
func (g *GeminiProvider) GetCircuitBreakerStats() map[string]any {
	stats := map[string]any{
		"flow_operations":  g.circuitBreaker.GetStats(),
		"model_operations": g.modelBreaker.GetModelStats(),
	}

	stats["overall_healthy"] = g.circuitBreaker.IsHealthy() && g.modelBreaker.IsModelHealthy()

	return stats
}

// Close implements FlowProvider interface
func (g *GeminiProvider) Close() error {
	// Gemini client doesn't have a Close method in current single-shot usage
	return nil
}

// buildParseSchema creates the response schema for resume parsing
func (g *GeminiProvider) buildParseSchema() *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"skills": {
					Type:  genai.TypeArray,
					Items: &genai.Schema{Type: genai.TypeString},
				},
				"workExperience": {
					Type:  genai.TypeArray,
					Items: &genai.Schema{Type: genai.TypeString},
				},
				"projects": {
					Type:  genai.TypeArray,
					Items: &genai.Schema{Type: genai.TypeString},
				},
			},
			Required: []string{"skills", "workExperience", "projects"},
		},
	}

	if *g.config.Temperature > 0 {
		config.Temperature = g.config.Temperature
	}

	return config
}

// buildGenerateSchema creates the response schema for question generation
func (g *GeminiProvider) buildGenerateSchema() *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"questions": {
					Type: genai.TypeArray,
					Items: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"question":     {Type: genai.TypeString},
							"guidanceLink": {Type: genai.TypeString},
						},
						Required: []string{"question", "guidanceLink"},
					},
				},
			},
			Required: []string{"questions"},
		},
	}

	if *g.config.Temperature > 0 {
		config.Temperature = g.config.Temperature
	}

	return config
}

// buildTranscribeSchema creates the response schema for transcription
func (g *GeminiProvider) buildTranscribeSchema() *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"transcription": {Type: genai.TypeString},
			},
			Required: []string{"transcription"},
		},
	}

	if *g.config.Temperature > 0 {
		config.Temperature = g.config.Temperature
	}

	return config
}

// buildEvaluateSchema creates the response schema for answer evaluation
func (g *GeminiProvider) buildEvaluateSchema() *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"evaluation":             {Type: genai.TypeString},
				"score":                  {Type: genai.TypeNumber},
				"followUpQuestion":       {Type: genai.TypeString},
				"expectedAnswerElements": {Type: genai.TypeString},
				"suggestedResources": {
					Type: genai.TypeArray,
					Items: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"title": {Type: genai.TypeString},
							"url":   {Type: genai.TypeString},
						},
						Required: []string{"title", "url"},
					},
				},
			},
			Required: []string{"evaluation", "score", "followUpQuestion", "expectedAnswerElements", "suggestedResources"},
		},
	}

	if *g.config.Temperature > 0 {
		config.Temperature = g.config.Temperature
	}

	return config
}

// buildAnalyzeSchema creates the response schema for video performance analysis
func (g *GeminiProvider) buildAnalyzeSchema() *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"nervousnessAnalysis": {Type: genai.TypeString},
				"confidenceScore":     {Type: genai.TypeNumber},
				"gazeAnalysis":        {Type: genai.TypeString},
				"cheatingSuspicion":   {Type: genai.TypeBoolean},
			},
			Required: []string{"nervousnessAnalysis", "confidenceScore", "gazeAnalysis", "cheatingSuspicion"},
		},
	}

	if *g.config.Temperature > 0 {
		config.Temperature = g.config.Temperature
	}

	return config
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// extractTokenUsage extracts token usage information from a Gemini API response
func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}

// getSystemPrompt returns the effective system prompt for the flow.
// Priority: file-loaded or inline config prompt, then built-in default.
func (g *GeminiProvider) getSystemPrompt(promptType string) string {
	loaded := config.GetLoadedPrompts(promptType)

	var fallback string
	switch promptType {
	case "parse":
		fallback = DefaultSystemPrompts.ParseResume
	case "generate":
		fallback = DefaultSystemPrompts.GenerateQuestions
	case "transcribe":
		fallback = DefaultSystemPrompts.TranscribeAnswer
	case "evaluate":
		fallback = DefaultSystemPrompts.EvaluateAnswer
	case "analyze":
		fallback = DefaultSystemPrompts.AnalyzeVideo
	}

	return resolvePrompt(loaded.System, g.config.CustomPrompts.System, fallback)
}

// getUserPrompt returns the effective user prompt template for the flow
func (g *GeminiProvider) getUserPrompt(promptType string) string {
	loaded := config.GetLoadedPrompts(promptType)

	var fallback string
	switch promptType {
	case "parse":
		fallback = DefaultUserPrompts.ParseResume
	case "generate":
		fallback = DefaultUserPrompts.GenerateQuestions
	case "transcribe":
		fallback = DefaultUserPrompts.TranscribeAnswer
	case "evaluate":
		fallback = DefaultUserPrompts.EvaluateAnswer
	case "analyze":
		fallback = DefaultUserPrompts.AnalyzeVideo
	}

	return resolvePrompt(loaded.User, g.config.CustomPrompts.User, fallback)
}

// resolvePrompt selects the correct prompt string based on priority:
// 1. A prompt loaded from a file (hot-reloadable).
// 2. A prompt defined directly in the configuration.
// 3. The built-in default.
func resolvePrompt(loadedFromFile, fromConfig, fromDefault string) string {
	if loadedFromFile != "" {
		return loadedFromFile
	}
	if fromConfig != "" {
		return fromConfig
	}
	return fromDefault
}
