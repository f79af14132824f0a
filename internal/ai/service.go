package ai

import (
	"context"
	"fmt"

	"intervisage/internal/config"
	"intervisage/internal/errors"
)

// Service handles AI calls for a single interview flow
type Service struct {
	Provider  FlowProvider // Exported for access from server package
	Operation string
	config    *config.OperationAIConfig
	logger    *errors.Logger
}

// NewService creates a new AI service instance with configuration for a specific flow
func NewService(cfg *config.OperationAIConfig, operation string, logger *errors.Logger) (*Service, error) {
	logger.Debug("Initializing flow service",
		"provider", cfg.Provider,
		"operation", operation,
		"model", cfg.Model,
		"temperature", *cfg.Temperature,
		"timeout", *cfg.Timeout,
		"max_retries", *cfg.MaxRetries,
		"use_system_prompts", *cfg.UseSystemPrompts)

	var provider FlowProvider
	var err error

	switch cfg.Provider {
	case "gemini":
		provider, err = NewGeminiProvider(cfg, operation, logger)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported AI provider: %s", cfg.Provider), nil)
	}

	if err != nil {
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed,
			"Failed to create AI provider", err)
	}

	return &Service{
		Provider:  provider,
		Operation: operation,
		config:    cfg,
		logger:    logger,
	}, nil
}

// GetModelInfo returns information about the AI model for health checks
func (s *Service) GetModelInfo(ctx context.Context) *ModelInfo {
	return s.Provider.GetModelInfo(ctx)
}

// Close releases the underlying provider
func (s *Service) Close() error {
	return s.Provider.Close()
}

// Flows bundles one configured service per interview flow. Built once at
// startup; sessions share it for their whole lifetime.
type Flows struct {
	Parse      *Service
	Generate   *Service
	Transcribe *Service
	Evaluate   *Service
	Analyze    *Service
}

// NewFlows builds every flow service from the resolved configuration
func NewFlows(cfg *config.Config, logger *errors.Logger) (*Flows, error) {
	parseCfg := cfg.GetParseConfig()
	parse, err := NewService(&parseCfg, "parse", logger)
	if err != nil {
		return nil, fmt.Errorf("parse flow: %w", err)
	}

	generateCfg := cfg.GetGenerateConfig()
	generate, err := NewService(&generateCfg, "generate", logger)
	if err != nil {
		return nil, fmt.Errorf("generate flow: %w", err)
	}

	transcribeCfg := cfg.GetTranscribeConfig()
	transcribe, err := NewService(&transcribeCfg, "transcribe", logger)
	if err != nil {
		return nil, fmt.Errorf("transcribe flow: %w", err)
	}

	evaluateCfg := cfg.GetEvaluateConfig()
	evaluate, err := NewService(&evaluateCfg, "evaluate", logger)
	if err != nil {
		return nil, fmt.Errorf("evaluate flow: %w", err)
	}

	analyzeCfg := cfg.GetAnalyzeConfig()
	analyze, err := NewService(&analyzeCfg, "analyze", logger)
	if err != nil {
		return nil, fmt.Errorf("analyze flow: %w", err)
	}

	return &Flows{
		Parse:      parse,
		Generate:   generate,
		Transcribe: transcribe,
		Evaluate:   evaluate,
		Analyze:    analyze,
	}, nil
}

// Services returns every flow service keyed by operation name
func (f *Flows) Services() map[string]*Service {
	return map[string]*Service{
		"parse":      f.Parse,
		"generate":   f.Generate,
		"transcribe": f.Transcribe,
		"evaluate":   f.Evaluate,
		"analyze":    f.Analyze,
	}
}

// Close closes every flow service, returning the first error encountered
func (f *Flows) Close() error {
	var firstErr error
	for _, svc := range f.Services() {
		if err := svc.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
