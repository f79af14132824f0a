package config

import (
	"fmt"
	"os"
)

// Flow operation names used for config lookup, metrics labels and circuit
// breaker identity. Keep in sync with the per-flow blocks in AIConfig.
const (
	OpParseResume       = "parse"
	OpGenerateQuestions = "generate"
	OpTranscribeAnswer  = "transcribe"
	OpEvaluateAnswer    = "evaluate"
	OpAnalyzeVideo      = "analyze"
)

// FlowOperations lists every flow operation in pipeline order.
var FlowOperations = []string{
	OpParseResume,
	OpGenerateQuestions,
	OpTranscribeAnswer,
	OpEvaluateAnswer,
	OpAnalyzeVideo,
}

// applyOperationDefaults applies global defaults to flow-specific configuration
func (c *Config) applyOperationDefaults(opCfg *OperationAIConfig) {
	if opCfg.Provider == "" {
		opCfg.Provider = c.AI.Provider
	}
	if opCfg.Model == "" {
		opCfg.Model = c.AI.Model
	}
	if opCfg.Timeout == nil {
		opCfg.Timeout = &c.AI.Timeout
	}
	if opCfg.APIKey == "" {
		opCfg.APIKey = c.AI.APIKey
	}
	if opCfg.APIKey == "" {
		// Legacy environment variable, checked last
		opCfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if opCfg.MaxRetries == nil {
		opCfg.MaxRetries = &c.AI.MaxRetries
	}
	if opCfg.Temperature == nil {
		opCfg.Temperature = &c.AI.Temperature
	}
	// UseSystemPrompts: apply global default only if not explicitly set
	if opCfg.UseSystemPrompts == nil {
		opCfg.UseSystemPrompts = &c.AI.UseSystemPrompts
	}
}

// GetParseConfig returns the AI configuration for resume parsing with fallback to global config
func (c *Config) GetParseConfig() OperationAIConfig {
	config := c.AI.Parse
	c.applyOperationDefaults(&config)
	return config
}

// GetGenerateConfig returns the AI configuration for question generation with fallback to global config
func (c *Config) GetGenerateConfig() OperationAIConfig {
	config := c.AI.Generate
	c.applyOperationDefaults(&config)
	return config
}

// GetTranscribeConfig returns the AI configuration for answer transcription with fallback to global config
func (c *Config) GetTranscribeConfig() OperationAIConfig {
	config := c.AI.Transcribe
	c.applyOperationDefaults(&config)
	return config
}

// GetEvaluateConfig returns the AI configuration for answer evaluation with fallback to global config
func (c *Config) GetEvaluateConfig() OperationAIConfig {
	config := c.AI.Evaluate
	c.applyOperationDefaults(&config)
	return config
}

// GetAnalyzeConfig returns the AI configuration for video performance analysis with fallback to global config
func (c *Config) GetAnalyzeConfig() OperationAIConfig {
	config := c.AI.Analyze
	c.applyOperationDefaults(&config)
	return config
}

// FlowConfig returns the resolved configuration for the named flow.
func (c *Config) FlowConfig(op string) (OperationAIConfig, error) {
	switch op {
	case "parse":
		return c.GetParseConfig(), nil
	case "generate":
		return c.GetGenerateConfig(), nil
	case "transcribe":
		return c.GetTranscribeConfig(), nil
	case "evaluate":
		return c.GetEvaluateConfig(), nil
	case "analyze":
		return c.GetAnalyzeConfig(), nil
	default:
		return OperationAIConfig{}, fmt.Errorf("unknown flow operation: %s", op)
	}
}

// flowPromptConfig returns a pointer to the raw prompt block for the named
// flow, for use by the loader and the file watcher.
func (c *Config) flowPromptConfig(op string) *PromptConfig {
	switch op {
	case "parse":
		return &c.AI.Parse.CustomPrompts
	case "generate":
		return &c.AI.Generate.CustomPrompts
	case "transcribe":
		return &c.AI.Transcribe.CustomPrompts
	case "evaluate":
		return &c.AI.Evaluate.CustomPrompts
	case "analyze":
		return &c.AI.Analyze.CustomPrompts
	default:
		return nil
	}
}
