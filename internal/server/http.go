package server

import (
	"time"

	"intervisage/internal/ai"
	"intervisage/internal/config"
	intervisageErrors "intervisage/internal/errors"
	"intervisage/internal/interview"
	"intervisage/internal/types"
)

// UploadResumeRequest represents the request body for the resume endpoint
type UploadResumeRequest struct {
	ResumeDataURI string `json:"resumeDataUri"`
}

// GenerateQuestionsRequest represents the request body for the questions endpoint
type GenerateQuestionsRequest struct {
	NumQuestions int `json:"numQuestions"`
}

// SubmitAnswerRequest represents the request body for the answer endpoint
type SubmitAnswerRequest struct {
	MediaDataURI string                  `json:"mediaDataUri"`
	FacialLog    []*types.FacialSnapshot `json:"facialLog"`
}

// AnswerResponse carries the pipeline result for a submitted answer
type AnswerResponse struct {
	Stage  interview.Stage    `json:"stage"`
	Record types.AnswerRecord `json:"record"`
}

// AdvanceResponse reports the session state after moving to the next question
type AdvanceResponse struct {
	Stage           interview.Stage `json:"stage"`
	CurrentQuestion *types.Question `json:"currentQuestion,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	// TLS Configuration
	TLSConfig config.TLSConfig

	// API Authentication
	APIKeys map[string]bool

	// Timeout configurations
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Request size limit
	MaxRequestSize int64

	// Rate limiting
	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	// Interview runtime, wired up by Start
	Sessions *interview.Manager
	Flows    *ai.Flows

	// Logger
	Logger *intervisageErrors.Logger
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	TLSConfig      config.TLSConfig
	APIKeys        []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
	RateLimit      *config.RateLimitConfig
}

// NewServer creates a new Server instance from a ServerConfig struct
func NewServer(appCfg *config.Config, cfg ServerConfig, logger *intervisageErrors.Logger) *Server {
	// Convert API keys slice to map for O(1) lookup
	apiKeyMap := make(map[string]bool)
	for _, key := range cfg.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(
			cfg.RateLimit.RequestsPerMin,
			cfg.RateLimit.Window,
			cfg.RateLimit.BurstCapacity,
			logger,
		)
	}

	return &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		AppConfig:      appCfg,
		TLSConfig:      cfg.TLSConfig,
		APIKeys:        apiKeyMap,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		RateLimit:      cfg.RateLimit,
		RateLimiter:    rateLimiter,
		Logger:         logger,
	}
}
