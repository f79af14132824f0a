package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"intervisage/internal/ai"
	"intervisage/internal/config"
	"intervisage/internal/interview"
	"intervisage/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// Start starts the HTTP server with all configured components
func (s *Server) Start() error {
	om, err := s.initializeObservability()
	if err != nil {
		return err
	}
	defer s.shutdownObservability(om)

	if err := s.initializeInterviewRuntime(om); err != nil {
		return err
	}

	promptWatcher := s.startPromptWatcher(om)

	httpServer := s.setupHTTPServer(om)

	s.displayServerInfo()

	return s.startWithGracefulShutdown(httpServer, promptWatcher)
}

// initializeObservability sets up observability components
func (s *Server) initializeObservability() (*observability.ObservabilityManager, error) {
	obsConfig := observability.GetObservabilityConfig(s.AppConfig, s.Version)

	om, err := observability.NewObservabilityManager(obsConfig, s.AppConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	return om, nil
}

// shutdownObservability handles observability cleanup
func (s *Server) shutdownObservability(om *observability.ObservabilityManager) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := om.Shutdown(ctx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown observability")
	}
}

// initializeInterviewRuntime builds the flow services and the session registry
func (s *Server) initializeInterviewRuntime(om *observability.ObservabilityManager) error {
	flows, err := ai.NewFlows(s.AppConfig, s.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize flow services: %w", err)
	}
	s.Flows = flows

	s.Sessions = interview.NewManager(
		newFlowsAdapter(flows, om),
		interview.ManagerConfig{
			TTL:             s.AppConfig.Session.TTL,
			CleanupInterval: s.AppConfig.Session.CleanupInterval,
			MaxSessions:     s.AppConfig.Session.MaxSessions,
			MaxQuestions:    s.AppConfig.Session.MaxQuestions,
		},
		s.Logger,
	)

	return nil
}

// startPromptWatcher enables hot reloading of prompt files, when any are configured
func (s *Server) startPromptWatcher(om *observability.ObservabilityManager) *config.PromptWatcher {
	watcher := config.NewPromptWatcher(s.AppConfig, time.Second, func(op, promptType string, err error) {
		if err != nil {
			s.Logger.LogError(err, "Prompt reload failed",
				"operation", op,
				"prompt_type", promptType)
			om.GetMetrics().RecordBusinessMetric(context.Background(), "prompt_reloaded", false, om,
				attribute.String("operation", op))
			return
		}
		s.Logger.Info("Prompt reloaded",
			"operation", op,
			"prompt_type", promptType)
		om.GetMetrics().RecordBusinessMetric(context.Background(), "prompt_reloaded", true, om,
			attribute.String("operation", op))
	})
	if watcher == nil {
		return nil
	}

	if err := watcher.Start(); err != nil {
		s.Logger.LogError(err, "Failed to start prompt watcher, continuing without hot reload")
		return nil
	}

	s.Logger.Info("Prompt file watcher started",
		"watched_files", watcher.WatchedFiles())
	return watcher
}

// setupHTTPServer creates and configures the HTTP server
func (s *Server) setupHTTPServer(om *observability.ObservabilityManager) *http.Server {
	mux := s.setupRoutes(om)
	handler := om.HTTPMiddleware()(mux)
	addr := fmt.Sprintf("%s:%s", s.Host, s.Port)

	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  s.ReadTimeout,
		WriteTimeout: s.WriteTimeout,
		IdleTimeout:  s.IdleTimeout,
	}
}

// startWithGracefulShutdown starts the HTTP server and handles graceful shutdown
func (s *Server) startWithGracefulShutdown(server *http.Server, promptWatcher *config.PromptWatcher) error {
	// Channel to receive OS signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Channel to receive server errors
	serverErrors := make(chan error, 1)

	// Start the server in a goroutine
	go func() {
		s.Logger.Info("Starting HTTP server",
			"address", server.Addr,
			"tls_enabled", s.TLSConfig.Enabled)

		var err error
		if s.TLSConfig.Enabled {
			err = server.ListenAndServeTLS(s.TLSConfig.CertFile, s.TLSConfig.KeyFile)
		} else {
			err = server.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	// Wait for either a signal or server error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server failed to start: %w", err)
	case sig := <-quit:
		s.Logger.Info("Received shutdown signal, starting graceful shutdown",
			"signal", sig.String())

		return s.performGracefulShutdown(server, promptWatcher)
	}
}

// performGracefulShutdown handles the graceful shutdown process
func (s *Server) performGracefulShutdown(server *http.Server, promptWatcher *config.PromptWatcher) error {
	// Create a context with timeout for graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop the prompt watcher if running
	if promptWatcher != nil {
		if err := promptWatcher.Stop(); err != nil {
			s.Logger.LogError(err, "Failed to stop prompt watcher")
		}
	}

	// Stop the session registry eviction loop
	if s.Sessions != nil {
		s.Sessions.Stop()
	}

	// Release flow provider resources
	if s.Flows != nil {
		if err := s.Flows.Close(); err != nil {
			s.Logger.LogError(err, "Failed to close flow services")
		}
	}

	// Clean up rate limiter if enabled
	s.cleanupRateLimiter()

	// Attempt graceful shutdown of HTTP server
	s.Logger.Info("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown server gracefully, forcing close")
		return server.Close()
	}

	s.Logger.Info("Server shutdown completed successfully")
	return nil
}

// cleanupRateLimiter cleans up the rate limiter resources
func (s *Server) cleanupRateLimiter() {
	if s.RateLimiter != nil {
		s.RateLimiter.Close()
		s.Logger.Info("Rate limiter cleaned up")
	}
}
