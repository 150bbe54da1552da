package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"resumeforensics/internal/ai"
	"resumeforensics/internal/observability"
)

type observable interface {
	WithObservability(om *observability.ObservabilityManager) *ai.Services
}

// Start serves the API until SIGINT or SIGTERM.
func (s *Server) Start() error {
	om, err := s.initializeObservability()
	if err != nil {
		return err
	}
	defer s.shutdownObservability(om)

	httpServer := s.setupHTTPServer(om)

	if err := s.configureTLS(httpServer); err != nil {
		return err
	}

	stopJanitor := make(chan struct{})
	defer close(stopJanitor)
	s.Sessions.StartJanitor(s.janitorInterval(), stopJanitor)

	s.displayServerInfo()

	return s.startWithGracefulShutdown(httpServer)
}

// initializeObservability builds the manager and hands it to the session
// recorder and the AI services.
func (s *Server) initializeObservability() (*observability.ObservabilityManager, error) {
	obsConfig := observability.GetObservabilityConfig(s.AppConfig, s.Version)

	om, err := observability.NewObservabilityManager(obsConfig, s.AppConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	s.Runtime.Recorder = om
	if o, ok := s.Backend.Health.(observable); ok {
		o.WithObservability(om)
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

// Handler returns the routed API wrapped in the HTTP instrumentation.
func (s *Server) Handler(om *observability.ObservabilityManager) http.Handler {
	return om.HTTPMiddleware()(s.setupRoutes(om))
}

// setupHTTPServer creates and configures the HTTP server
func (s *Server) setupHTTPServer(om *observability.ObservabilityManager) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.Host, s.Port),
		Handler:      s.Handler(om),
		ReadTimeout:  s.ReadTimeout,
		WriteTimeout: s.WriteTimeout,
		IdleTimeout:  s.IdleTimeout,
	}
}

func (s *Server) janitorInterval() time.Duration {
	interval := s.AppConfig.Server.SessionTTL / 2
	if interval < time.Minute {
		interval = time.Minute
	}
	return interval
}

// startWithGracefulShutdown serves until the listener fails or a shutdown
// signal arrives, then drains in-flight requests.
func (s *Server) startWithGracefulShutdown(server *http.Server) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErrors := make(chan error, 1)
	go func() {
		s.Logger.Info("Starting HTTP server",
			"address", server.Addr,
			"tls_enabled", server.TLSConfig != nil)

		var err error
		if server.TLSConfig != nil {
			// Certificates are already loaded into TLSConfig.
			err = server.ListenAndServeTLS("", "")
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
		s.Logger.Info("Received shutdown signal, starting graceful shutdown",
			"active_sessions", s.Sessions.Len())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.cleanupRateLimiter()
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown server gracefully, forcing close")
		return server.Close()
	}
	s.Logger.Info("Server shutdown completed successfully")
	return nil
}

// cleanupRateLimiter stops the limiter sweep.
func (s *Server) cleanupRateLimiter() {
	if s.RateLimiter != nil {
		s.RateLimiter.Close()
	}
}
