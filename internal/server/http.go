package server

import (
	"context"
	"time"

	"resumeforensics/internal/ai"
	"resumeforensics/internal/common"
	"resumeforensics/internal/config"
	appErrors "resumeforensics/internal/errors"
	"resumeforensics/internal/session"
	"resumeforensics/internal/types"
)

// AnalyzeRequest is the JSON form of an upload. Data is base64 in the wire format.
type AnalyzeRequest struct {
	FileName          string `json:"fileName"`
	MediaType         string `json:"mediaType"`
	Data              []byte `json:"data"`
	Industry          string `json:"industry"`
	Region            string `json:"region"`
	TargetDescription string `json:"targetDescription"`
}

type UnlockRequest struct {
	Method string `json:"method"`
}

type ChatRequest struct {
	Message string           `json:"message"`
	History []types.ChatTurn `json:"history,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Assistant answers career questions.
type Assistant interface {
	Chat(ctx context.Context, input types.ChatInput) (string, error)
}

// HealthReporter reports model availability and breaker state.
type HealthReporter interface {
	ModelInfo(ctx context.Context) map[string]*ai.ModelInfo
	CircuitBreakerStats() map[string]any
}

// Backend is the model side of the API.
type Backend struct {
	Analyzer  session.Analyzer
	Deck      session.DeckGenerator
	Assistant Assistant
	Health    HealthReporter
}

// BackendFromServices adapts the per-operation AI services.
func BackendFromServices(s *ai.Services) Backend {
	return Backend{
		Analyzer:  s.Analyze,
		Deck:      s.PrepDeck,
		Assistant: s.Chat,
		Health:    s,
	}
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	TLSConfig config.TLSConfig

	// API Authentication
	APIKeys map[string]bool

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	MaxRequestSize int64

	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	// Shared storage, records and exporters
	Runtime  *common.Runtime
	Backend  Backend
	Sessions *session.Manager

	Logger *appErrors.Logger
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
	SessionTTL     time.Duration
}

// NewServer creates a Server serving sessions built from rt and backend.
func NewServer(rt *common.Runtime, backend Backend, cfg ServerConfig) *Server {
	// Convert API keys slice to map for O(1) lookup
	apiKeyMap := make(map[string]bool)
	for _, key := range cfg.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(cfg.RateLimit.RequestsPerMin, cfg.RateLimit.BurstCapacity, cfg.RateLimit.Window, rt.Logger)
	}

	s := &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		AppConfig:      rt.Config,
		TLSConfig:      cfg.TLSConfig,
		APIKeys:        apiKeyMap,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		RateLimit:      cfg.RateLimit,
		RateLimiter:    rateLimiter,
		Runtime:        rt,
		Backend:        backend,
		Logger:         rt.Logger,
	}
	s.Sessions = session.NewManager(cfg.SessionTTL, func(email string) *session.Session {
		return rt.NewSession(email, s.Backend.Analyzer)
	})
	return s
}
