package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"time"
)

// getHealthCheckTimeout returns the configured health check timeout
func (s *Server) getHealthCheckTimeout() time.Duration {
	if t := s.AppConfig.Observability.HealthCheck.Timeout; t > 0 {
		return t
	}
	return 10 * time.Second
}

// healthHandler reports model availability per operation and breaker state.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":  "healthy",
		"service": "resumeforensics",
		"version": s.Version,
	}

	healthy := true
	if s.Backend.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), s.getHealthCheckTimeout())
		defer cancel()

		models := s.Backend.Health.ModelInfo(ctx)
		response["ai_models"] = models
		response["circuit_breakers"] = s.Backend.Health.CircuitBreakerStats()
		for _, info := range models {
			if info == nil || !info.Available {
				healthy = false
				break
			}
		}
	} else {
		response["ai_models"] = map[string]any{"available": false, "error": "no model configured"}
		healthy = false
	}

	if err := s.checkStorageHealth(r.Context()); err != nil {
		response["storage"] = map[string]any{"healthy": false, "error": err.Error()}
		healthy = false
	} else {
		response["storage"] = map[string]any{"healthy": true, "driver": s.AppConfig.Storage.Driver}
	}

	status := http.StatusOK
	if !healthy {
		response["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

func (s *Server) checkStorageHealth(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.getHealthCheckTimeout())
	defer cancel()
	_, err := s.Runtime.Repo.Load(ctx)
	return err
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service": "resumeforensics",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
			"active_sessions":        s.Sessions.Len(),
		},
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{
			"enabled": false,
		}
	}

	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}

	writeJSON(w, http.StatusOK, response)
}

// parseJSONRequest parses JSON request body into the provided struct
func parseJSONRequest(r *http.Request, v any) error {
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt != "application/json" {
		return fmt.Errorf("content-type must be application/json")
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return fmt.Errorf("request body too large (limit is %d bytes)", maxBytesErr.Limit)
		}
		return fmt.Errorf("failed to read request body: %w", err)
	}
	defer func() {
		if err := r.Body.Close(); err != nil {
			log.Printf("Failed to close request body: %v", err)
		}
	}()

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}

	return nil
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, error, message string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{
		Error:   error,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
