// Package server provides the HTTP API for CV tailoring.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jonathan/cv-tailor/internal/config"
	"github.com/jonathan/cv-tailor/internal/db"
	"github.com/jonathan/cv-tailor/internal/fetch"
	"github.com/jonathan/cv-tailor/internal/llm"
	"github.com/jonathan/cv-tailor/internal/observability"
	"github.com/jonathan/cv-tailor/internal/server/ratelimit"
	"github.com/sirupsen/logrus"
)

// APIKeyHeader carries a caller's own LLM API key
const APIKeyHeader = "X-LLM-API-Key"

// ClientFactory builds an LLM client for one request
type ClientFactory func(ctx context.Context, apiKey string) (llm.Client, error)

// RunStore is the persistence the server needs. *db.DB satisfies it.
type RunStore interface {
	CreateRun(ctx context.Context, runID uuid.UUID, jobTitle, company, strictness string) error
	SaveArtifact(ctx context.Context, runID uuid.UUID, step string, content any) error
	CompleteRun(ctx context.Context, runID uuid.UUID, status, errMsg string) error
	GetRun(ctx context.Context, runID uuid.UUID) (*db.Run, error)
	ListRuns(ctx context.Context, limit int) ([]db.Run, error)
	ListArtifacts(ctx context.Context, runID uuid.UUID) ([]db.Artifact, error)
}

var _ RunStore = (*db.DB)(nil)

// Deps are the collaborators of a Server. Nil fields fall back to defaults or disable the
// feature that needs them.
type Deps struct {
	Logger    logrus.FieldLogger
	Store     RunStore          // runs are not persisted when nil
	Fetcher   fetch.Fetcher     // job_url is rejected when nil
	NewClient ClientFactory     // defaults to llm.NewClient with the configured provider
	RateLimit *ratelimit.Config // defaults to ratelimit.LoadConfig()
}

// Server represents the HTTP server
type Server struct {
	cfg         *config.Config
	log         logrus.FieldLogger
	store       RunStore
	fetcher     fetch.Fetcher
	newClient   ClientFactory
	validator   *validator.Validate
	rateLimiter *ratelimit.Limiter
	handler     http.Handler
	httpServer  *http.Server
}

// New creates a new server instance
func New(cfg *config.Config, deps Deps) (*Server, error) {
	if cfg == nil {
		d := config.Default()
		cfg = &d
	}

	s := &Server{
		cfg:       cfg,
		log:       observability.OrNop(deps.Logger),
		store:     deps.Store,
		fetcher:   deps.Fetcher,
		newClient: deps.NewClient,
		validator: validator.New(),
	}

	if s.newClient == nil {
		llmCfg, err := cfg.LLMConfig()
		if err != nil {
			return nil, fmt.Errorf("invalid LLM configuration: %w", err)
		}
		s.newClient = func(ctx context.Context, apiKey string) (llm.Client, error) {
			return llm.NewClient(ctx, llmCfg, apiKey)
		}
	}

	rlConfig := deps.RateLimit
	if rlConfig == nil {
		rlConfig = ratelimit.LoadConfig()
	}
	s.rateLimiter = ratelimit.NewLimiter(rlConfig)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/tailor", s.handleTailor)
	mux.HandleFunc("POST /api/tailor/stream", s.handleTailorStream)
	mux.HandleFunc("POST /api/tailor/upload", s.handleTailorUpload)
	mux.HandleFunc("POST /api/extract-job", s.handleExtractJob)
	mux.HandleFunc("POST /api/extract-cv", s.handleExtractCV)
	mux.HandleFunc("POST /api/export/{format}", s.handleExport)
	mux.HandleFunc("GET /api/runs", s.handleListRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.handleGetRun)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/health", s.handleHealth)

	s.handler = s.withCORS(s.withLogging(s.withRateLimit(mux)))
	s.httpServer = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.Timeout() + 30*time.Second, // streams stay open for a whole run
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the HTTP handler with all middleware applied
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until ctx is done, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.httpServer.Addr).Info("Server starting")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.rateLimiter.Stop()
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.rateLimiter.Stop()
	s.log.Info("Server stopped")
	return nil
}

// Close releases background resources without serving
func (s *Server) Close() {
	s.rateLimiter.Stop()
}

// withCORS adds CORS headers for the configured origins
func (s *Server) withCORS(next http.Handler) http.Handler {
	allowAll := slices.Contains(s.cfg.CORSOrigins, "*")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (allowAll || slices.Contains(s.cfg.CORSOrigins, origin)) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+APIKeyHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(s.extractClientID(r), r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code for request logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush keeps SSE working through the recorder
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).Round(time.Millisecond).String(),
			"remote":   r.RemoteAddr,
		}).Info("Request handled")
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":   "healthy",
		"provider": s.cfg.LLMProvider,
		"storage":  s.store != nil,
	})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.WithError(err).Warn("Error encoding JSON response")
	}
}

// errorResponse classifies err and writes it as an ErrorBody
func (s *Server) errorResponse(w http.ResponseWriter, err error) {
	status, body := Classify(err)
	entry := s.log.WithError(err).WithFields(logrus.Fields{"status": status, "code": body.Code})
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Info("Request rejected")
	}
	s.jsonResponse(w, status, map[string]ErrorBody{"error": body})
}

// extractClientID extracts the client identifier from the request.
// This uses the IP address from RemoteAddr; proxies are not trusted.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]any{
		"error": ErrorBody{
			Code:    codeRateLimited,
			Message: "Rate limit exceeded. Please try again later.",
		},
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		seconds := int(info.RetryAfter.Seconds()) + 1
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", fmt.Sprintf("%d", seconds))
	}

	s.log.WithFields(logrus.Fields{
		"limit":    info.Limit,
		"reset_at": info.ResetTime.Format(time.RFC3339),
	}).Warn("Rate limit exceeded")

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}

// apiKey returns the caller's key, or the server default
func (s *Server) apiKey(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get(APIKeyHeader)); key != "" {
		return key
	}
	return s.cfg.APIKey
}

// client builds the LLM client for r
func (s *Server) client(r *http.Request) (llm.Client, error) {
	key := s.apiKey(r)
	if key == "" {
		return nil, &RequestError{Message: "an LLM API key is required", Details: []string{APIKeyHeader + " header is missing and no server key is configured"}}
	}
	return s.newClient(r.Context(), key)
}
