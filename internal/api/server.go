// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wallet-performance/internal/logging"
	"github.com/wallet-performance/internal/types"
)

// Service interfaces for dependency injection and testing

// PerformanceServiceInterface defines the interface for performance computations
type PerformanceServiceInterface interface {
	ComputePerformance(ctx context.Context, wallet string, window types.Window) (*types.PortfolioPerformance, error)
	RecentWindow() types.Window
}

// HoldingsServiceInterface defines the interface for wallet holdings lookups
type HoldingsServiceInterface interface {
	FetchHoldings(ctx context.Context, wallet string) ([]types.TokenHolding, error)
}

// DiagnosticsFunc reports collaborator health for the diagnostics endpoint
type DiagnosticsFunc func() map[string]interface{}

// Server represents the HTTP API server.
type Server struct {
	router             *mux.Router
	httpServer         *http.Server
	performanceService PerformanceServiceInterface
	holdingsService    HoldingsServiceInterface
	diagnostics        DiagnosticsFunc
	config             *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	RequestsPerIP   int // Requests per second allowed per client IP
	Burst           int
	MaxWindowDays   int
}

// NewServer creates a new API server instance. diagnostics may be nil.
func NewServer(
	config *ServerConfig,
	performanceService PerformanceServiceInterface,
	holdingsService HoldingsServiceInterface,
	diagnostics DiagnosticsFunc,
) *Server {
	if config.MaxWindowDays <= 0 {
		config.MaxWindowDays = 365
	}

	s := &Server{
		router:             mux.NewRouter(),
		performanceService: performanceService,
		holdingsService:    holdingsService,
		diagnostics:        diagnostics,
		config:             config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	rateLimiter := NewRateLimiter(s.config.RequestsPerIP, s.config.Burst)

	// Order matters: logging first so every later layer has a request logger
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(RateLimitMiddleware(rateLimiter))
	api.HandleFunc("/wallets/{address}/performance", s.handleGetPerformance).Methods(http.MethodGet)
	api.HandleFunc("/wallets/{address}/holdings", s.handleGetHoldings).Methods(http.MethodGet)
	api.HandleFunc("/diagnostics", s.handleDiagnostics).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "wallet-performance",
	})
}

// handleDiagnostics reports pacing and endpoint health.
func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{}
	if s.diagnostics != nil {
		data = s.diagnostics()
	}
	respondJSON(w, http.StatusOK, data)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	logging.WithField("addr", s.httpServer.Addr).Info("Starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
