package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	logger     *slog.Logger

	maxUploadBytes int64
	readyTimeout   time.Duration

	// Services
	authService     driving.AuthService
	docService      driving.DocumentService
	queryService    driving.QueryService
	feedbackService driving.FeedbackService

	// Dependencies checked by /ready, by name
	checks map[string]Pinger
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string

	// MaxUploadBytes bounds the multipart body of a revision upload
	MaxUploadBytes int64
	// CORSOrigins enables CORS for the listed origins ("*" for any)
	CORSOrigins []string
	// ReadyTimeout bounds each dependency check in /ready
	ReadyTimeout time.Duration

	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8080,
		Version:        "dev",
		MaxUploadBytes: 10 << 20,
		ReadyTimeout:   2 * time.Second,
	}
}

// Services bundles the driving ports served over HTTP
type Services struct {
	Auth     driving.AuthService
	Document driving.DocumentService
	Query    driving.QueryService
	Feedback driving.FeedbackService
}

// NewServer creates a new HTTP server. checks are pinged by /ready.
func NewServer(cfg Config, svc Services, checks map[string]Pinger) *Server {
	defaults := DefaultConfig()
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaults.MaxUploadBytes
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = defaults.ReadyTimeout
	}
	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	logger := cfg.Logger.With("component", "http")

	s := &Server{
		router:          http.NewServeMux(),
		version:         cfg.Version,
		logger:          logger,
		maxUploadBytes:  cfg.MaxUploadBytes,
		readyTimeout:    cfg.ReadyTimeout,
		authService:     svc.Auth,
		docService:      svc.Document,
		queryService:    svc.Query,
		feedbackService: svc.Feedback,
		checks:          checks,
	}

	s.setupRoutes()

	mw := []func(http.Handler) http.Handler{recoverPanics(logger), logRequests(logger)}
	if len(cfg.CORSOrigins) > 0 {
		mw = append(mw, allowOrigins(cfg.CORSOrigins))
	}
	handler := chain(s.router, mw...)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second, // generation may take up to a minute
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	auth := NewAuthenticator(s.authService)
	authed := func(h http.HandlerFunc) http.Handler {
		return auth.Require(h)
	}
	uploader := func(h http.HandlerFunc) http.Handler {
		return chain(h, auth.Require, auth.Roles(uploaderRoles...))
	}
	adminOnly := func(h http.HandlerFunc) http.Handler {
		return chain(h, auth.Require, auth.Roles(domain.RoleAdmin))
	}

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)
	s.router.HandleFunc("GET /swagger/doc.json", s.handleSwagger)

	// Query endpoints
	s.router.Handle("POST /api/v1/query", authed(s.handleQuery))
	s.router.Handle("GET /api/v1/queries", authed(s.handleQueryHistory))
	s.router.Handle("GET /api/v1/queries/{id}", authed(s.handleGetQuery))
	s.router.Handle("POST /api/v1/queries/{id}/feedback", authed(s.handleSubmitFeedback))

	// Feedback review
	s.router.Handle("GET /api/v1/feedback", adminOnly(s.handleListFeedback))
	s.router.Handle("POST /api/v1/feedback/{id}/review", adminOnly(s.handleReviewFeedback))

	// Document endpoints; ownership is checked by the document service
	s.router.Handle("GET /api/v1/documents", authed(s.handleListDocuments))
	s.router.Handle("POST /api/v1/documents", uploader(s.handleCreateDocument))
	s.router.Handle("GET /api/v1/documents/{id}", authed(s.handleGetDocument))
	s.router.Handle("PUT /api/v1/documents/{id}/approval", authed(s.handleSetApproval))
	s.router.Handle("GET /api/v1/documents/{id}/revisions", authed(s.handleListRevisions))
	s.router.Handle("POST /api/v1/documents/{id}/revisions", uploader(s.handleUploadRevision))

	// Revision endpoints
	s.router.Handle("GET /api/v1/revisions/{id}", authed(s.handleGetRevision))
	s.router.Handle("GET /api/v1/revisions/{id}/chunks", authed(s.handleListChunks))
	s.router.Handle("POST /api/v1/revisions/{id}/reprocess", authed(s.handleReprocess))
}

// Handler returns the fully wrapped handler, as served by Start.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", s.httpServer.Addr, "version", s.version)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
