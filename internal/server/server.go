package server

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"atfcf/internal/company"
)

// Enricher augments companies with their ATFCF figure.
type Enricher interface {
	Enrich(ctx context.Context, companies []company.Company) []company.Record
}

// CacheResetter wipes cached metrics.
type CacheResetter interface {
	ClearCache()
}

// Deps are the collaborators the HTTP layer calls into.
type Deps struct {
	Enricher Enricher
	Cache    CacheResetter
	Roster   []company.Company
	Logger   *slog.Logger
}

// Server manages the HTTP server and routes
type Server struct {
	addr     string
	enricher Enricher
	cache    CacheResetter
	roster   []company.Company
	logger   *slog.Logger

	pages    map[string]*template.Template
	calcHTML template.HTML

	router *http.ServeMux
	server *http.Server
}

// New creates a new HTTP server listening on addr
func New(addr string, deps Deps) (*Server, error) {
	if deps.Enricher == nil || deps.Cache == nil {
		return nil, fmt.Errorf("server requires an enricher and a cache")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	pages, err := loadPages("home", "calc", "sp500")
	if err != nil {
		return nil, err
	}

	calcHTML, err := renderMarkdown("calc.md")
	if err != nil {
		return nil, err
	}

	s := &Server{
		addr:     addr,
		enricher: deps.Enricher,
		cache:    deps.Cache,
		roster:   deps.Roster,
		logger:   logger,
		pages:    pages,
		calcHTML: calcHTML,
	}

	s.router = s.setupRoutes()

	// The roster page waits on a full enrichment run, so writes get a generous budget.
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.withMiddleware(s.router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.logger.Info("HTTP server starting", "address", s.addr)
	s.logger.Info("cache clear endpoint available", "path", "/clear-cache")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Pages
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /calc", s.handleCalc)
	mux.HandleFunc("GET /sp500", s.handleSP500)

	// Administration
	mux.HandleFunc("GET /clear-cache", s.handleClearCache)
	mux.HandleFunc("POST /clear-cache", s.handleClearCache)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	// API
	mux.HandleFunc("POST /api/enrich", s.handleEnrich)

	return mux
}
