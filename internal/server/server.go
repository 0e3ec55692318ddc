// Package server provides the HTTP API for yomitori.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/yomitori/internal/config"
	"github.com/hyperjump/yomitori/internal/export"
	"github.com/hyperjump/yomitori/internal/models"
	"github.com/hyperjump/yomitori/internal/ocr"
	"github.com/hyperjump/yomitori/internal/storage"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// Extractor runs one document through the intake pipeline.
type Extractor interface {
	Extract(ctx context.Context, req models.ExtractionRequest) (*models.ExtractionResult, error)
	Capability() ocr.Capability
}

// Server is the HTTP server for the yomitori API.
type Server struct {
	extractor Extractor
	storage   storage.Storage
	exporter  *export.Service
	config    *config.ServerConfig
	logger    *zap.Logger
	server    *http.Server
	// dbSize reports the on-disk database size for /api/v1/status; may be nil.
	dbSize func() (int64, error)
}

// NewServer creates a server with the given dependencies.
func NewServer(
	extractor Extractor,
	store storage.Storage,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		extractor: extractor,
		storage:   store,
		exporter:  export.NewService(store, logger),
		config:    cfg,
		logger:    logger,
	}
	if sized, ok := store.(interface{ SizeBytes() (int64, error) }); ok {
		s.dbSize = sized.SizeBytes
	}
	return s
}

// Handler returns the router with all middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(s.corsHandler().Handler)
	r.Use(s.activityLog)

	r.Post("/extract/patient-info", s.handleExtract)
	r.Get("/activity-logs", s.handleActivityLogs)
	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/extract", s.handleExtract)
		r.Get("/extractions", s.handleListExtractions)
		r.Get("/extractions/{id}", s.handleGetExtraction)
		r.With(middleware.Compress(5)).Get("/export.xlsx", s.handleExport)
		r.Get("/status", s.handleStatus)
	})
	return r
}

func (s *Server) corsHandler() *cors.Cors {
	origins := s.config.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
