package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ctxslim/ctxslim/internal/config"
	"github.com/ctxslim/ctxslim/internal/engine"
	"github.com/ctxslim/ctxslim/internal/pipeline"
	"github.com/ctxslim/ctxslim/internal/store"
)

// Server is the HTTP API server for ctxslim.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	eng          *engine.Engine
	db           *store.Store
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, eng *engine.Engine, db *store.Store, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		eng:          eng,
		db:           db,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/analyze", s.handleAnalyze)
		r.Post("/api/analyze/file", s.handleAnalyzeFile)
		r.Post("/api/stats", s.handleStats)
		r.Post("/api/recommendations", s.handleRecommendations)

		r.Post("/api/optimize", s.handleOptimize)
		r.Get("/api/optimize/{jobID}", s.handleOptimizeStatus)

		r.Get("/api/archives", s.handleListArchives)
		r.Get("/api/archives/{archiveID}", s.handleGetArchive)
		r.Get("/api/analyses/recent", s.handleRecentAnalyses)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
