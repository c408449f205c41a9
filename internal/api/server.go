package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/resumer/internal/config"
	"github.com/dgallion1/resumer/internal/export"
	"github.com/dgallion1/resumer/internal/llm"
	"github.com/dgallion1/resumer/internal/pipeline"
)

// Deps are the components the HTTP handlers drive.
type Deps struct {
	Processor    pipeline.DocumentProcessor
	Orchestrator *pipeline.Orchestrator // nil disables async processing
	LLM          *llm.Service
	Files        *export.Store
	Retry        pipeline.RetryPolicy
	Version      string
}

// Server is the HTTP API server for resumer.
type Server struct {
	router  chi.Router
	deps    Deps
	log     *slog.Logger
	cfg     config.Config
	started time.Time
}

// NewServer creates and configures the HTTP server.
func NewServer(deps Deps, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		deps:    deps,
		log:     log,
		cfg:     cfg,
		started: time.Now(),
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

	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Post("/api/process", s.handleProcess)
		r.Get("/api/process/{jobID}/status", s.handleProcessStatus)
		r.Post("/api/summarize", s.handleSummarize)

		r.Get("/api/files", s.handleListFiles)
		r.Get("/api/files/download/{filename}", s.handleDownload)

		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":         "healthy",
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"version":        s.deps.Version,
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
	}
	if s.deps.Orchestrator != nil {
		body["queue_depth"] = s.deps.Orchestrator.QueueDepth()
		body["jobs_tracked"] = s.deps.Orchestrator.JobCount()
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
