// Package api exposes the enrichment pipeline over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/profile-enrich/internal/enrich"
	"github.com/sells-group/profile-enrich/internal/model"
)

// Server holds the HTTP handlers' dependencies.
type Server struct {
	service    *enrich.Service
	runner     *enrich.Runner
	batchLimit int
}

// NewServer creates the API server. batchLimit caps a single
// POST /batch/run pass when the request omits its own limit.
func NewServer(svc *enrich.Service, runner *enrich.Runner, batchLimit int) *Server {
	return &Server{service: svc, runner: runner, batchLimit: batchLimit}
}

// Router builds the chi router with middleware and all routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Post("/profiles/enrich", s.handleEnrich)
	r.Post("/targets", s.handleCreateTarget)
	r.Get("/targets", s.handleListTargets)
	r.Post("/batch/run", s.handleBatchRun)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type urlRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleEnrich(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required", "")
		return
	}

	rec, err := s.service.Enrich(r.Context(), req.URL)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleCreateTarget(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required", "")
		return
	}

	tgt, created, err := s.service.RegisterTarget(r.Context(), req.URL)
	if err != nil {
		writeFailure(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, tgt)
}

func (s *Server) handleListTargets(w http.ResponseWriter, r *http.Request) {
	status := model.TargetStatus(r.URL.Query().Get("status"))
	if status != "" && !model.ValidTargetStatus(status) {
		writeError(w, http.StatusBadRequest, "unknown status filter", "")
		return
	}

	targets, err := s.service.ListTargets(r.Context(), status, 0)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if targets == nil {
		targets = []model.Target{}
	}
	writeJSON(w, http.StatusOK, targets)
}

func (s *Server) handleBatchRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Limit int `json:"limit"`
	}
	// Body is optional; a missing or empty body means the default limit.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	limit := req.Limit
	if limit <= 0 {
		limit = s.batchLimit
	}

	// RunPass detaches from the request context: a client disconnect
	// never aborts a pass mid-flight.
	stats := s.runner.RunPass(r.Context(), limit)
	writeJSON(w, http.StatusOK, stats)
}

// writeFailure maps the enrichment failure taxonomy onto HTTP statuses.
// The three domain failures are client-correctable 400s with actionable
// messages; anything else is an opaque 500.
func writeFailure(w http.ResponseWriter, err error) {
	kind := enrich.KindOf(err)
	if kind == enrich.FailureInternal {
		zap.L().Error("internal api error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error", string(kind))
		return
	}
	writeError(w, http.StatusBadRequest, enrich.FailureMessage(err), string(kind))
}

func writeError(w http.ResponseWriter, status int, msg, kind string) {
	body := map[string]string{"error": msg}
	if kind != "" {
		body["kind"] = kind
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("encode response", zap.Error(err))
	}
}
