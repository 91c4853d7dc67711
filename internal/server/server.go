// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes hypotheses, validation runs, and their progress
// over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/pdiddy/hypothesis-engine/internal/progress"
	"github.com/pdiddy/hypothesis-engine/internal/store"
	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

// Store is the persistence the HTTP surface needs.
type Store interface {
	CreateHypothesis(ctx context.Context, h *types.Hypothesis) error
	GetHypothesis(ctx context.Context, id string) (types.Hypothesis, error)
	UpdateContent(ctx context.Context, id, content string) (types.Hypothesis, error)
	ListHypotheses(ctx context.Context, userID string, limit int) ([]types.Hypothesis, error)
	ListResults(ctx context.Context, hypothesisID string) ([]types.ValidationResult, error)
}

// Submitter schedules a validation run. worker.Executor satisfies it.
type Submitter interface {
	Submit(id string) error
}

// Server is the HTTP surface.
type Server struct {
	store      Store
	bus        progress.Bus
	runner     Submitter
	gatherer   prometheus.Gatherer
	log        zerolog.Logger
	httpServer *http.Server

	// Heartbeat is the interval between SSE keep-alive comments.
	Heartbeat time.Duration
}

// New creates a server listening on cfg.Addr. A nil gatherer disables
// /metrics.
func New(cfg types.ServerConfig, st Store, bus progress.Bus, runner Submitter, gatherer prometheus.Gatherer, log zerolog.Logger) *Server {
	s := &Server{
		store:     st,
		bus:       bus,
		runner:    runner,
		gatherer:  gatherer,
		log:       log,
		Heartbeat: 15 * time.Second,
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("POST /api/v1/hypotheses", s.createHypothesis)
	mux.HandleFunc("GET /api/v1/hypotheses", s.listHypotheses)
	mux.HandleFunc("GET /api/v1/hypotheses/{id}", s.getHypothesis)
	mux.HandleFunc("PUT /api/v1/hypotheses/{id}", s.updateHypothesis)
	mux.HandleFunc("POST /api/v1/hypotheses/{id}/validate", s.validate)
	mux.HandleFunc("GET /api/v1/hypotheses/{id}/events", s.events)
	mux.HandleFunc("GET /api/v1/hypotheses/{id}/ws", s.socket)
	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("HTTP server starting")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to status codes. Storage detail is logged,
// never returned.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, types.ErrInvalidContent):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "hypothesis not found"})
	default:
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}
