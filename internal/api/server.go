// Package api exposes the HTTP control surface: start, stop, and poll
// discovery and dispatch runs.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/skillverse/leadgen/internal/metrics"
	"github.com/skillverse/leadgen/internal/runs"
)

// DiscoverRequest carries the parameters of one discovery run.
type DiscoverRequest struct {
	Keywords          string `json:"keywords"`
	RelevanceKeywords string `json:"relevanceKeywords"`
	City              string `json:"city"`
	Country           string `json:"country"`
	Limit             int    `json:"limit"`
}

// DispatchRequest carries the parameters of one dispatch run.
type DispatchRequest struct {
	MessageTemplate string `json:"message_template"`
	Limit           int    `json:"limit"`
}

// DiscoverFunc runs discovery with the given parameters until done or ctx
// ends.
type DiscoverFunc func(ctx context.Context, run *runs.Run, req DiscoverRequest) error

// DispatchFunc runs dispatch likewise.
type DispatchFunc func(ctx context.Context, run *runs.Run, req DispatchRequest) error

// Server wires the run registry and the two engines to HTTP handlers.
type Server struct {
	router   chi.Router
	registry *runs.Registry
	discover DiscoverFunc
	dispatch DispatchFunc
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(registry *runs.Registry, discover DiscoverFunc, dispatch DispatchFunc, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		registry: registry,
		discover: discover,
		dispatch: dispatch,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/scrape", func(r chi.Router) {
		r.Post("/start", s.startScrape)
		r.Post("/stop", s.stop(runs.KindDiscover))
		r.Get("/status", s.status(runs.KindDiscover))
	})
	r.Route("/api/whatsapp", func(r chi.Router) {
		r.Post("/start", s.startWhatsApp)
		r.Post("/stop", s.stop(runs.KindDispatch))
		r.Get("/status", s.status(runs.KindDispatch))
	})

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) startScrape(w http.ResponseWriter, r *http.Request) {
	var req DiscoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	run, err := s.registry.Start(context.Background(), runs.KindDiscover, func(ctx context.Context, run *runs.Run) error {
		return s.discover(ctx, run, req)
	})
	if err != nil {
		s.startError(w, err)
		return
	}
	s.logger.Info("discovery run started", zap.String("run_id", run.ID))
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "started",
		"run_id": run.ID,
	})
}

func (s *Server) startWhatsApp(w http.ResponseWriter, r *http.Request) {
	var req DispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	run, err := s.registry.Start(context.Background(), runs.KindDispatch, func(ctx context.Context, run *runs.Run) error {
		return s.dispatch(ctx, run, req)
	})
	if err != nil {
		s.startError(w, err)
		return
	}
	s.logger.Info("dispatch run started", zap.String("run_id", run.ID))
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "started",
		"run_id": run.ID,
	})
}

func (s *Server) startError(w http.ResponseWriter, err error) {
	if errors.Is(err, runs.ErrBusy) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "a run of this kind is already active"})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func (s *Server) stop(kind runs.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if s.registry.Stop(kind) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "stopping"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "idle"})
	}
}

func (s *Server) status(kind runs.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		running, lines := s.registry.Status(kind)
		state := "idle"
		if running {
			state = "running"
		}
		if lines == nil {
			lines = []string{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status": state,
			"logs":   lines,
		})
	}
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
