// Package webui serves the status endpoints of a scheduled pipeline.
//
// Routes:
//
//	GET  /healthz → "ok"
//	GET  /status  → last run as JSON
//	POST /run     → trigger a run (joins one already in flight)
//	GET  /metrics → Prometheus exposition, when a handler is configured
package webui

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"salesetl/internal/runner"
)

// Runner is the part of *runner.Runner the server needs.
type Runner interface {
	Run(ctx context.Context) (runner.Status, error)
	Last() runner.Status
}

// Config controls server startup.
type Config struct {
	Addr string
	// Metrics serves /metrics. Nil leaves the route out.
	Metrics http.Handler
	// RunTimeout bounds runs triggered over HTTP. Zero means no limit.
	RunTimeout time.Duration
}

// Server wraps http.Server with the status routes.
type Server struct {
	cfg    Config
	runner Runner
	router chi.Router
	srv    *http.Server
}

func NewServer(cfg Config, r Runner) *Server {
	s := &Server{cfg: cfg, runner: r}
	s.router = s.routes()
	s.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe blocks until the server stops. A clean Shutdown returns nil.
func (s *Server) ListenAndServe() error {
	log.Printf("webui: listening on %s", s.cfg.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error { return s.srv.Shutdown(ctx) }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Post("/run", s.handleRun)
	if s.cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.cfg.Metrics)
	}
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.runner.Last())
}

// handleRun runs the pipeline synchronously and reports the outcome. The
// run is detached from the request so a dropped client does not cancel it.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())
	if s.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RunTimeout)
		defer cancel()
	}
	log.Printf("webui: run requested by %s (request_id=%s)", r.RemoteAddr, middleware.GetReqID(r.Context()))
	st, err := s.runner.Run(ctx)
	code := http.StatusOK
	if err != nil {
		code = http.StatusInternalServerError
	}
	writeJSON(w, code, st)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Printf("webui: encode response: %v", err)
	}
}
