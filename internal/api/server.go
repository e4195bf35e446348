// internal/api/server.go

// Package api serves the control surface of the engine over HTTP: queueing
// traversals, stopping workers, reading task and worker state, listing
// stored records, health and metrics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/primedigitaltech/azon-seeker/internal/config"
	"github.com/primedigitaltech/azon-seeker/internal/engine"
	"github.com/primedigitaltech/azon-seeker/internal/utils"
)

// Server is the control API of one engine
type Server struct {
	engine *engine.Engine
	config config.APIConfig
	logger utils.Logger
	router *mux.Router
	http   *http.Server
}

// NewServer builds the routes over e
func NewServer(e *engine.Engine) *Server {
	cfg := e.Config.API
	s := &Server{
		engine: e,
		config: cfg,
		logger: e.Logger.WithField("component", "api"),
	}
	s.router = s.routes()
	s.http = &http.Server{
		Addr:         cfg.Listen,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(loggingMiddleware(s.logger))

	r.Handle("/health", s.engine.Health.HealthHandler()).Methods("GET")
	if s.engine.Config.Metrics.Enabled {
		r.Handle(s.engine.Config.Metrics.Path, s.engine.Metrics.Handler()).Methods("GET")
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	if s.config.Token != "" {
		api.Use(authMiddleware(s.config.Token))
	}
	if s.config.RateLimit > 0 {
		api.Use(rateLimitMiddleware(s.config.RateLimit, s.config.Burst))
	}

	api.HandleFunc("/workers", s.listWorkers).Methods("GET")
	api.HandleFunc("/tasks", s.listTasks).Methods("GET")
	api.HandleFunc("/tasks", s.clearTasks).Methods("DELETE")
	api.HandleFunc("/commit", s.commit).Methods("POST")

	api.HandleFunc("/{site}/stop", s.stopWorker).Methods("POST")
	api.HandleFunc("/{site}/{traversal:search|detail|review}", s.runJob).Methods("POST")

	api.HandleFunc("/amazon/items", s.amazonItems).Methods("GET")
	api.HandleFunc("/amazon/reviews", s.amazonReviews).Methods("GET")
	api.HandleFunc("/homedepot/items", s.homedepotItems).Methods("GET")
	api.HandleFunc("/homedepot/reviews", s.homedepotReviews).Methods("GET")
	api.HandleFunc("/lowes/items", s.lowesItems).Methods("GET")

	return r
}

// ListenAndServe serves until ctx is done, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Listen, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("control api listening on %s", ln.Addr())
		errCh <- s.http.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.ShutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down control api")
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{"error": msg})
}

// writeFailure maps err to a status by its code
func writeFailure(w http.ResponseWriter, err error, extra map[string]interface{}) {
	code := utils.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case utils.ErrCodeInvalidInput:
		status = http.StatusBadRequest
	case utils.ErrCodeWorkerBusy:
		status = http.StatusConflict
	case utils.ErrCodeContextCanceled:
		status = http.StatusServiceUnavailable
	}
	body := map[string]interface{}{"error": err.Error()}
	if code != "" {
		body["code"] = code
	}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, status, body)
}
