// Package api provides the HTTP API for the state-to-graph engine.
// It accepts raw Terraform state documents and returns the parsed
// architecture or its summary; each request runs its own pipeline pass.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"terraform-archviz/internal/engine"
	"terraform-archviz/internal/history"
	"terraform-archviz/internal/summary"
	archerrors "terraform-archviz/pkg/errors"
	"terraform-archviz/pkg/platform"
)

// Config holds server configuration.
type Config struct {
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestSize int64
}

// DefaultConfig returns server configuration from the ARCHVIZ_*
// environment variables, falling back to defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:           platform.GetEnvInt("ARCHVIZ_PORT", 8080),
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   60 * time.Second,
		MaxRequestSize: int64(platform.GetEnvInt("ARCHVIZ_MAX_REQUEST_SIZE", 20*1024*1024)),
	}
}

// Server is the HTTP API server.
type Server struct {
	engine     *engine.Engine
	store      *history.Store // optional; nil disables snapshot recording
	config     *Config
	httpServer *http.Server
}

// NewServer creates the API server. The history store may be nil.
func NewServer(eng *engine.Engine, store *history.Store, config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	return &Server{engine: eng, store: store, config: config}
}

// Router builds the chi router with all routes registered.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Post("/api/v1/parse", s.handleParse)
	r.Post("/api/v1/summary", s.handleSummary)
	r.Get("/api/v1/snapshots", s.handleSnapshots)

	return r
}

// Start runs the server until it fails or is shut down.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.Router(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	log.Info().Int("port", s.config.Port).Msg("Starting archviz API server")
	return s.httpServer.ListenAndServe()
}

// StartWithGracefulShutdown runs the server and drains it on SIGINT or
// SIGTERM.
func (s *Server) StartWithGracefulShutdown() error {
	errChan := make(chan error, 1)
	go func() {
		if err := s.Start(); !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case <-quit:
		log.Info().Msg("Shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(ctx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "archviz",
	})
}

// handleParse accepts a raw state document and returns the full parsed
// architecture. When a history store is configured the run is recorded.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	data, err := s.readBody(w, r)
	if err != nil {
		return
	}

	a, err := s.engine.Parse(data)
	if err != nil {
		s.parseError(w, err)
		return
	}

	if s.store != nil {
		sum := summary.Build(a)
		if _, err := s.store.Record(r.Context(), "api", a, sum); err != nil {
			log.Warn().Err(err).Msg("Failed to record parse snapshot")
		}
	}

	s.jsonResponse(w, http.StatusOK, a)
}

// handleSummary accepts a raw state document and returns the resource
// summary handed to analysis collaborators.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	data, err := s.readBody(w, r)
	if err != nil {
		return
	}

	a, err := s.engine.Parse(data)
	if err != nil {
		s.parseError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, summary.Build(a))
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.jsonError(w, http.StatusServiceUnavailable, "history store is not configured")
		return
	}
	snaps, err := s.store.Recent(r.Context(), 50)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list parse snapshots")
		s.jsonError(w, http.StatusInternalServerError, "failed to list snapshots")
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"snapshots": snaps})
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxRequestSize)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.jsonError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return nil, err
		}
		s.jsonError(w, http.StatusBadRequest, "failed to read request body")
		return nil, err
	}
	if len(data) == 0 {
		s.jsonError(w, http.StatusBadRequest, "request body is empty")
		return nil, errors.New("empty body")
	}
	return data, nil
}

// parseError maps the parse error taxonomy to HTTP statuses: bad input
// is the client's problem, a consistency violation is ours.
func (s *Server) parseError(w http.ResponseWriter, err error) {
	var (
		malformed   *archerrors.MalformedInputError
		duplicate   *archerrors.DuplicateResourceError
		unsupported *archerrors.UnsupportedSchemaVersionError
	)
	switch {
	case errors.As(err, &malformed), errors.As(err, &duplicate):
		s.jsonError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &unsupported):
		s.jsonError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		log.Error().Err(err).Msg("Parse pipeline failed")
		s.jsonError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (s *Server) jsonError(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}
