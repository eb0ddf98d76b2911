// Package api serves the tracker over a JSON HTTP API.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/goodtune/daybook/internal/labels"
	"github.com/goodtune/daybook/internal/tracker"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// Server is the API HTTP server
type Server struct {
	tracker  *tracker.Tracker
	labels   *labels.Index
	router   *mux.Router
	server   *http.Server
	listener net.Listener // Optional pre-created listener (for systemd socket activation)
	logger   zerolog.Logger
}

// NewServer creates a new API server listening on addr.
func NewServer(addr string, t *tracker.Tracker, idx *labels.Index, logger zerolog.Logger) *Server {
	s := &Server{
		tracker: t,
		labels:  idx,
		router:  mux.NewRouter(),
		logger:  logger.With().Str("component", "api").Logger(),
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Use(LoggingMiddleware(s.logger))

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/days/{date}", s.handleGetDay).Methods("GET")
	api.HandleFunc("/days/{date}/segments", s.handleAddSegment).Methods("POST")
	api.HandleFunc("/days/{date}/segments/{id}", s.handleEditSegment).Methods("PATCH")
	api.HandleFunc("/days/{date}/segments/{id}", s.handleDeleteSegment).Methods("DELETE")
	api.HandleFunc("/days/{date}/close", s.handleCloseDay).Methods("POST")
	api.HandleFunc("/days/{date}/close", s.handleReopenDay).Methods("DELETE")
	api.HandleFunc("/days/{date}/export", s.handleExportDay).Methods("GET")

	api.HandleFunc("/activity", s.handleGetActivity).Methods("GET")
	api.HandleFunc("/activity/start", s.handleStartActivity).Methods("POST")
	api.HandleFunc("/activity/stop", s.handleStopActivity).Methods("POST")

	api.HandleFunc("/labels", s.handleLabels).Methods("GET")
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Start starts the API server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting API server")
	go func() {
		var err error
		if s.listener != nil {
			s.logger.Debug().Msg("Using systemd socket-activated API listener")
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("API server error")
		}
	}()
	return nil
}

// Stop gracefully stops the API server.
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping API server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("api server shutdown: %w", err)
	}

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"date":   s.tracker.Today(),
	})
}
