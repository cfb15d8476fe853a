// Package server provides the HTTP server for footfit.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/footfit/internal/scene"
	"github.com/ayusman/footfit/internal/server/api"
	"github.com/ayusman/footfit/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	Session   api.Controller
	Model     *scene.Model
}

// Server represents the HTTP server for the footfit application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	// Live session endpoints need a session
	if s.config.Session != nil {
		s.mux.Handle("/api/session", api.NewSessionHandler(s.config.Session))
		s.mux.Handle("/api/capture", api.NewCaptureHandler(s.config.Session))
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Session))
		s.mux.Handle("/api/status/ws", NewStatusHandler(s.config.Session))
	}

	// Session history needs a store
	if s.config.Store != nil {
		var live api.LiveSession
		if s.config.Session != nil {
			live = s.config.Session
		}
		history := api.NewHistoryHandler(s.config.Store, live)
		s.mux.Handle("/api/sessions", history)
		s.mux.Handle("/api/sessions/", history)
	}

	if s.config.Model != nil {
		s.mux.Handle("/api/object", api.NewObjectHandler(s.config.Model, s.config.Store))
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.Session != nil {
		response["active"] = s.config.Session.Active()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
