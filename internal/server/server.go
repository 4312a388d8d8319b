// Package server provides the HTTP server for the Fivesense emergency
// alert daemon.
package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/anwesha/fivesense/internal/capture"
	"github.com/anwesha/fivesense/internal/relay"
	"github.com/anwesha/fivesense/internal/server/api"
	"github.com/anwesha/fivesense/internal/store"
	"github.com/anwesha/fivesense/internal/trigger"
)

// Config holds the server configuration.
type Config struct {
	StaticDir  string
	UploadsDir string
	Store      *store.Store
	Relay      *relay.Service
	Controller *trigger.Controller
	Camera     capture.Camera
}

// Server is the HTTP surface of the daemon: alert submission, history,
// settings, uploaded evidence and the live status feed.
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

	if s.config.Relay != nil {
		s.mux.Handle("/api/send-alert", api.NewAlertHandler(s.config.Relay))
	}

	if s.config.Store != nil {
		s.mux.Handle("/api/history", api.NewHistoryHandler(s.config.Store))
		s.mux.Handle("/api/settings", api.NewSettingsHandler(s.config.Store))
	}

	if s.config.Controller != nil {
		s.mux.Handle("/api/status", NewStatusHandler(s.config.Controller))
		s.mux.HandleFunc("/api/trigger", s.handleTrigger)
	}

	if s.config.Camera != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Camera))
	}

	if s.config.UploadsDir != "" {
		s.mux.Handle("/uploads/", http.StripPrefix("/uploads/", s.uploadsHandler()))
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// uploadsHandler serves stored evidence clips. Directory listings are
// refused; a missing clip is a plain 404 (the relay deletes artifacts
// after fan-out, so stale history links are expected).
func (s *Server) uploadsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := filepath.Base(r.URL.Path)
		if name == "." || name == "/" {
			http.NotFound(w, r)
			return
		}
		path := filepath.Join(s.config.UploadsDir, name)
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, path)
	})
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status": "ok",
		"uptime": uptime.String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// handleTrigger handles POST requests to /api/trigger, the manual panic
// button of the web UI.
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	accepted := s.config.Controller.Trigger(trigger.SourceManual)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"accepted": accepted})
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
