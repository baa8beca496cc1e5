// Package api provides the read-only HTTP query interface over the telemetry
// store, plus an optional operator command endpoint behind a shared secret.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/aliafifi710/production-dashboard/internal/command"
	"github.com/aliafifi710/production-dashboard/internal/store"
)

// Server serves the query API over HTTP.
type Server struct {
	httpServer *http.Server
	store      *store.Store
	commands   *command.Dispatcher
	token      string
	refresh    time.Duration
}

// Options carries the optional pieces of the server.
type Options struct {
	// Metrics, when set, is mounted at /metrics.
	Metrics http.Handler

	// Commands plus a non-empty Token enable POST /api/command. The token
	// is a static shared secret checked per request; without it the API
	// stays strictly read-only.
	Commands *command.Dispatcher
	Token    string

	// Refresh is the push interval for /api/live. Zero defaults to 1s.
	Refresh time.Duration
}

// New creates a Server that reads state from the given store.
func New(addr string, st *store.Store, opts Options) *Server {
	if opts.Refresh <= 0 {
		opts.Refresh = time.Second
	}
	s := &Server{
		store:    st,
		commands: opts.Commands,
		token:    opts.Token,
		refresh:  opts.Refresh,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/sensors", s.handleSensors)
	mux.HandleFunc("/api/alarms", s.handleAlarms)
	mux.HandleFunc("/api/live", s.handleLive)
	if opts.Metrics != nil {
		mux.Handle("/metrics", opts.Metrics)
	}
	if s.commands != nil && s.token != "" {
		mux.HandleFunc("/api/command", s.handleCommand)
	}

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleSensors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, sensorsJSON(s.store.SnapshotSensors()))
}

func (s *Server) handleAlarms(w http.ResponseWriter, r *http.Request) {
	limit := 200
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	records, total := s.store.SnapshotAlarms(limit)
	writeJSON(w, alarmsJSON(records, total))
}

// commandRequest is the POST /api/command body.
type commandRequest struct {
	Cmd     string         `json:"cmd"`
	Payload map[string]any `json:"payload,omitempty"`
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if r.Header.Get("X-Command-Token") != s.token {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	switch err := s.commands.Issue(req.Cmd, req.Payload); {
	case err == nil:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"result": "queued"})
	case errors.Is(err, command.ErrNotConnected):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, command.ErrUnknownCommand):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}
