// Package api provides the HTTP API for observing and seeding a growth scene.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/talgya/widmanstatten/internal/engine"
	"github.com/talgya/widmanstatten/internal/persistence"
	"github.com/talgya/widmanstatten/internal/placement"
)

const maxSSEConns = 4

// Server serves the scene state over HTTP.
type Server struct {
	Sim      *engine.Simulation
	Eng      *engine.Engine
	Gen      *placement.Generator
	DB       *persistence.DB
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.
	RelayKey string // Bearer token for SSE stream endpoint. Empty = streaming disabled.

	CORSOrigins  []string
	InsertRate   int
	InsertWindow time.Duration

	// Active SSE connection count (atomic).
	sseConns int32

	httpServer *http.Server
}

// Handler builds the router. Exposed for tests.
func (s *Server) Handler() (http.Handler, error) {
	schema, err := newValidator(insertSchema)
	if err != nil {
		return nil, err
	}
	rate, window := s.InsertRate, s.InsertWindow
	if rate <= 0 {
		rate = 30
	}
	if window <= 0 {
		window = time.Minute
	}
	insertLimiter := NewRateLimiter(rate, window)

	r := mux.NewRouter()
	v1 := r.PathPrefix("/api/v1").Subrouter()

	// Public endpoints (GET, read-only).
	v1.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	v1.HandleFunc("/rays", s.handleRays).Methods(http.MethodGet)
	v1.HandleFunc("/ray/{id}", s.handleRay).Methods(http.MethodGet)
	v1.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)
	v1.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	v1.HandleFunc("/speed", s.handleSpeed).Methods(http.MethodGet)

	// SSE streaming endpoint (GET, relay bearer token).
	v1.HandleFunc("/stream", s.handleStream).Methods(http.MethodGet)

	// Admin endpoints (POST, require bearer token).
	v1.HandleFunc("/rays", s.adminOnly(RateLimitMiddleware(insertLimiter, s.handleInsert(schema)))).Methods(http.MethodPost)
	v1.HandleFunc("/speed", s.adminOnly(s.handleSpeed)).Methods(http.MethodPost)
	v1.HandleFunc("/snapshot", s.adminOnly(s.handleSnapshot)).Methods(http.MethodPost)

	return corsMiddleware(s.CORSOrigins, r), nil
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}

	addr := fmt.Sprintf(":%d", s.Port)
	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "relay_auth", s.RelayKey != "")

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	return nil
}

// Shutdown stops the HTTP server, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Localhost dev servers are always allowed.
func corsMiddleware(origins []string, next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	for _, origin := range origins {
		allowedOrigins[origin] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, data any) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		slog.Debug("write response", "error", err)
	}
}
