package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"

	"github.com/talgya/widmanstatten/internal/engine"
	"github.com/talgya/widmanstatten/internal/resolve"
	"github.com/talgya/widmanstatten/internal/scene"
)

// maxBodyBytes caps POST bodies.
const maxBodyBytes = 1 << 16

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request, key string) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == key
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no CRYSTALSIM_ADMIN_KEY set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r, s.AdminKey) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	tick := s.Sim.CurrentTick()
	stats := s.Sim.Stats()
	b := s.Sim.Bounds()

	status := map[string]any{
		"name":          "Widmanstätten",
		"tick":          tick,
		"sim_time":      engine.SimTime(tick, s.Eng.Interval),
		"speed":         s.Eng.Speed(),
		"running":       s.Eng.Running(),
		"settled":       stats.Growing == 0,
		"rays":          stats.Rays,
		"growing":       stats.Growing,
		"bounded_sides": stats.BoundedSides,
		"stopped_sides": stats.StoppedSides,
		"inserted":      stats.Inserted,
		"total_length":  humanize.FormatFloat("#,###.#", stats.TotalLength),
		"scene":         b,
		"diagonal":      b.Diagonal(),
	}
	writeJSON(w, status)
}

func (s *Server) handleRays(w http.ResponseWriter, r *http.Request) {
	rays := s.Sim.Snapshot()
	if r.URL.Query().Get("growing") == "true" {
		growing := rays[:0]
		for _, ray := range rays {
			if ray.Growing() {
				growing = append(growing, ray)
			}
		}
		rays = growing
	}
	writeJSON(w, rays)
}

type rayDetail struct {
	scene.Ray
	Corners [4]scene.Point `json:"corners"`
	Events  []engine.Event `json:"events"`
}

func (s *Server) handleRay(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ray, ok := s.Sim.Ray(id)
	if !ok {
		http.Error(w, "ray not found", http.StatusNotFound)
		return
	}

	var events []engine.Event
	for _, e := range s.Sim.RecentEvents(engine.MaxEvents) {
		if e.RayID == id {
			events = append(events, e)
		}
	}
	writeJSON(w, rayDetail{Ray: ray, Corners: ray.Corners(), Events: events})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	events := s.Sim.RecentEvents(engine.MaxEvents)

	// Optional category filter.
	if category := r.URL.Query().Get("category"); category != "" {
		var filtered []engine.Event
		for _, e := range events {
			if e.Category == category {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}

	start := 0
	if len(events) > limit {
		start = len(events) - limit
	}
	writeJSON(w, events[start:])
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Stats())
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 1000 {
			http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
			return
		}
		s.Eng.SetSpeed(req.Speed)
		slog.Info("speed changed", "speed", req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

// insertRequest is a pointer-inserted ray. Omitted attributes come from the
// placement generator at (X, Y).
type insertRequest struct {
	X           float64  `json:"x"`
	Y           float64  `json:"y"`
	Orientation *float64 `json:"orientation"`
	Speed       *float64 `json:"speed"`
	Width       *float64 `json:"width"`
}

func (s *Server) handleInsert(schema *validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			http.Error(w, "read body", http.StatusBadRequest)
			return
		}
		var doc any
		if err := json.Unmarshal(body, &doc); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := schema.Validate(doc); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		var req insertRequest
		if err := json.Unmarshal(body, &req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		spec := s.Gen.At(scene.Point{X: req.X, Y: req.Y})
		if req.Orientation != nil {
			spec.Orientation = *req.Orientation
		}
		if req.Speed != nil {
			spec.Speed = *req.Speed
		}
		if req.Width != nil {
			spec.Width = *req.Width
		}

		ray, err := s.Sim.Insert(spec)
		switch {
		case err == nil:
		case errors.Is(err, resolve.ErrCycle):
			slog.Error("insertion hit a blocking cycle", "error", err)
			http.Error(w, err.Error(), http.StatusConflict)
			return
		case errors.Is(err, scene.ErrInvalidSpeed),
			errors.Is(err, scene.ErrInvalidOrientation),
			errors.Is(err, scene.ErrInvalidCenter),
			errors.Is(err, scene.ErrInvalidWidth):
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		default:
			slog.Error("insertion failed", "error", err)
			http.Error(w, "insertion failed", http.StatusInternalServerError)
			return
		}

		slog.Info("ray inserted", "ray", ray.ID, "limit_pos", ray.LimitPos, "limit_neg", ray.LimitNeg)
		writeJSONStatus(w, http.StatusCreated, ray)
	}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	if err := s.DB.SaveScene(s.Sim); err != nil {
		slog.Error("snapshot save failed", "error", err)
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"tick":    s.Sim.CurrentTick(),
		"message": "snapshot saved",
	})
}
