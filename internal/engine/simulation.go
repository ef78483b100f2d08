// Simulation ties the ray registry to the resolver and grows rays each tick.
package engine

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/widmanstatten/internal/resolve"
	"github.com/talgya/widmanstatten/internal/scene"
)

// Simulation holds the complete scene state. Every method is safe for
// concurrent use; resolution and growth are serialized behind one lock.
type Simulation struct {
	mu       sync.RWMutex
	registry *scene.Registry
	resolver *resolve.Context
	events   []Event // Recent events, trimmed to MaxEvents
	lastTick uint64
	stats    SimStats

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

// SimStats tracks aggregate scene statistics.
type SimStats struct {
	Rays         int     `json:"rays"`
	Growing      int     `json:"growing"`
	BoundedSides int     `json:"bounded_sides"`
	StoppedSides int     `json:"stopped_sides"`
	TotalLength  float64 `json:"total_length"`
	Inserted     int     `json:"inserted"`
}

// NewSimulation resolves the initial batch of rays and adopts them into reg.
// A resolution failure is fatal for the batch: reg is left empty.
func NewSimulation(reg *scene.Registry, rays []*scene.Ray) (*Simulation, error) {
	ctx := resolve.NewContext(reg.Unbounded())
	if err := ctx.Resolve(rays); err != nil {
		return nil, fmt.Errorf("initial batch: %w", err)
	}
	reg.Append(rays...)
	sim := newSimulation(reg, ctx)
	slog.Info("scene resolved",
		"rays", len(rays),
		"bounded_sides", sim.stats.BoundedSides,
		"diagonal", humanize.FormatFloat("#,###.##", reg.Unbounded()),
	)
	return sim, nil
}

// RestoreSimulation adopts rays whose limits were settled in an earlier run.
// Limits and lengths are kept as loaded; only the distance matrix is rebuilt.
func RestoreSimulation(reg *scene.Registry, rays []*scene.Ray, lastTick uint64) *Simulation {
	ctx := resolve.NewContext(reg.Unbounded())
	ctx.Restore(rays)
	reg.Append(rays...)
	sim := newSimulation(reg, ctx)
	sim.lastTick = lastTick
	return sim
}

func newSimulation(reg *scene.Registry, ctx *resolve.Context) *Simulation {
	sim := &Simulation{
		registry: reg,
		resolver: ctx,
		subs:     make(map[int]chan Event),
	}
	sim.updateStats()
	return sim
}

// CurrentTick returns the most recently processed tick number.
func (s *Simulation) CurrentTick() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastTick
}

// Bounds returns the scene rectangle.
func (s *Simulation) Bounds() scene.Bounds {
	return s.registry.Bounds
}

// TickGrowth runs every tick: each growing side extends by the ray's speed and
// stops at its limit or at the scene diagonal, whichever is shorter.
func (s *Simulation) TickGrowth(tick uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastTick = tick
	wasGrowing := s.stats.Growing > 0
	diag := s.registry.Unbounded()
	for _, r := range s.registry.Rays() {
		if r.GrowingPos {
			r.LengthPos, r.GrowingPos = grow(r.LengthPos, r.Speed, math.Min(r.LimitPos, diag))
			if !r.GrowingPos {
				s.stopped(tick, r, "positive", r.LengthPos)
			}
		}
		if r.GrowingNeg {
			r.LengthNeg, r.GrowingNeg = grow(r.LengthNeg, r.Speed, math.Min(r.LimitNeg, diag))
			if !r.GrowingNeg {
				s.stopped(tick, r, "negative", r.LengthNeg)
			}
		}
	}
	s.updateStats()

	if wasGrowing && s.stats.Growing == 0 {
		s.emit(Event{
			Tick:        tick,
			Description: fmt.Sprintf("all %d rays settled", s.stats.Rays),
			Category:    CategorySettled,
		})
	}
}

// grow extends length by speed, clamped at limit. It reports whether the side
// keeps growing. A side already at or past its limit never shrinks.
func grow(length, speed, limit float64) (float64, bool) {
	if length >= limit {
		return length, false
	}
	length += speed
	if length >= limit {
		return limit, false
	}
	return length, true
}

func (s *Simulation) stopped(tick uint64, r *scene.Ray, side string, length float64) {
	s.emit(Event{
		Tick:        tick,
		Description: fmt.Sprintf("%s stopped on the %s side at %.1f", r, side, length),
		Category:    CategoryStopped,
		RayID:       r.ID,
	})
}

// Insert validates spec, resolves the new ray's limits against the existing
// scene and appends it. On error the scene is unchanged.
func (s *Simulation) Insert(spec scene.Spec) (scene.Ray, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.registry.NewRay(spec)
	if err != nil {
		return scene.Ray{}, err
	}
	if err := s.resolver.Insert(s.registry.Rays(), r); err != nil {
		return scene.Ray{}, err
	}
	s.registry.Append(r)
	s.stats.Inserted++
	s.updateStats()

	s.emit(Event{
		Tick:        s.lastTick,
		Description: fmt.Sprintf("%s inserted, limits %.1f/%.1f", r, r.LimitPos, r.LimitNeg),
		Category:    CategoryInserted,
		RayID:       r.ID,
	})
	return *r, nil
}

// Settled reports whether no ray is growing.
func (s *Simulation) Settled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats.Growing == 0
}

// Snapshot returns copies of every ray in index order.
func (s *Simulation) Snapshot() []scene.Ray {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]scene.Ray, 0, s.registry.Len())
	for _, r := range s.registry.Rays() {
		out = append(out, *r)
	}
	return out
}

// Ray returns a copy of the ray with the given ID.
func (s *Simulation) Ray(id string) (scene.Ray, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r := s.registry.Get(id)
	if r == nil {
		return scene.Ray{}, false
	}
	return *r, true
}

// Stats returns the current aggregate statistics.
func (s *Simulation) Stats() SimStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

func (s *Simulation) updateStats() {
	st := SimStats{Inserted: s.stats.Inserted}
	unbounded := s.registry.Unbounded()
	for _, r := range s.registry.Rays() {
		st.Rays++
		if r.Growing() {
			st.Growing++
		}
		for _, side := range [2]struct {
			limit   float64
			growing bool
		}{{r.LimitPos, r.GrowingPos}, {r.LimitNeg, r.GrowingNeg}} {
			if side.limit < unbounded {
				st.BoundedSides++
			}
			if !side.growing {
				st.StoppedSides++
			}
		}
		st.TotalLength += r.LengthPos + r.LengthNeg
	}
	s.stats = st
}

// Report logs a periodic summary.
func (s *Simulation) Report(tick uint64, interval time.Duration) {
	st := s.Stats()
	slog.Info("growth report",
		"tick", tick,
		"time", SimTime(tick, interval),
		"rays", st.Rays,
		"growing", st.Growing,
		"stopped_sides", st.StoppedSides,
		"total_length", humanize.FormatFloat("#,###.#", st.TotalLength),
		"events", len(s.RecentEvents(MaxEvents)),
	)
}
