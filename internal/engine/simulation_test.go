package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/widmanstatten/internal/scene"
)

const (
	horizontal = 0.0
	vertical   = math.Pi / 2
)

func newRegistry(w, h float64) *scene.Registry {
	return scene.NewRegistry(scene.Bounds{Width: w, Height: h}, scene.OrientationSet{horizontal, vertical}, 0)
}

func spec(x, y, angle, speed float64) scene.Spec {
	return scene.Spec{Center: scene.Point{X: x, Y: y}, Orientation: angle, Speed: speed, Width: 4}
}

func buildSim(t *testing.T, reg *scene.Registry, specs ...scene.Spec) *Simulation {
	t.Helper()
	rays := make([]*scene.Ray, 0, len(specs))
	for _, s := range specs {
		r, err := reg.NewRay(s)
		require.NoError(t, err)
		rays = append(rays, r)
	}
	sim, err := NewSimulation(reg, rays)
	require.NoError(t, err)
	return sim
}

func TestNewSimulationResolvesBatch(t *testing.T) {
	reg := newRegistry(600, 800)
	sim := buildSim(t, reg,
		spec(100, 100, horizontal, 1),
		spec(130, 110, vertical, 1),
	)

	rays := sim.Snapshot()
	require.Len(t, rays, 2)
	assert.InDelta(t, 30, rays[0].LimitPos, 1e-6)
	assert.Equal(t, 1000.0, rays[0].LimitNeg)
	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, 1, sim.Stats().BoundedSides)
	assert.Equal(t, 2, sim.Stats().Growing)
}

func TestGrowthStopsAtLimit(t *testing.T) {
	reg := newRegistry(600, 800)
	sim := buildSim(t, reg,
		spec(100, 100, horizontal, 1),
		spec(130, 110, vertical, 1),
	)
	id := sim.Snapshot()[0].ID

	for tick := uint64(1); tick <= 29; tick++ {
		sim.TickGrowth(tick)
	}
	r, ok := sim.Ray(id)
	require.True(t, ok)
	assert.True(t, r.GrowingPos)
	assert.InDelta(t, 29, r.LengthPos, 1e-9)

	sim.TickGrowth(30)
	sim.TickGrowth(31)
	r, _ = sim.Ray(id)
	assert.False(t, r.GrowingPos)
	assert.True(t, r.GrowingNeg)
	assert.InDelta(t, 30, r.LengthPos, 1e-6)
	assert.InDelta(t, 31, r.LengthNeg, 1e-9)
	assert.Equal(t, uint64(31), sim.CurrentTick())

	var stopped []Event
	for _, e := range sim.RecentEvents(10) {
		if e.Category == CategoryStopped {
			stopped = append(stopped, e)
		}
	}
	require.Len(t, stopped, 1)
	assert.Equal(t, id, stopped[0].RayID)
}

func TestGrowthCapsAtDiagonalAndSettles(t *testing.T) {
	reg := newRegistry(30, 40) // diagonal 50
	sim := buildSim(t, reg, spec(15, 20, horizontal, 10))

	for tick := uint64(1); tick <= 4; tick++ {
		sim.TickGrowth(tick)
		assert.False(t, sim.Settled(), "tick %d", tick)
	}
	sim.TickGrowth(5)
	assert.True(t, sim.Settled())

	r := sim.Snapshot()[0]
	assert.Equal(t, 50.0, r.LengthPos)
	assert.Equal(t, 50.0, r.LengthNeg)

	events := sim.RecentEvents(10)
	require.NotEmpty(t, events)
	assert.Equal(t, CategorySettled, events[len(events)-1].Category)

	// Further ticks change nothing and do not re-announce.
	sim.TickGrowth(6)
	assert.Len(t, sim.RecentEvents(10), len(events))
}

func TestGrowNeverShrinks(t *testing.T) {
	length, growing := grow(5, 1, 2)
	assert.Equal(t, 5.0, length)
	assert.False(t, growing)

	length, growing = grow(1, 1, 2)
	assert.Equal(t, 2.0, length)
	assert.False(t, growing)

	length, growing = grow(0, 1, 2)
	assert.Equal(t, 1.0, length)
	assert.True(t, growing)
}

func TestInsertResolvesOnlyNewRay(t *testing.T) {
	reg := newRegistry(600, 800)
	sim := buildSim(t, reg, spec(100, 100, horizontal, 4))
	before := sim.Snapshot()[0]

	_, ch := sim.Subscribe()

	// The vertical ray needs 10 steps to reach y=100; the fast horizontal one
	// crosses x=130 after 7.5.
	r, err := sim.Insert(spec(130, 110, vertical, 1))
	require.NoError(t, err)
	assert.InDelta(t, 10, r.LimitPos, 1e-6)
	assert.Equal(t, 1000.0, r.LimitNeg)

	after, ok := sim.Ray(before.ID)
	require.True(t, ok)
	assert.Equal(t, before.LimitPos, after.LimitPos, "existing limits are not revisited")
	assert.Equal(t, 2, sim.Stats().Rays)
	assert.Equal(t, 1, sim.Stats().Inserted)

	select {
	case e := <-ch:
		assert.Equal(t, CategoryInserted, e.Category)
		assert.Equal(t, r.ID, e.RayID)
	default:
		t.Fatal("subscriber did not receive the insertion")
	}
}

func TestInsertRejectsInvalidSpec(t *testing.T) {
	reg := newRegistry(600, 800)
	sim := buildSim(t, reg, spec(100, 100, horizontal, 1))

	_, err := sim.Insert(spec(100, 100, 0.3, 1))
	assert.ErrorIs(t, err, scene.ErrInvalidOrientation)

	_, err = sim.Insert(spec(100, 100, horizontal, 0))
	assert.ErrorIs(t, err, scene.ErrInvalidSpeed)

	_, err = sim.Insert(spec(-5, 100, horizontal, 1))
	assert.ErrorIs(t, err, scene.ErrInvalidCenter)

	assert.Equal(t, 1, reg.Len())
	assert.Empty(t, sim.RecentEvents(10))
}

func TestRestoreKeepsLoadedLimits(t *testing.T) {
	reg := newRegistry(600, 800)
	a, err := reg.Restore("a", spec(100, 100, horizontal, 1))
	require.NoError(t, err)
	a.LimitPos, a.LengthPos = 42, 42
	a.GrowingPos = false

	sim := RestoreSimulation(reg, []*scene.Ray{a}, 77)
	assert.Equal(t, uint64(77), sim.CurrentTick())

	r, ok := sim.Ray("a")
	require.True(t, ok)
	assert.Equal(t, 42.0, r.LimitPos)
	assert.False(t, r.GrowingPos)
	assert.Equal(t, 1, sim.Stats().StoppedSides)

	// The rebuilt matrix accepts insertions.
	_, err = sim.Insert(spec(130, 110, vertical, 1))
	require.NoError(t, err)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	sim := buildSim(t, newRegistry(100, 100))
	id, ch := sim.Subscribe()
	sim.Unsubscribe(id)
	_, open := <-ch
	assert.False(t, open)
	sim.Unsubscribe(id)
}

func TestEventHistoryIsCapped(t *testing.T) {
	sim := buildSim(t, newRegistry(100, 100))
	old := make([]Event, MaxEvents)
	sim.Preload(old)
	sim.mu.Lock()
	sim.emit(Event{Tick: 9, Category: CategoryInserted})
	sim.mu.Unlock()

	events := sim.RecentEvents(2 * MaxEvents)
	assert.Len(t, events, MaxEvents)
	assert.Equal(t, uint64(9), events[len(events)-1].Tick)
}
