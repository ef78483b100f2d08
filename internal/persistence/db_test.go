package persistence

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/widmanstatten/internal/engine"
	"github.com/talgya/widmanstatten/internal/scene"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "scene.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newRegistry() *scene.Registry {
	return scene.NewRegistry(scene.Bounds{Width: 600, Height: 800}, scene.OrientationSet{0, math.Pi / 2}, 1)
}

func newSim(t *testing.T) *engine.Simulation {
	t.Helper()
	reg := newRegistry()
	var rays []*scene.Ray
	for _, s := range []scene.Spec{
		{Center: scene.Point{X: 100, Y: 100}, Orientation: 0, Speed: 1, Width: 6},
		{Center: scene.Point{X: 130, Y: 110}, Orientation: math.Pi / 2, Speed: 1, Width: 8},
	} {
		r, err := reg.NewRay(s)
		require.NoError(t, err)
		rays = append(rays, r)
	}
	sim, err := engine.NewSimulation(reg, rays)
	require.NoError(t, err)
	return sim
}

func TestEmptyDatabaseHasNoScene(t *testing.T) {
	db := openTemp(t)
	ok, err := db.HasScene()
	require.NoError(t, err)
	assert.False(t, ok)

	tick, err := db.LastTick()
	require.NoError(t, err)
	assert.Zero(t, tick)
}

func TestSaveAndLoadScene(t *testing.T) {
	db := openTemp(t)
	sim := newSim(t)
	for tick := uint64(1); tick <= 40; tick++ {
		sim.TickGrowth(tick)
	}
	require.NoError(t, db.SaveScene(sim))

	ok, err := db.HasScene()
	require.NoError(t, err)
	assert.True(t, ok)

	tick, err := db.LastTick()
	require.NoError(t, err)
	assert.Equal(t, uint64(40), tick)

	w, err := db.GetMeta(MetaWidth)
	require.NoError(t, err)
	assert.Equal(t, "600", w)

	loaded, err := db.LoadRays(newRegistry())
	require.NoError(t, err)
	want := sim.Snapshot()
	require.Len(t, loaded, len(want))
	for i, r := range loaded {
		assert.Equal(t, want[i].ID, r.ID)
		assert.Equal(t, want[i].Center, r.Center)
		assert.Equal(t, want[i].Speed, r.Speed)
		assert.Equal(t, want[i].Width, r.Width)
		assert.Equal(t, want[i].LengthPos, r.LengthPos)
		assert.Equal(t, want[i].LengthNeg, r.LengthNeg)
		assert.Equal(t, want[i].LimitPos, r.LimitPos)
		assert.Equal(t, want[i].LimitNeg, r.LimitNeg)
		assert.Equal(t, want[i].GrowingPos, r.GrowingPos)
		assert.Equal(t, want[i].GrowingNeg, r.GrowingNeg)
	}
	assert.False(t, loaded[0].GrowingPos, "first ray stopped at its limit")
}

func TestSaveRaysReplaces(t *testing.T) {
	db := openTemp(t)
	sim := newSim(t)
	rays := sim.Snapshot()
	require.NoError(t, db.SaveRays(rays))
	require.NoError(t, db.SaveRays(rays[:1]))

	loaded, err := db.LoadRays(newRegistry())
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, rays[0].ID, loaded[0].ID)
}

func TestLoadRaysRejectsOutOfBounds(t *testing.T) {
	db := openTemp(t)
	require.NoError(t, db.SaveRays(newSim(t).Snapshot()))

	small := scene.NewRegistry(scene.Bounds{Width: 50, Height: 50}, scene.OrientationSet{0, math.Pi / 2}, 1)
	_, err := db.LoadRays(small)
	assert.ErrorIs(t, err, scene.ErrInvalidCenter)
}

func TestRecentEventsOldestFirst(t *testing.T) {
	db := openTemp(t)
	events := []engine.Event{
		{Tick: 1, Description: "a", Category: engine.CategoryInserted, RayID: "r1"},
		{Tick: 2, Description: "b", Category: engine.CategoryStopped, RayID: "r1"},
		{Tick: 3, Description: "c", Category: engine.CategorySettled},
	}
	require.NoError(t, db.SaveEvents(events))

	got, err := db.RecentEvents(2)
	require.NoError(t, err)
	assert.Equal(t, events[1:], got)

	require.NoError(t, db.SaveEvents(events[:1]))
	got, err = db.RecentEvents(10)
	require.NoError(t, err)
	assert.Equal(t, events[:1], got)
}

func TestMetaRoundTrip(t *testing.T) {
	db := openTemp(t)
	require.NoError(t, db.SaveMeta(MetaSeed, "42"))
	require.NoError(t, db.SaveMeta(MetaSeed, "43"))
	v, err := db.GetMeta(MetaSeed)
	require.NoError(t, err)
	assert.Equal(t, "43", v)
}
