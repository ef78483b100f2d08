package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/widmanstatten/internal/scene"
)

func resolvedScene(t *testing.T) (*scene.Registry, []*scene.Ray, *Context) {
	t.Helper()
	reg := testRegistry()
	rays := buildRays(t, reg,
		raySpec{x: 100, y: 100, angle: horizontal},
		raySpec{x: 160, y: 105, angle: vertical},
		raySpec{x: 130, y: 110, angle: vertical},
	)
	c := NewContext(reg.Unbounded())
	require.NoError(t, c.Resolve(rays))
	return reg, rays, c
}

func TestInsertDoesNotTouchExistingLimits(t *testing.T) {
	reg, rays, c := resolvedScene(t)

	type lim struct{ pos, neg float64 }
	before := make([]lim, len(rays))
	for i, r := range rays {
		before[i] = lim{r.LimitPos, r.LimitNeg}
	}
	statesBefore := c.States()

	// Would stop A at 15 if it had been there from the start.
	added := buildRays(t, reg, raySpec{x: 115, y: 102, angle: vertical})[0]
	require.NoError(t, c.Insert(rays, added))

	for i, r := range rays {
		assert.Equal(t, before[i], lim{r.LimitPos, r.LimitNeg}, "ray %d", i)
	}
	assert.Equal(t, 4, c.Len())
	for i := range rays {
		for j := range rays {
			if s := statesBefore.At(i, j); s != Unknown {
				assert.Equal(t, s, c.State(i, j), "S[%d,%d] changed", i, j)
			}
		}
	}
	assert.Equal(t, reg.Unbounded(), added.LimitPos)
	assert.Equal(t, reg.Unbounded(), added.LimitNeg)
}

func TestInsertedRayIsBlocked(t *testing.T) {
	reg, rays, c := resolvedScene(t)

	// Crosses C at 80 (C needs 40) and B at 110 (B needs 45).
	added := buildRays(t, reg, raySpec{x: 50, y: 150, angle: horizontal})[0]
	require.NoError(t, c.Insert(rays, added))

	assert.InDelta(t, 80, added.LimitPos, 1e-6)
	assert.Equal(t, reg.Unbounded(), added.LimitNeg)
	assert.InDelta(t, -40, c.Distance(2, 3), 1e-6)
	assert.InDelta(t, 80, c.Distance(3, 2), 1e-6)
}

func TestInsertMatchesBatchResolveForNewRay(t *testing.T) {
	reg, rays, c := resolvedScene(t)
	added := buildRays(t, reg, raySpec{x: 50, y: 150, angle: horizontal})[0]
	require.NoError(t, c.Insert(rays, added))

	all := buildRays(t, reg,
		raySpec{x: 100, y: 100, angle: horizontal},
		raySpec{x: 160, y: 105, angle: vertical},
		raySpec{x: 130, y: 110, angle: vertical},
		raySpec{x: 50, y: 150, angle: horizontal},
	)
	require.NoError(t, NewContext(reg.Unbounded()).Resolve(all))
	assert.InDelta(t, all[3].LimitPos, added.LimitPos, 1e-9)
	assert.InDelta(t, all[3].LimitNeg, added.LimitNeg, 1e-9)
}

func TestInsertIntoEmptyContext(t *testing.T) {
	reg := testRegistry()
	c := NewContext(reg.Unbounded())
	added := buildRays(t, reg, raySpec{x: 10, y: 10, angle: 1})[0]

	require.NoError(t, c.Insert(nil, added))
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, reg.Unbounded(), added.LimitPos)
}

func TestInsertRejectsMismatchedRays(t *testing.T) {
	reg, rays, c := resolvedScene(t)
	added := buildRays(t, reg, raySpec{x: 50, y: 150, angle: horizontal})[0]

	err := c.Insert(rays[:2], added)
	assert.ErrorIs(t, err, ErrOutOfSync)
	assert.Equal(t, 3, c.Len())
}

func TestInsertRollsBackOnFailure(t *testing.T) {
	reg, rays, c := resolvedScene(t)
	statesBefore := c.States()
	added := buildRays(t, reg, raySpec{x: 50, y: 150, angle: horizontal})[0]

	// The crossing with B (index 1) is the farthest, so it is tested first.
	c.passing[Pair{Ray: 3, Crossing: 1}] = true
	err := c.Insert(rays, added)
	require.ErrorIs(t, err, ErrCycle)

	assert.Equal(t, 3, c.Len())
	assert.Equal(t, statesBefore, c.States())
	assert.Equal(t, reg.Unbounded(), added.LimitPos)

	delete(c.passing, Pair{Ray: 3, Crossing: 1})
	require.NoError(t, c.Insert(rays, added))
	assert.InDelta(t, 80, added.LimitPos, 1e-6)
}

func TestRepeatedInsertsGrowPastCapacity(t *testing.T) {
	reg := testRegistry()
	c := NewContext(reg.Unbounded())
	var rays []*scene.Ray
	for i := 0; i < 12; i++ {
		angle := horizontal
		if i%2 == 1 {
			angle = vertical
		}
		r := buildRays(t, reg, raySpec{x: float64(40 + 37*i), y: float64(60 + 41*i), angle: angle})[0]
		require.NoError(t, c.Insert(rays, r))
		rays = append(rays, r)
	}
	assert.Equal(t, 12, c.Len())

	fresh := ComputeDistances(rays)
	for i := range rays {
		for j := range rays {
			assert.InDelta(t, fresh.At(i, j), c.Distance(i, j), 1e-12, "D[%d,%d]", i, j)
		}
	}
}
