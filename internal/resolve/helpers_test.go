package resolve

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/talgya/widmanstatten/internal/scene"
)

const (
	horizontal = 0.0
	vertical   = math.Pi / 2
)

func testRegistry() *scene.Registry {
	return scene.NewRegistry(
		scene.Bounds{Width: 600, Height: 800},
		scene.OrientationSet{horizontal, vertical, -1, 1},
		0,
	)
}

type raySpec struct {
	x, y, angle, speed float64
}

func buildRays(t *testing.T, reg *scene.Registry, specs ...raySpec) []*scene.Ray {
	t.Helper()
	rays := make([]*scene.Ray, 0, len(specs))
	for _, s := range specs {
		speed := s.speed
		if speed == 0 {
			speed = 1
		}
		r, err := reg.NewRay(scene.Spec{Center: scene.Point{X: s.x, Y: s.y}, Orientation: s.angle, Speed: speed})
		require.NoError(t, err)
		rays = append(rays, r)
	}
	return rays
}

// syntheticContext builds a context over a hand-written distance matrix.
func syntheticContext(unbounded float64, rows [][]float64) *Context {
	d := NewGrid[float64](len(rows))
	for i, row := range rows {
		for j, v := range row {
			d.Set(i, j, v)
		}
	}
	return NewContextFrom(unbounded, d, NewGrid[State](len(rows)))
}
