// Package resolve computes where growing rays stop. It turns ray geometry into a
// signed growth-step distance matrix, answers memoized "does ray i reach crossing
// j" queries over it, and writes per-side growth limits back onto the rays.
package resolve

import (
	"golang.org/x/exp/constraints"

	"github.com/talgya/widmanstatten/internal/scene"
)

// Epsilon keeps the crossing denominator away from zero for near-degenerate pairs.
const Epsilon = 1e-8

// Crossing returns the signed geometric distance along a's axis at which it meets
// b's infinite line. Parallel axes (equal tangents, including a == b) yield 0.
//
// The zero sentinel conflates "never crosses" with "crosses at the center". Side
// scans skip zero entries, so parallel rays never block each other.
func Crossing(a, b *scene.Ray) float64 {
	if a.Tan() == b.Tan() {
		return 0
	}
	dx := b.Center.X - a.Center.X
	dy := b.Center.Y - a.Center.Y
	return (dy + b.Tan()*dx) / (a.Cos()*(b.Tan()-a.Tan()) + Epsilon)
}

// StepDistance is Crossing expressed in a's growth steps.
func StepDistance(a, b *scene.Ray) float64 {
	return Crossing(a, b) / a.Speed
}

// ComputeDistances builds the full distance matrix D, where D[i,j] is the
// growth-step distance along ray i to ray j's line.
func ComputeDistances(rays []*scene.Ray) *Grid[float64] {
	d := NewGrid[float64](len(rays))
	for i, a := range rays {
		for j, b := range rays {
			if i == j {
				continue
			}
			d.Set(i, j, StepDistance(a, b))
		}
	}
	return d
}

// appendDistances grows d by one row and column for ray, which takes the next
// index after existing.
func appendDistances(d *Grid[float64], existing []*scene.Ray, ray *scene.Ray) int {
	n := d.Grow()
	for k, other := range existing {
		d.Set(n, k, StepDistance(ray, other))
		d.Set(k, n, StepDistance(other, ray))
	}
	return n
}

func sign[T constraints.Float](v T) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func abs[T constraints.Float](v T) T {
	if v < 0 {
		return -v
	}
	return v
}
