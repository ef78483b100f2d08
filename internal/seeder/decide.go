package seeder

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/talgya/widmanstatten/internal/scene"
)

// Decision is the outcome of one decide step. Insert is nil when the seeder
// should wait.
type Decision struct {
	Insert    *InsertRequest
	Rationale string
}

// Policy bounds what the seeder may do.
type Policy struct {
	Target     int // stop once the scene holds this many rays
	Candidates int // random points sampled per decision
}

// Decide picks the candidate point farthest from every existing ray center.
func Decide(p Policy, snap *Snapshot, rng *rand.Rand) Decision {
	if snap.Status.Rays >= p.Target {
		return Decision{Rationale: fmt.Sprintf("target of %d rays reached", p.Target)}
	}
	b := snap.Status.Scene
	if b.Width <= 0 || b.Height <= 0 {
		return Decision{Rationale: "scene has no area"}
	}
	n := p.Candidates
	if n <= 0 {
		n = 1
	}

	var best scene.Point
	bestGap := -1.0
	for i := 0; i < n; i++ {
		c := scene.Point{X: rng.Float64() * b.Width, Y: rng.Float64() * b.Height}
		gap := nearestCenter(c, snap.Rays)
		if gap > bestGap {
			best, bestGap = c, gap
		}
	}

	return Decision{
		Insert:    &InsertRequest{X: best.X, Y: best.Y},
		Rationale: fmt.Sprintf("largest gap %.1f at (%.0f, %.0f)", bestGap, best.X, best.Y),
	}
}

// nearestCenter returns the distance from p to the closest ray center.
func nearestCenter(p scene.Point, rays []scene.Ray) float64 {
	nearest := math.Inf(1)
	for _, r := range rays {
		nearest = math.Min(nearest, p.Dist(r.Center))
	}
	return nearest
}
