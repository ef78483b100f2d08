package resolve

import (
	"fmt"
	"log/slog"

	"github.com/talgya/widmanstatten/internal/scene"
)

// Sides, in the sign convention of D.
const (
	SidePos = 1
	SideNeg = -1
)

// Resolve recomputes D for rays, resets S and writes LimitPos/LimitNeg on every
// ray. Limits are only written once every ray has resolved, so a failure leaves
// the rays untouched and S empty.
func (c *Context) Resolve(rays []*scene.Ray) error {
	c.dist = ComputeDistances(rays)
	c.state = NewGrid[State](len(rays))

	type limits struct{ pos, neg float64 }
	out := make([]limits, len(rays))
	for i, r := range rays {
		pos, neg, err := c.limits(i, r.Speed)
		if err != nil {
			c.state = NewGrid[State](len(rays))
			return fmt.Errorf("resolve ray %d (%s): %w", i, r.ID, err)
		}
		out[i] = limits{pos, neg}
	}

	bounded := 0
	for i, r := range rays {
		r.LimitPos, r.LimitNeg = out[i].pos, out[i].neg
		if r.LimitPos < c.Unbounded {
			bounded++
		}
		if r.LimitNeg < c.Unbounded {
			bounded++
		}
	}
	slog.Debug("growth limits resolved", "rays", len(rays), "bounded_sides", bounded)
	return nil
}

// Restore rebuilds D for rays whose limits are already settled, with an empty S.
// Used after loading a saved scene so later insertions have a matrix to extend.
func (c *Context) Restore(rays []*scene.Ray) {
	c.dist = ComputeDistances(rays)
	c.state = NewGrid[State](len(rays))
}

// limits resolves both sides of ray i and converts them to length units.
func (c *Context) limits(i int, speed float64) (pos, neg float64, err error) {
	pos, err = c.sideLimit(i, SidePos, speed)
	if err != nil {
		return 0, 0, fmt.Errorf("positive side: %w", err)
	}
	neg, err = c.sideLimit(i, SideNeg, speed)
	if err != nil {
		return 0, 0, fmt.Errorf("negative side: %w", err)
	}
	return pos, neg, nil
}

// sideLimit scans the crossings on one side farthest first. Passing a crossing
// means every nearer one was passed too, so the scan stops there; a blocked
// crossing becomes the tentative limit until a nearer block overrides it.
func (c *Context) sideLimit(i, side int, speed float64) (float64, error) {
	limit := c.Unbounded
	for _, j := range c.farthestFirst(i, side) {
		ok, err := c.Passes(i, j)
		if err != nil {
			return 0, err
		}
		if ok {
			break
		}
		limit = abs(c.dist.At(i, j)) * speed
	}
	return limit, nil
}
