package resolve

import (
	"fmt"
	"log/slog"

	"github.com/talgya/widmanstatten/internal/scene"
)

// Insert appends ray after existing, extending D and S by one row and column,
// and resolves the new ray's limits only. Memoized entries for existing pairs are
// kept and existing rays' limits are never revisited. On error the context is
// restored to its state before the call and ray is left untouched.
func (c *Context) Insert(existing []*scene.Ray, ray *scene.Ray) error {
	n := c.Len()
	if len(existing) != n {
		return fmt.Errorf("%w: %d rays, %d rows", ErrOutOfSync, len(existing), n)
	}

	saved := c.state.Clone()
	appendDistances(c.dist, existing, ray)
	c.state.Grow()

	pos, neg, err := c.limits(n, ray.Speed)
	if err != nil {
		c.dist.Truncate(n)
		c.state = saved
		return fmt.Errorf("insert ray %s: %w", ray.ID, err)
	}

	ray.LimitPos, ray.LimitNeg = pos, neg
	slog.Debug("ray inserted", "index", n, "ray", ray.ID, "limit_pos", pos, "limit_neg", neg)
	return nil
}
