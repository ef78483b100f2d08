package resolve

import "sort"

// Reaches reports whether ray i's growth front arrives at its crossing with ray
// j without being stopped by a nearer crossing on the same side. Results are
// memoized in S; a blocked front marks every crossing at or beyond the blocking
// distance on that side as NotReached. Nearer crossings already Reached are
// trusted as passed, which holds for entries written through Passes.
func (c *Context) Reaches(i, j int) (bool, error) {
	switch c.state.At(i, j) {
	case Reached:
		return true, nil
	case NotReached:
		return false, nil
	}

	p := Pair{Ray: i, Crossing: j}
	if c.reaching[p] {
		return false, c.cycle(p)
	}

	d := c.dist.At(i, j)
	if d == 0 {
		c.state.Set(i, j, Reached)
		return true, nil
	}

	c.push(c.reaching, p)
	defer c.pop(c.reaching, p)

	side := sign(d)
	for _, k := range c.nearer(i, side, abs(d)) {
		if c.state.At(i, k) == Reached {
			// A pass test still in flight has not confirmed this crossing yet.
			if c.passing[Pair{Ray: i, Crossing: k}] {
				return false, c.cycle(Pair{Ray: i, Crossing: k})
			}
			continue
		}
		ok, err := c.Passes(i, k)
		if err != nil {
			return false, err
		}
		if !ok {
			c.block(i, side, abs(c.dist.At(i, k)))
			return false, nil
		}
	}

	// A deeper query blocked this ray short of j while j was still open.
	if c.state.At(i, j) == NotReached {
		return false, c.cycle(p)
	}
	c.state.Set(i, j, Reached)
	return true, nil
}

// Passes reports whether ray i is not stopped by ray j at their crossing: i
// reaches it, and either arrives first or j never gets there. When j stops i,
// the crossing and everything beyond it on that side become NotReached, so a
// Reached entry always means the crossing was passed.
func (c *Context) Passes(i, j int) (bool, error) {
	p := Pair{Ray: i, Crossing: j}
	if c.passing[p] {
		return false, c.cycle(p)
	}

	reached, err := c.Reaches(i, j)
	if err != nil || !reached {
		return false, err
	}
	if c.arrivesFirst(i, j) {
		return true, nil
	}

	c.push(c.passing, p)
	other, err := c.Reaches(j, i)
	c.pop(c.passing, p)
	if err != nil {
		return false, err
	}
	if other {
		d := c.dist.At(i, j)
		c.block(i, sign(d), abs(d))
		return false, nil
	}
	return true, nil
}

// arrivesFirst compares travel times to the shared crossing. Exact ties go to
// the lower index.
func (c *Context) arrivesFirst(i, j int) bool {
	mine, theirs := abs(c.dist.At(i, j)), abs(c.dist.At(j, i))
	if mine != theirs {
		return mine < theirs
	}
	return i < j
}

// nearer lists crossings of ray i on side that are strictly closer than limit,
// nearest first.
func (c *Context) nearer(i, side int, limit float64) []int {
	row := c.dist.Row(i)
	var out []int
	for k, d := range row {
		if sign(d) == side && abs(d) < limit {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		da, db := abs(row[out[a]]), abs(row[out[b]])
		if da != db {
			return da < db
		}
		return out[a] < out[b]
	})
	return out
}

// farthestFirst lists every crossing of ray i on side, farthest first.
func (c *Context) farthestFirst(i, side int) []int {
	row := c.dist.Row(i)
	var out []int
	for k, d := range row {
		if sign(d) == side {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		da, db := abs(row[out[a]]), abs(row[out[b]])
		if da != db {
			return da > db
		}
		return out[a] > out[b]
	})
	return out
}

// block marks every crossing of ray i on side at or beyond from as NotReached.
func (c *Context) block(i, side int, from float64) {
	row := c.dist.Row(i)
	for m, d := range row {
		if sign(d) == side && abs(d) >= from {
			c.state.Set(i, m, NotReached)
		}
	}
}
