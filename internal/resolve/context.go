package resolve

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrCycle is matched by every *CycleError.
var ErrCycle = errors.New("cyclic blocking dependency")

// ErrOutOfSync is returned when the rays handed to Insert do not match the
// rows already held by the context.
var ErrOutOfSync = errors.New("ray list does not match resolution state")

// CycleError reports an unresolvable mutual-blocking chain. Chain lists the
// reach queries in flight when the conflict was found, outermost first.
type CycleError struct {
	At    Pair
	Chain []Pair
}

func (e *CycleError) Error() string {
	parts := make([]string, len(e.Chain))
	for i, p := range e.Chain {
		parts[i] = fmt.Sprintf("%d→%d", p.Ray, p.Crossing)
	}
	return fmt.Sprintf("%v at ray %d crossing %d (chain %s)", ErrCycle, e.At.Ray, e.At.Crossing, strings.Join(parts, ", "))
}

func (e *CycleError) Is(target error) bool {
	return target == ErrCycle
}

// Rays returns the distinct ray indices implicated in the cycle, ascending.
func (e *CycleError) Rays() []int {
	seen := map[int]bool{e.At.Ray: true, e.At.Crossing: true}
	for _, p := range e.Chain {
		seen[p.Ray] = true
		seen[p.Crossing] = true
	}
	out := make([]int, 0, len(seen))
	for r := range seen {
		out = append(out, r)
	}
	sort.Ints(out)
	return out
}

// Context is the resolution state for one scene: the distance matrix D, the
// memo matrix S and the bookkeeping for queries in flight. S outlives a single
// Resolve so that Insert can reuse it. A Context is not safe for concurrent use.
type Context struct {
	// Unbounded is the limit recorded for a side with no blocking crossing.
	Unbounded float64

	dist  *Grid[float64]
	state *Grid[State]

	reaching map[Pair]bool
	passing  map[Pair]bool
	stack    []Pair
}

// NewContext returns an empty context.
func NewContext(unbounded float64) *Context {
	return NewContextFrom(unbounded, NewGrid[float64](0), NewGrid[State](0))
}

// NewContextFrom wraps existing matrices, which must have the same size.
func NewContextFrom(unbounded float64, dist *Grid[float64], state *Grid[State]) *Context {
	return &Context{
		Unbounded: unbounded,
		dist:      dist,
		state:     state,
		reaching:  make(map[Pair]bool),
		passing:   make(map[Pair]bool),
	}
}

// Len returns the number of rays the context covers.
func (c *Context) Len() int {
	return c.dist.Len()
}

// Distance returns D[i,j].
func (c *Context) Distance(i, j int) float64 {
	return c.dist.At(i, j)
}

// State returns S[i,j].
func (c *Context) State(i, j int) State {
	return c.state.At(i, j)
}

// States returns a copy of S.
func (c *Context) States() *Grid[State] {
	return c.state.Clone()
}

func (c *Context) cycle(at Pair) error {
	chain := make([]Pair, len(c.stack))
	copy(chain, c.stack)
	return &CycleError{At: at, Chain: chain}
}

func (c *Context) push(set map[Pair]bool, p Pair) {
	set[p] = true
	c.stack = append(c.stack, p)
}

func (c *Context) pop(set map[Pair]bool, p Pair) {
	delete(set, p)
	c.stack = c.stack[:len(c.stack)-1]
}
