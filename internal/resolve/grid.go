package resolve

// Grid is a square matrix indexed by stable ray position. It grows one row and
// column at a time over a backing array with spare capacity, so appending a ray
// only relayouts the cells when the capacity doubles.
type Grid[T any] struct {
	n      int
	stride int
	cells  []T
}

// NewGrid returns an n×n grid of zero values.
func NewGrid[T any](n int) *Grid[T] {
	stride := n
	if stride < 4 {
		stride = 4
	}
	return &Grid[T]{n: n, stride: stride, cells: make([]T, stride*stride)}
}

// Len returns the number of rows (and columns).
func (g *Grid[T]) Len() int {
	return g.n
}

// At returns cell (i, j).
func (g *Grid[T]) At(i, j int) T {
	return g.cells[i*g.stride+j]
}

// Set writes cell (i, j).
func (g *Grid[T]) Set(i, j int, v T) {
	g.cells[i*g.stride+j] = v
}

// Row returns row i. The slice aliases the grid.
func (g *Grid[T]) Row(i int) []T {
	return g.cells[i*g.stride : i*g.stride+g.n]
}

// Grow appends one zeroed row and column and returns the new index.
func (g *Grid[T]) Grow() int {
	if g.n == g.stride {
		g.relayout(2 * g.stride)
	}
	idx := g.n
	g.n++
	var zero T
	for k := 0; k < g.n; k++ {
		g.Set(idx, k, zero)
		g.Set(k, idx, zero)
	}
	return idx
}

// Truncate drops every row and column at index n and above.
func (g *Grid[T]) Truncate(n int) {
	if n < g.n {
		g.n = n
	}
}

// Clone returns an independent copy.
func (g *Grid[T]) Clone() *Grid[T] {
	c := &Grid[T]{n: g.n, stride: g.stride, cells: make([]T, len(g.cells))}
	copy(c.cells, g.cells)
	return c
}

func (g *Grid[T]) relayout(stride int) {
	cells := make([]T, stride*stride)
	for i := 0; i < g.n; i++ {
		copy(cells[i*stride:i*stride+g.n], g.cells[i*g.stride:i*g.stride+g.n])
	}
	g.stride = stride
	g.cells = cells
}
