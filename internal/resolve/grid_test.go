package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGridGrowKeepsCells(t *testing.T) {
	g := NewGrid[int](2)
	g.Set(0, 1, 7)
	g.Set(1, 0, 9)

	for n := 3; n <= 10; n++ {
		idx := g.Grow()
		assert.Equal(t, n-1, idx)
		assert.Equal(t, n, g.Len())
		assert.Equal(t, 7, g.At(0, 1))
		assert.Equal(t, 9, g.At(1, 0))
		g.Set(idx, idx, n)
	}
	assert.Equal(t, 10, g.At(9, 9))
	assert.Len(t, g.Row(4), 10)
}

func TestGridTruncateThenGrowZeroes(t *testing.T) {
	g := NewGrid[State](3)
	g.Set(2, 0, Reached)
	g.Set(0, 2, NotReached)

	g.Truncate(2)
	assert.Equal(t, 2, g.Len())

	g.Grow()
	assert.Equal(t, Unknown, g.At(2, 0))
	assert.Equal(t, Unknown, g.At(0, 2))
}

func TestGridCloneIsIndependent(t *testing.T) {
	g := NewGrid[float64](2)
	g.Set(0, 1, 1.5)
	c := g.Clone()
	c.Set(0, 1, 2.5)
	c.Grow()

	assert.Equal(t, 1.5, g.At(0, 1))
	assert.Equal(t, 2, g.Len())
	assert.Equal(t, 3, c.Len())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "unknown", Unknown.String())
	assert.Equal(t, "reached", Reached.String())
	assert.Equal(t, "not_reached", NotReached.String())
}
