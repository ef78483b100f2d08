package scene

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry() *Registry {
	return NewRegistry(Bounds{Width: 300, Height: 400}, OrientationSet{-1, 0, 1}, 1)
}

func TestNewRayDefaults(t *testing.T) {
	reg := testRegistry()
	ray, err := reg.NewRay(Spec{Center: Point{X: 10, Y: 20}, Orientation: 1, Speed: 2, Width: 6})
	require.NoError(t, err)

	assert.NotEmpty(t, ray.ID)
	assert.Equal(t, 500.0, reg.Unbounded())
	assert.Equal(t, 500.0, ray.LimitPos)
	assert.Equal(t, 500.0, ray.LimitNeg)
	assert.Equal(t, 1.0, ray.LengthPos)
	assert.Equal(t, 1.0, ray.LengthNeg)
	assert.True(t, ray.GrowingPos)
	assert.True(t, ray.GrowingNeg)
	assert.InDelta(t, math.Cos(1), ray.Cos(), 1e-15)
	assert.InDelta(t, math.Sin(1), ray.Sin(), 1e-15)
	assert.InDelta(t, math.Tan(1), ray.Tan(), 1e-15)
}

func TestNewRayValidation(t *testing.T) {
	reg := testRegistry()
	cases := []struct {
		name string
		spec Spec
		want error
	}{
		{"zero speed", Spec{Center: Point{X: 1, Y: 1}, Speed: 0}, ErrInvalidSpeed},
		{"negative speed", Spec{Center: Point{X: 1, Y: 1}, Speed: -1}, ErrInvalidSpeed},
		{"nan speed", Spec{Center: Point{X: 1, Y: 1}, Speed: math.NaN()}, ErrInvalidSpeed},
		{"orientation", Spec{Center: Point{X: 1, Y: 1}, Speed: 1, Orientation: 0.5}, ErrInvalidOrientation},
		{"outside", Spec{Center: Point{X: 301, Y: 1}, Speed: 1}, ErrInvalidCenter},
		{"nan center", Spec{Center: Point{X: math.NaN(), Y: 1}, Speed: 1}, ErrInvalidCenter},
		{"width", Spec{Center: Point{X: 1, Y: 1}, Speed: 1, Width: -2}, ErrInvalidWidth},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := reg.NewRay(tc.spec)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestOrientationSnapsToSet(t *testing.T) {
	reg := testRegistry()
	ray, err := reg.NewRay(Spec{Center: Point{X: 5, Y: 5}, Orientation: 1 + 1e-12, Speed: 1})
	require.NoError(t, err)
	assert.Equal(t, 1.0, ray.Orientation)
}

func TestRegistryAppendAndLookup(t *testing.T) {
	reg := testRegistry()
	a, err := reg.NewRay(Spec{Center: Point{X: 5, Y: 5}, Speed: 1})
	require.NoError(t, err)
	b, err := reg.NewRay(Spec{Center: Point{X: 50, Y: 5}, Orientation: -1, Speed: 1})
	require.NoError(t, err)
	reg.Append(a, b)

	assert.Equal(t, 2, reg.Len())
	assert.Same(t, b, reg.Get(b.ID))
	i, ok := reg.IndexOf(b.ID)
	assert.True(t, ok)
	assert.Equal(t, 1, i)
	assert.Nil(t, reg.Get("missing"))
}

func TestRestoreKeepsID(t *testing.T) {
	reg := testRegistry()
	ray, err := reg.Restore("fixed-id", Spec{Center: Point{X: 5, Y: 5}, Speed: 1})
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", ray.ID)

	_, err = reg.Restore("bad", Spec{Center: Point{X: 5, Y: 5}})
	assert.ErrorIs(t, err, ErrInvalidSpeed)
}

func TestCornersHorizontal(t *testing.T) {
	reg := testRegistry()
	ray, err := reg.NewRay(Spec{Center: Point{X: 100, Y: 100}, Speed: 1, Width: 10})
	require.NoError(t, err)
	ray.LengthPos, ray.LengthNeg = 30, 20

	c := ray.Corners()
	want := [4]Point{{X: 130, Y: 95}, {X: 130, Y: 105}, {X: 80, Y: 105}, {X: 80, Y: 95}}
	for i := range c {
		assert.InDelta(t, want[i].X, c[i].X, 1e-9, "corner %d x", i)
		assert.InDelta(t, want[i].Y, c[i].Y, 1e-9, "corner %d y", i)
	}
}

func TestPointAtUsesScreenConvention(t *testing.T) {
	reg := NewRegistry(Bounds{Width: 100, Height: 100}, OrientationSet{math.Pi / 2}, 0)
	ray, err := reg.NewRay(Spec{Center: Point{X: 50, Y: 50}, Orientation: math.Pi / 2, Speed: 1})
	require.NoError(t, err)

	p := ray.PointAt(10)
	assert.InDelta(t, 50, p.X, 1e-9)
	assert.InDelta(t, 40, p.Y, 1e-9)
}
