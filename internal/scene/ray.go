// Package scene provides the ray data model and the registry that owns every ray
// in a growth scene. Coordinates use screen convention: y grows downward.
package scene

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
)

// Validation errors returned by NewRay.
var (
	ErrInvalidSpeed       = errors.New("speed must be positive and finite")
	ErrInvalidOrientation = errors.New("orientation not in the scene's orientation set")
	ErrInvalidCenter      = errors.New("center must be finite and inside the scene")
	ErrInvalidWidth       = errors.New("width must be non-negative")
)

// Point is a 2D scene coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p + q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Scale returns p scaled by k.
func (p Point) Scale(k float64) Point {
	return Point{X: p.X * k, Y: p.Y * k}
}

// Dist returns the euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

func (p Point) finite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Spec describes a ray before it enters the registry.
type Spec struct {
	Center      Point   `json:"center"`
	Orientation float64 `json:"orientation"` // radians, drawn from the orientation set
	Speed       float64 `json:"speed"`       // length units per tick
	Width       float64 `json:"width"`       // render only, ignored by collision geometry
}

// Ray is a line element growing from a fixed center in two directions.
// The positive side grows along (cos θ, −sin θ), the negative side opposite to it.
type Ray struct {
	ID          string  `json:"id"`
	Center      Point   `json:"center"`
	Orientation float64 `json:"orientation"`
	Speed       float64 `json:"speed"`
	Width       float64 `json:"width"`

	// Current extents, monotonically non-decreasing.
	LengthPos float64 `json:"length_pos"`
	LengthNeg float64 `json:"length_neg"`

	// Extents at which each side stops. Start at the scene diagonal (unbounded)
	// and are written once when the ray is resolved.
	LimitPos float64 `json:"limit_pos"`
	LimitNeg float64 `json:"limit_neg"`

	GrowingPos bool `json:"growing_pos"`
	GrowingNeg bool `json:"growing_neg"`

	cos, sin, tan float64
}

func newRay(id string, spec Spec, length, unbounded float64) *Ray {
	r := &Ray{
		ID:          id,
		Center:      spec.Center,
		Orientation: spec.Orientation,
		Speed:       spec.Speed,
		Width:       spec.Width,
		LengthPos:   length,
		LengthNeg:   length,
		LimitPos:    unbounded,
		LimitNeg:    unbounded,
		GrowingPos:  true,
		GrowingNeg:  true,
	}
	r.cos = math.Cos(spec.Orientation)
	r.sin = math.Sin(spec.Orientation)
	r.tan = math.Tan(spec.Orientation)
	return r
}

// Cos returns the cached cosine of the orientation.
func (r *Ray) Cos() float64 { return r.cos }

// Sin returns the cached sine of the orientation.
func (r *Ray) Sin() float64 { return r.sin }

// Tan returns the cached tangent of the orientation.
func (r *Ray) Tan() float64 { return r.tan }

// Direction returns the unit vector of the positive growth side.
func (r *Ray) Direction() Point {
	return Point{X: r.cos, Y: -r.sin}
}

// PointAt returns the point at signed distance t along the ray's axis.
func (r *Ray) PointAt(t float64) Point {
	return r.Center.Add(r.Direction().Scale(t))
}

// Growing reports whether either side is still extending.
func (r *Ray) Growing() bool {
	return r.GrowingPos || r.GrowingNeg
}

// Spec returns the immutable attributes the ray was created from.
func (r *Ray) Spec() Spec {
	return Spec{Center: r.Center, Orientation: r.Orientation, Speed: r.Speed, Width: r.Width}
}

// Corners returns the four corners of the ray's rendered rectangle, starting at
// the positive end and winding around.
func (r *Ray) Corners() [4]Point {
	hw := r.Width / 2
	c, s := r.cos, r.sin
	return [4]Point{
		{X: r.Center.X + r.LengthPos*c - hw*s, Y: r.Center.Y - r.LengthPos*s - hw*c},
		{X: r.Center.X + r.LengthPos*c + hw*s, Y: r.Center.Y - r.LengthPos*s + hw*c},
		{X: r.Center.X - r.LengthNeg*c + hw*s, Y: r.Center.Y + r.LengthNeg*s + hw*c},
		{X: r.Center.X - r.LengthNeg*c - hw*s, Y: r.Center.Y + r.LengthNeg*s - hw*c},
	}
}

func (r *Ray) String() string {
	return fmt.Sprintf("Ray(%s at %.1f,%.1f θ=%.3f v=%.2f)", shortID(r.ID), r.Center.X, r.Center.Y, r.Orientation, r.Speed)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func newID() string {
	return uuid.New().String()
}
