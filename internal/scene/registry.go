package scene

import (
	"fmt"
	"math"
)

// orientationTolerance absorbs float noise from JSON/YAML round trips.
const orientationTolerance = 1e-9

// Bounds is the scene rectangle, origin at the top-left corner.
type Bounds struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Diagonal returns the scene's diagonal extent, used as the "unbounded" limit.
func (b Bounds) Diagonal() float64 {
	return math.Hypot(b.Width, b.Height)
}

// Contains reports whether p lies inside the scene, edges included.
func (b Bounds) Contains(p Point) bool {
	return p.X >= 0 && p.X <= b.Width && p.Y >= 0 && p.Y <= b.Height
}

// OrientationSet is the small fixed set of angles rays may take.
type OrientationSet []float64

// Match returns the member of the set equal to angle, if any.
func (s OrientationSet) Match(angle float64) (float64, bool) {
	for _, o := range s {
		if math.Abs(o-angle) <= orientationTolerance {
			return o, true
		}
	}
	return 0, false
}

// Registry owns the rays of a scene, in insertion order. A ray's position in
// the registry is its stable index for resolution.
type Registry struct {
	Bounds        Bounds
	Orientations  OrientationSet
	InitialLength float64

	rays  []*Ray
	index map[string]int
}

// NewRegistry creates an empty registry.
func NewRegistry(b Bounds, set OrientationSet, initialLength float64) *Registry {
	return &Registry{
		Bounds:        b,
		Orientations:  set,
		InitialLength: initialLength,
		index:         make(map[string]int),
	}
}

// NewRay validates spec and builds a ray with a fresh ID. The ray is not added;
// call Append once its limits are resolved.
func (r *Registry) NewRay(spec Spec) (*Ray, error) {
	if spec.Speed <= 0 || math.IsNaN(spec.Speed) || math.IsInf(spec.Speed, 0) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidSpeed, spec.Speed)
	}
	o, ok := r.Orientations.Match(spec.Orientation)
	if !ok {
		return nil, fmt.Errorf("%w: got %v, want one of %v", ErrInvalidOrientation, spec.Orientation, []float64(r.Orientations))
	}
	spec.Orientation = o
	if !spec.Center.finite() || !r.Bounds.Contains(spec.Center) {
		return nil, fmt.Errorf("%w: got (%v, %v)", ErrInvalidCenter, spec.Center.X, spec.Center.Y)
	}
	if spec.Width < 0 || math.IsNaN(spec.Width) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidWidth, spec.Width)
	}
	return newRay(newID(), spec, r.InitialLength, r.Unbounded()), nil
}

// Restore rebuilds a previously persisted ray, keeping its ID and mutable state.
func (r *Registry) Restore(id string, spec Spec) (*Ray, error) {
	ray, err := r.NewRay(spec)
	if err != nil {
		return nil, fmt.Errorf("restore %s: %w", id, err)
	}
	ray.ID = id
	return ray, nil
}

// Append adds rays to the end of the registry.
func (r *Registry) Append(rays ...*Ray) {
	for _, ray := range rays {
		r.index[ray.ID] = len(r.rays)
		r.rays = append(r.rays, ray)
	}
}

// Rays returns the registry's rays in index order. The slice is shared.
func (r *Registry) Rays() []*Ray {
	return r.rays
}

// Len returns the number of rays.
func (r *Registry) Len() int {
	return len(r.rays)
}

// Get returns the ray with the given ID, or nil.
func (r *Registry) Get(id string) *Ray {
	i, ok := r.index[id]
	if !ok {
		return nil
	}
	return r.rays[i]
}

// IndexOf returns the stable index of the ray with the given ID.
func (r *Registry) IndexOf(id string) (int, bool) {
	i, ok := r.index[id]
	return i, ok
}

// Unbounded returns the sentinel limit for rays with no blocking crossing.
func (r *Registry) Unbounded() float64 {
	return r.Bounds.Diagonal()
}
