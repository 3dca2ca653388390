package solid

import (
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/vtprint/vtp/pkg/errors"
	"github.com/vtprint/vtp/pkg/geom"
)

// Shape is a solid described by a signed distance function.
type Shape struct {
	sdf sdf.SDF3
}

var (
	_ Solid     = (*Shape)(nil)
	_ Distancer = (*Shape)(nil)
)

// NewShape wraps an sdfx distance function.
func NewShape(s sdf.SDF3) *Shape {
	return &Shape{sdf: s}
}

// Contains reports whether p is inside or on the surface.
func (s *Shape) Contains(p geom.Point) bool {
	return s.sdf.Evaluate(v3.Vec(p)) <= 0
}

// Distance returns the signed distance from p to the surface.
func (s *Shape) Distance(p geom.Point) float64 {
	return s.sdf.Evaluate(v3.Vec(p))
}

// SDF returns the underlying distance function.
func (s *Shape) SDF() sdf.SDF3 { return s.sdf }

// Box returns an axis-aligned box of the given size centred on center.
// A positive round radius rounds the edges.
func Box(center, size geom.Point, round float64) (*Shape, error) {
	s, err := sdf.Box3D(v3.Vec(size), round)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "box")
	}
	return at(s, center), nil
}

// BoxBetween returns the axis-aligned box spanning the corners lo and hi.
func BoxBetween(lo, hi geom.Point) (*Shape, error) {
	size := geom.Pt(hi.X-lo.X, hi.Y-lo.Y, hi.Z-lo.Z)
	return Box(geom.Midpoint(lo, hi), size, 0)
}

// Sphere returns a sphere of the given radius centred on center.
func Sphere(center geom.Point, radius float64) (*Shape, error) {
	s, err := sdf.Sphere3D(radius)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "sphere")
	}
	return at(s, center), nil
}

// Cylinder returns a Z-aligned cylinder centred on center.
func Cylinder(center geom.Point, height, radius, round float64) (*Shape, error) {
	s, err := sdf.Cylinder3D(height, radius, round)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "cylinder")
	}
	return at(s, center), nil
}

// Union returns the union of the given shapes.
func Union(shapes ...*Shape) *Shape {
	return &Shape{sdf: sdf.Union3D(sdfs(shapes)...)}
}

// Difference returns a with every shape in cut removed.
func Difference(a *Shape, cut ...*Shape) *Shape {
	if len(cut) == 0 {
		return a
	}
	return &Shape{sdf: sdf.Difference3D(a.sdf, sdf.Union3D(sdfs(cut)...))}
}

// Intersection returns the intersection of a and b.
func Intersection(a, b *Shape) *Shape {
	return &Shape{sdf: sdf.Intersect3D(a.sdf, b.sdf)}
}

func at(s sdf.SDF3, center geom.Point) *Shape {
	if center == (geom.Point{}) {
		return &Shape{sdf: s}
	}
	return &Shape{sdf: sdf.Transform3D(s, sdf.Translate3d(v3.Vec(center)))}
}

func sdfs(shapes []*Shape) []sdf.SDF3 {
	out := make([]sdf.SDF3, len(shapes))
	for i, s := range shapes {
		out[i] = s.sdf
	}
	return out
}
