// Package solid provides point-containment primitives for region geometry.
//
// A [Solid] answers one question: does it contain a point? Solids are built
// from constructive primitives backed by github.com/deadsy/sdfx signed
// distance functions ([Box], [Sphere], [Cylinder] and their CSG
// combinations) or loaded from watertight STL meshes via
// github.com/unixpickle/model3d ([LoadSTL]). Project files describe solids
// declaratively; [Decode] turns such a description into a Solid.
//
// Containment is closed: points on the surface are inside. All solids in
// this package are immutable and safe for concurrent use.
package solid

import (
	"math"

	"github.com/vtprint/vtp/pkg/geom"
)

// Solid is a point-containment predicate.
type Solid interface {
	Contains(p geom.Point) bool
}

// Distancer is implemented by solids that can report a signed distance to
// their surface: negative inside, positive outside.
type Distancer interface {
	Distance(p geom.Point) float64
}

// Named pairs a solid with the region name it was declared under.
type Named struct {
	Name  string
	Solid Solid
}

// Func adapts a plain predicate to a Solid.
type Func func(p geom.Point) bool

// Contains calls f(p).
func (f Func) Contains(p geom.Point) bool { return f(p) }

// Everywhere is a solid containing every point.
type Everywhere struct{}

// Contains always reports true.
func (Everywhere) Contains(geom.Point) bool { return true }

// Distance returns negative infinity: every point is infinitely deep inside.
func (Everywhere) Distance(geom.Point) float64 { return math.Inf(-1) }

// HalfSpace contains the points p with p·Normal <= Offset.
type HalfSpace struct {
	Normal geom.Point
	Offset float64
}

// Contains reports whether p lies on the inner side of the plane.
func (h HalfSpace) Contains(p geom.Point) bool {
	return h.Distance(p) <= 0
}

// Distance returns the signed distance to the plane, assuming a unit Normal.
func (h HalfSpace) Distance(p geom.Point) float64 {
	return p.X*h.Normal.X + p.Y*h.Normal.Y + p.Z*h.Normal.Z - h.Offset
}

var (
	_ Distancer = Everywhere{}
	_ Distancer = HalfSpace{}
)
