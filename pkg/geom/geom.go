// Package geom provides the point type shared by the transform packages.
//
// A [Point] is a position in the printer's machine frame, in millimetres.
// It is an alias of gonum's r3.Vec so that solids, fields and the splitter
// can use the r3 helpers directly.
package geom

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Point is an immutable 3-D position.
type Point = r3.Vec

// Pt is shorthand for Point{X: x, Y: y, Z: z}.
func Pt(x, y, z float64) Point {
	return Point{X: x, Y: y, Z: z}
}

// Lerp returns the point at parameter t on the segment a→b.
// t=0 returns a exactly and t=1 returns b exactly.
func Lerp(a, b Point, t float64) Point {
	switch t {
	case 0:
		return a
	case 1:
		return b
	}
	return r3.Add(a, r3.Scale(t, r3.Sub(b, a)))
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Point) float64 {
	return r3.Norm(r3.Sub(b, a))
}

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b Point) Point {
	return Lerp(a, b, 0.5)
}

// Finite reports whether every coordinate of p is finite.
func Finite(p Point) bool {
	for _, v := range [...]float64{p.X, p.Y, p.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Format renders p as "(x, y, z)" with the given number of decimals.
func Format(p Point, prec int) string {
	return fmt.Sprintf("(%.*f, %.*f, %.*f)", prec, p.X, prec, p.Y, prec, p.Z)
}
