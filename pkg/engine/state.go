package engine

import (
	"github.com/vtprint/vtp/pkg/gcode"
	"github.com/vtprint/vtp/pkg/geom"
)

// PrintState is the machine state a program has built up before a line.
// It is a value: Step returns the successor and never modifies the receiver.
type PrintState struct {
	Pos         geom.Point    // Absolute position in mm
	E           float64       // Extrusion counter as the source program counts it
	Feed        float64       // Modal feed rate in mm/min; 0 until the first F word
	Feature     gcode.Feature // Block feature from the last ;TYPE: marker
	AbsolutePos bool          // G90 (true) or G91
	AbsoluteE   bool          // M82 (true) or M83
	LayerZ      float64       // Height from the last ;Z: marker
}

// NewPrintState returns the power-on state: absolute positioning and
// absolute extrusion at the origin.
func NewPrintState() PrintState {
	return PrintState{AbsolutePos: true, AbsoluteE: true}
}

// Target resolves the end position of a move.
func (s PrintState) Target(c gcode.Command) geom.Point {
	if s.AbsolutePos {
		return geom.Pt(c.X.Or(s.Pos.X), c.Y.Or(s.Pos.Y), c.Z.Or(s.Pos.Z))
	}
	return geom.Pt(s.Pos.X+c.X.Or(0), s.Pos.Y+c.Y.Or(0), s.Pos.Z+c.Z.Or(0))
}

// ExtrusionDelta returns the filament a move feeds, positive or negative.
func (s PrintState) ExtrusionDelta(c gcode.Command) float64 {
	if !c.E.Set {
		return 0
	}
	if s.AbsoluteE {
		return c.E.Value - s.E
	}
	return c.E.Value
}

// LineFeature returns the feature of the line c: its own verbose comment
// when it has one, otherwise the block feature.
func (s PrintState) LineFeature(c gcode.Command) gcode.Feature {
	if f, ok := gcode.LineFeature(c.Comment); ok {
		return f
	}
	return s.Feature
}

// Step returns the state after c.
func (s PrintState) Step(c gcode.Command) PrintState {
	if f, ok := gcode.TypeMarker(c.Comment); ok && c.Code == "" {
		s.Feature = f
	}
	if z, ok := gcode.LayerZ(c.Comment); ok && c.Code == "" {
		s.LayerZ = z
	}
	if c.Malformed {
		return s
	}

	switch c.Code {
	case "G0", "G1":
		s.E += s.ExtrusionDelta(c)
		s.Pos = s.Target(c)
		if c.F.Set {
			s.Feed = c.F.Value
		}
	case "G90":
		s.AbsolutePos = true
	case "G91":
		s.AbsolutePos = false
	case "M82":
		s.AbsoluteE = true
	case "M83":
		s.AbsoluteE = false
	case "G92":
		if !c.X.Set && !c.Y.Set && !c.Z.Set && !c.E.Set {
			s.Pos, s.E = geom.Point{}, 0
			break
		}
		if c.X.Set {
			s.Pos.X = c.X.Value
		}
		if c.Y.Set {
			s.Pos.Y = c.Y.Value
		}
		if c.Z.Set {
			s.Pos.Z = c.Z.Value
		}
		if c.E.Set {
			s.E = c.E.Value
		}
	}
	return s
}
