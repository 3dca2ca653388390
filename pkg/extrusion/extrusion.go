// Package extrusion recomputes filament deposition for split moves.
//
// The thread laid down by the nozzle is modelled as an ellipse of width
// α·d_n and height H·α·d_n, scaled by the multiplier V:
//
//	A(V, H) = V · H · π/4 · (α·d_n)²
//
// Filament of diameter d_f has cross-section A_f = π/4 · d_f². For each move
// the slicer's own extrusion E over length L fixes the rate constant
//
//	k = E / (L · A(1, 1) / A_f)
//
// so a sub-segment of length ℓ with fields (V, H) deposits
//
//	e = k · ℓ · A(V, H) / A_f
//
// Unity fields reproduce the slicer's extrusion exactly; splitting alone
// introduces no bias. Sub-segments outside every region keep their
// proportional share E·ℓ/L.
package extrusion

import (
	"math"

	"github.com/vtprint/vtp/pkg/errors"
	"github.com/vtprint/vtp/pkg/region"
	"github.com/vtprint/vtp/pkg/split"
)

// Params are the physical process constants.
type Params struct {
	Alpha     float64 `json:"alpha"`      // Thread width over nozzle diameter
	NozzleDia float64 `json:"nozzle_dia"` // mm
	FilDia    float64 `json:"fil_dia"`    // mm
	EDot      float64 `json:"e_dot"`      // Filament rate constant, mm/min
}

// DefaultParams returns the defaults for a 0.4 mm nozzle and 1.75 mm filament.
func DefaultParams() Params {
	return Params{Alpha: 1.0, NozzleDia: 0.4, FilDia: 1.75, EDot: 250.0}
}

// Validate reports a PHYSICAL_PARAMETER error for any non-positive or
// non-finite constant.
func (p Params) Validate() error {
	for _, c := range []struct {
		name string
		v    float64
	}{
		{"alpha", p.Alpha},
		{"nozzle_dia", p.NozzleDia},
		{"fil_dia", p.FilDia},
		{"e_dot", p.EDot},
	} {
		if err := errors.ValidatePositive(c.name, c.v); err != nil {
			return err
		}
	}
	return nil
}

// FeedMode selects how split moves get their feed rate.
type FeedMode string

const (
	// FeedSource keeps the feed rate of the original command.
	FeedSource FeedMode = "source"
	// FeedVolumetric derives the feed from e_dot so that the filament rate
	// stays constant: F = e_dot · V · A_f / A(1, 1).
	FeedVolumetric FeedMode = "volumetric"
)

// Model computes deposits from the thread model.
// A Model is immutable and safe for concurrent use.
type Model struct {
	params   Params
	feedMode FeedMode
	filArea  float64
	unitArea float64
}

// NewModel validates p and returns a Model. An empty mode means FeedSource.
func NewModel(p Params, mode FeedMode) (*Model, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	switch mode {
	case "":
		mode = FeedSource
	case FeedSource, FeedVolumetric:
	default:
		return nil, errors.New(errors.ErrCodeConfiguration, "unknown feed mode %q (want source or volumetric)", mode)
	}
	w := p.Alpha * p.NozzleDia
	return &Model{
		params:   p,
		feedMode: mode,
		filArea:  circle(p.FilDia),
		unitArea: circle(w),
	}, nil
}

// Params returns the model's constants.
func (m *Model) Params() Params { return m.params }

// FeedMode returns the model's feed mode.
func (m *Model) FeedMode() FeedMode { return m.feedMode }

// FilamentArea returns A_f in mm².
func (m *Model) FilamentArea() float64 { return m.filArea }

// ThreadArea returns A(V, H) in mm².
func (m *Model) ThreadArea(v region.Values) float64 {
	return v.Multiplier * v.Geometry * m.unitArea
}

// Rate returns the normalisation constant k for a move of the given length
// and slicer extrusion.
func (m *Model) Rate(baseE, length float64) float64 {
	return baseE / (length * m.unitArea / m.filArea)
}

// Feed returns the feed rate for a sub-segment. In FeedSource mode it is
// sourceFeed unchanged.
func (m *Model) Feed(v region.Values, sourceFeed float64) float64 {
	if m.feedMode != FeedVolumetric {
		return sourceFeed
	}
	return m.params.EDot * v.Multiplier * m.filArea / m.unitArea
}

func circle(d float64) float64 {
	return math.Pi / 4 * d * d
}

// Piece is a sub-segment with its recomputed deposit.
type Piece struct {
	split.SubSegment
	Values region.Values // Unity for sub-segments outside every region
	E      float64       // Exact deposit in mm of filament
	Feed   float64       // 0 keeps the modal feed rate
}

// Recompute assigns deposits to the sub-segments of one move whose slicer
// extrusion is baseE. Fields are evaluated at each sub-segment's midpoint.
// The returned total is the compensated sum of the pieces.
//
// A zero-length move puts the whole of baseE on its single sub-segment.
func (m *Model) Recompute(baseE, sourceFeed float64, subs []split.SubSegment) ([]Piece, float64, error) {
	var length Accumulator
	for _, s := range subs {
		length.Add(s.Length)
	}
	total := length.Sum()

	pieces := make([]Piece, len(subs))
	var sum Accumulator
	for i, s := range subs {
		v := region.Unity
		if s.Region != nil {
			var err error
			if v, err = s.Region.Evaluate(s.Midpoint()); err != nil {
				return nil, 0, err
			}
			if vh := v.Multiplier * v.Geometry; vh < 0 {
				return nil, 0, &errors.EvaluationError{
					Region: s.Region.Name,
					Field:  "multiplier*geometry",
					Point:  s.Midpoint(),
					Cause:  errNegativeArea,
				}
			}
		}

		var e float64
		switch {
		case total == 0:
			if len(subs) == 1 {
				e = baseE
			}
		case s.Region == nil:
			e = baseE * s.Length / total
		default:
			e = m.Rate(baseE, total) * s.Length * m.ThreadArea(v) / m.filArea
		}

		pieces[i] = Piece{SubSegment: s, Values: v, E: e, Feed: m.Feed(v, sourceFeed)}
		sum.Add(e)
	}
	return pieces, sum.Sum(), nil
}

var errNegativeArea = errors.New(errors.ErrCodeEvaluation, "thread area is negative")
