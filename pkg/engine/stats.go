package engine

import (
	"sort"

	"github.com/vtprint/vtp/pkg/extrusion"
)

// Stats summarises a run.
type Stats struct {
	LinesIn             int                    `json:"lines_in"`
	LinesOut            int                    `json:"lines_out"`
	Layers              int                    `json:"layers"` // Layer changes announced by ;Z: markers
	MovesTransformed    int                    `json:"moves_transformed"`
	SubMoves            int                    `json:"sub_moves"`
	NozzleChecksRemoved int                    `json:"nozzle_checks_removed"`
	Resyncs             int                    `json:"resyncs"`
	BaselineE           float64                `json:"baseline_e"`  // Slicer extrusion of transformed moves, mm
	DepositedE          float64                `json:"deposited_e"` // Recomputed extrusion of the same moves, mm
	PerRegion           map[string]RegionStats `json:"per_region"`

	baseline  extrusion.Accumulator
	deposited extrusion.Accumulator
}

// RegionStats summarises the sub-moves written for one region. Sub-moves
// outside every region are counted under TagNone.
type RegionStats struct {
	SubMoves int     `json:"sub_moves"`
	Length   float64 `json:"length"`
	E        float64 `json:"e"`
}

func newStats(lines int) Stats {
	return Stats{LinesIn: lines, PerRegion: make(map[string]RegionStats)}
}

func (s *Stats) addPiece(tag string, p extrusion.Piece) {
	if s.PerRegion == nil {
		s.PerRegion = make(map[string]RegionStats)
	}
	r := s.PerRegion[tag]
	r.SubMoves++
	r.Length += p.Length
	r.E += p.E
	s.PerRegion[tag] = r
	s.SubMoves++
}

// Regions returns the names in PerRegion, sorted.
func (s Stats) Regions() []string {
	names := make([]string, 0, len(s.PerRegion))
	for n := range s.PerRegion {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Ratio returns DepositedE / BaselineE, or 1 when nothing was transformed.
func (s Stats) Ratio() float64 {
	if s.BaselineE == 0 {
		return 1
	}
	return s.DepositedE / s.BaselineE
}
