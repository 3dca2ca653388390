package extrusion

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vtprint/vtp/pkg/errors"
	"github.com/vtprint/vtp/pkg/field"
	"github.com/vtprint/vtp/pkg/geom"
	"github.com/vtprint/vtp/pkg/region"
	"github.com/vtprint/vtp/pkg/solid"
	"github.com/vtprint/vtp/pkg/split"
)

func newModel(t *testing.T, mode FeedMode) *Model {
	t.Helper()
	m, err := NewModel(DefaultParams(), mode)
	require.NoError(t, err)
	return m
}

func table(t *testing.T, mult, geo field.Evaluator) *region.Table {
	t.Helper()
	tbl, err := region.New(&region.Region{Name: "r", Solid: solid.Everywhere{}, Multiplier: mult, Geometry: geo})
	require.NoError(t, err)
	return tbl
}

func splitter(t *testing.T, c split.Classifier, inc float64) *split.Splitter {
	t.Helper()
	s, err := split.New(c, split.Options{Increment: inc})
	require.NoError(t, err)
	return s
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"zero alpha", func(p *Params) { p.Alpha = 0 }},
		{"negative nozzle", func(p *Params) { p.NozzleDia = -0.4 }},
		{"nan filament", func(p *Params) { p.FilDia = math.NaN() }},
		{"infinite e_dot", func(p *Params) { p.EDot = math.Inf(1) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			_, err := NewModel(p, FeedSource)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrCodePhysicalParameter))
		})
	}

	_, err := NewModel(DefaultParams(), "turbo")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeConfiguration))
}

func TestAreas(t *testing.T) {
	m := newModel(t, "")
	assert.Equal(t, FeedSource, m.FeedMode())
	assert.InDelta(t, math.Pi/4*1.75*1.75, m.FilamentArea(), 1e-12)
	assert.InDelta(t, math.Pi/4*0.16, m.ThreadArea(region.Unity), 1e-12)
	assert.InDelta(t, math.Pi/4*0.16*1.5, m.ThreadArea(region.Values{Multiplier: 3, Geometry: 0.5}), 1e-12)

	wide, err := NewModel(Params{Alpha: 1.5, NozzleDia: 0.4, FilDia: 1.75, EDot: 250}, FeedSource)
	require.NoError(t, err)
	assert.InDelta(t, math.Pi/4*0.36, wide.ThreadArea(region.Unity), 1e-12)
}

func TestRecomputeTenMillimetres(t *testing.T) {
	m := newModel(t, FeedSource)
	tbl := table(t, field.MustCompile("multiplier", "1.0"), field.MustCompile("geometry", "1.0"))
	s := splitter(t, tbl.Classifier(region.OutsideBaseline), 1)

	subs, err := s.Split(geom.Pt(0, 0, 0.2), geom.Pt(10, 0, 0.2))
	require.NoError(t, err)
	require.Len(t, subs, 10)

	pieces, total, err := m.Recompute(2.0, 1800, subs)
	require.NoError(t, err)
	require.Len(t, pieces, 10)
	assert.InDelta(t, 2.0, total, 1e-6)

	ledger := NewLedger(0, 5)
	var printed float64
	for _, p := range pieces {
		assert.InDelta(t, 0.2, p.E, 1e-12)
		assert.Equal(t, 1800.0, p.Feed)
		rel, _ := ledger.Next(p.E)
		printed += rel
	}
	assert.InDelta(t, 2.0, printed, 1e-6)
}

func TestRecomputeNoSplitBias(t *testing.T) {
	m := newModel(t, FeedSource)
	tbl := table(t, field.Constant(1), field.Constant(1))
	p0, p1 := geom.Pt(3, 4, 0.3), geom.Pt(40.7, -12.1, 0.3)
	length := geom.Distance(p0, p1)

	for _, inc := range []float64{0.05, 0.37, 1, 5, 13, length, 2 * length} {
		subs, err := splitter(t, tbl.Classifier(region.OutsideBaseline), inc).Split(p0, p1)
		require.NoError(t, err)
		_, total, err := m.Recompute(1.23456, 0, subs)
		require.NoError(t, err)
		assert.InDelta(t, 1.23456, total, 1e-9, "increment %v", inc)
	}
}

func TestRecomputeScalesWithFields(t *testing.T) {
	m := newModel(t, FeedSource)
	half := solid.HalfSpace{Normal: geom.Pt(1, 0, 0), Offset: 5}
	tbl, err := region.New(&region.Region{
		Name:       "thick",
		Solid:      half,
		Multiplier: field.Constant(2),
		Geometry:   field.Constant(1.5),
	})
	require.NoError(t, err)
	s := splitter(t, tbl.Classifier(region.OutsideBaseline), 1)

	subs, err := s.Split(geom.Pt(0, 0, 0), geom.Pt(10, 0, 0))
	require.NoError(t, err)
	pieces, total, err := m.Recompute(1.0, 0, subs)
	require.NoError(t, err)

	for _, p := range pieces {
		if p.Region != nil {
			assert.InDelta(t, 0.1*3, p.E, 1e-12)
			assert.Equal(t, region.Values{Multiplier: 2, Geometry: 1.5}, p.Values)
		} else {
			assert.InDelta(t, 0.1, p.E, 1e-12)
			assert.Equal(t, region.Unity, p.Values)
		}
	}
	// Half the move at triple thickness, half at baseline.
	assert.InDelta(t, 0.5*3+0.5, total, 1e-9)
}

func TestRecomputeZeroLength(t *testing.T) {
	m := newModel(t, FeedSource)
	tbl := table(t, field.Constant(3), field.Constant(3))
	s := splitter(t, tbl.Classifier(region.OutsideBaseline), 1)

	subs, err := s.Split(geom.Pt(1, 1, 1), geom.Pt(1, 1, 1))
	require.NoError(t, err)
	pieces, total, err := m.Recompute(0.8, 0, subs)
	require.NoError(t, err)
	require.Len(t, pieces, 1)
	assert.Equal(t, 0.8, pieces[0].E)
	assert.Equal(t, 0.8, total)
	assert.Equal(t, "r", pieces[0].Region.String())
}

func TestRecomputeErrors(t *testing.T) {
	m := newModel(t, FeedSource)

	t.Run("negative area", func(t *testing.T) {
		tbl := table(t, field.Constant(-1), field.Constant(1))
		subs, err := splitter(t, tbl.Classifier(region.OutsideBaseline), 1).Split(geom.Pt(0, 0, 0), geom.Pt(2, 0, 0))
		require.NoError(t, err)
		_, _, err = m.Recompute(1, 0, subs)

		var evalErr *errors.EvaluationError
		require.ErrorAs(t, err, &evalErr)
		assert.Equal(t, "r", evalErr.Region)
	})

	t.Run("undefined field", func(t *testing.T) {
		tbl := table(t, field.MustCompile("multiplier", "1 / (x - 0.5)"), field.Constant(1))
		subs, err := splitter(t, tbl.Classifier(region.OutsideBaseline), 1).Split(geom.Pt(0, 0, 0), geom.Pt(1, 0, 0))
		require.NoError(t, err)
		_, _, err = m.Recompute(1, 0, subs)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrCodeEvaluation))
	})
}

func TestVolumetricFeed(t *testing.T) {
	m := newModel(t, FeedVolumetric)
	base := 250 * m.FilamentArea() / m.ThreadArea(region.Unity)
	assert.InDelta(t, base, m.Feed(region.Unity, 1800), 1e-9)
	assert.InDelta(t, 2*base, m.Feed(region.Values{Multiplier: 2, Geometry: 7}, 1800), 1e-9)

	src := newModel(t, FeedSource)
	assert.Equal(t, 1800.0, src.Feed(region.Values{Multiplier: 2, Geometry: 7}, 1800))
}

func TestAccumulator(t *testing.T) {
	var a Accumulator
	for _, x := range []float64{1e16, 1, -1e16} {
		a.Add(x)
	}
	assert.Equal(t, 1.0, a.Sum())

	var b Accumulator
	for i := 0; i < 1000000; i++ {
		b.Add(0.1)
	}
	assert.InDelta(t, 100000.0, b.Sum(), 1e-9)
}

func TestLedger(t *testing.T) {
	t.Run("relative", func(t *testing.T) {
		l := NewLedger(0, 5)
		var printed float64
		exact := 0.0
		for i := 0; i < 1000; i++ {
			rel, _ := l.Next(0.0012345)
			printed += rel
			exact += 0.0012345
		}
		assert.InDelta(t, math.Round(exact*1e5)/1e5, printed, 1e-9)
		assert.InDelta(t, exact, l.Exact(), 1e-12)
	})

	t.Run("absolute", func(t *testing.T) {
		l := NewLedger(100.5, 5)
		assert.Equal(t, 100.5, l.Printed())
		_, abs := l.Next(0.333333)
		assert.Equal(t, 100.83333, abs)
		_, abs = l.Next(0.333333)
		assert.Equal(t, 101.16667, abs)
		assert.Equal(t, 101.16667, l.Printed())
	})
}
