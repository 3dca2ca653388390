package region

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vtprint/vtp/pkg/errors"
	"github.com/vtprint/vtp/pkg/field"
	"github.com/vtprint/vtp/pkg/geom"
	"github.com/vtprint/vtp/pkg/solid"
)

func xBelow(v float64) solid.Solid {
	return solid.HalfSpace{Normal: geom.Pt(1, 0, 0), Offset: v}
}

func TestNewTable(t *testing.T) {
	tbl, err := NewTable(
		[]solid.Named{{Name: "core", Solid: xBelow(10)}, {Name: "shell", Solid: solid.Everywhere{}}},
		[]field.Pair{{Multiplier: "1", Geometry: "1"}, {Multiplier: "1 + x/100", Geometry: "0.8"}},
	)
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())

	regions := tbl.Regions()
	assert.Equal(t, "core", regions[0].Name)
	assert.Equal(t, 0, regions[0].Index)
	assert.Equal(t, "shell", regions[1].Name)
	assert.Equal(t, 1, regions[1].Index)

	shell, ok := tbl.Lookup("shell")
	require.True(t, ok)
	mult, geo := shell.Exprs()
	assert.Equal(t, "1 + x/100", mult)
	assert.Equal(t, "0.8", geo)

	m, g := tbl.Fields(shell)
	assert.Same(t, shell.Multiplier, m)
	assert.Same(t, shell.Geometry, g)

	v, err := shell.Evaluate(geom.Pt(50, 0, 0))
	require.NoError(t, err)
	assert.InDelta(t, 1.5, v.Multiplier, 1e-12)
	assert.InDelta(t, 0.8, v.Geometry, 1e-12)

	_, ok = tbl.Lookup("missing")
	assert.False(t, ok)
}

func TestNewTableErrors(t *testing.T) {
	one := []solid.Named{{Name: "a", Solid: solid.Everywhere{}}}
	unity := field.Pair{Multiplier: "1", Geometry: "1"}

	tests := []struct {
		name   string
		solids []solid.Named
		pairs  []field.Pair
		want   string
	}{
		{"no solids", nil, nil, "no regions"},
		{"too few pairs", one, nil, "0 equation pairs for 1 solids"},
		{"too many pairs", one, []field.Pair{unity, unity}, "2 equation pairs for 1 solids"},
		{"bad expression", one, []field.Pair{{Multiplier: "1 +", Geometry: "1"}}, `region "a"`},
		{"duplicate name", []solid.Named{one[0], one[0]}, []field.Pair{unity, unity}, "declared twice"},
		{"bad name", []solid.Named{{Name: "a b", Solid: solid.Everywhere{}}}, []field.Pair{unity}, "invalid region name"},
		{"nil solid", []solid.Named{{Name: "a"}}, []field.Pair{unity}, "incomplete"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable(tt.solids, tt.pairs)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrCodeConfiguration), "code = %v", errors.GetCode(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestEvaluateAnnotatesRegion(t *testing.T) {
	tbl, err := NewTable(
		[]solid.Named{{Name: "core", Solid: solid.Everywhere{}}},
		[]field.Pair{{Multiplier: "1", Geometry: "1 / x"}},
	)
	require.NoError(t, err)

	_, err = tbl.Regions()[0].Evaluate(geom.Pt(0, 0, 0))
	require.Error(t, err)

	var evalErr *errors.EvaluationError
	require.ErrorAs(t, err, &evalErr)
	assert.Equal(t, "core", evalErr.Region)
	assert.Equal(t, "geometry", evalErr.Field)
	assert.Equal(t, "1 / x", evalErr.Expr)
}

func TestTableEvaluate(t *testing.T) {
	tbl, err := NewTable(
		[]solid.Named{{Name: "core", Solid: solid.Everywhere{}}},
		[]field.Pair{{Multiplier: "2", Geometry: "z"}},
	)
	require.NoError(t, err)
	core, _ := tbl.Lookup("core")

	v, err := tbl.Evaluate(core, geom.Pt(0, 0, 0.5))
	require.NoError(t, err)
	assert.Equal(t, Values{Multiplier: 2, Geometry: 0.5}, v)

	v, err = tbl.Evaluate(nil, geom.Pt(0, 0, 0.5))
	require.NoError(t, err)
	assert.Equal(t, Unity, v)

	other, err := NewTable(
		[]solid.Named{{Name: "core", Solid: solid.Everywhere{}}},
		[]field.Pair{{Multiplier: "1", Geometry: "1"}},
	)
	require.NoError(t, err)
	foreign, _ := other.Lookup("core")
	_, err = tbl.Evaluate(foreign, geom.Pt(0, 0, 0))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeConfiguration))
	assert.Contains(t, err.Error(), "not in this table")
}

// countingSolid records how often it is queried.
type countingSolid struct {
	solid.Solid
	calls *int
}

func (c countingSolid) Contains(p geom.Point) bool {
	*c.calls++
	return c.Solid.Contains(p)
}

func TestClassifyFirstMatchWins(t *testing.T) {
	var aCalls, bCalls int
	a := &Region{Name: "a", Solid: countingSolid{xBelow(10), &aCalls}, Multiplier: field.Constant(1), Geometry: field.Constant(1)}
	b := &Region{Name: "b", Solid: countingSolid{xBelow(20), &bCalls}, Multiplier: field.Constant(2), Geometry: field.Constant(1)}

	tbl, err := New(a, b)
	require.NoError(t, err)
	c := tbl.Classifier(OutsideBaseline)

	tests := []struct {
		name string
		p    geom.Point
		want string
	}{
		{"inside both", geom.Pt(5, 0, 0), "a"},
		{"on a's boundary", geom.Pt(10, 0, 0), "a"},
		{"only b", geom.Pt(15, 0, 0), "b"},
		{"neither", geom.Pt(25, 0, 0), "none"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 3; i++ {
				assert.Equal(t, tt.want, c.Classify(tt.p).String())
			}
		})
	}

	aCalls, bCalls = 0, 0
	c.Classify(geom.Pt(5, 0, 0))
	assert.Equal(t, 1, aCalls)
	assert.Equal(t, 0, bCalls, "later regions are not consulted once one matches")

	reversed := NewClassifier([]*Region{tbl.Regions()[1], tbl.Regions()[0]}, OutsideBaseline)
	assert.Equal(t, "b", reversed.Classify(geom.Pt(5, 0, 0)).String(), "declaration order decides overlaps")
}

func TestClassifyNearest(t *testing.T) {
	left, err := solid.Box(geom.Pt(0, 0, 0), geom.Pt(2, 2, 2), 0)
	require.NoError(t, err)
	right, err := solid.Box(geom.Pt(10, 0, 0), geom.Pt(2, 2, 2), 0)
	require.NoError(t, err)
	opaque := solid.Func(func(p geom.Point) bool { return p.Z > 100 })

	tbl, err := New(
		&Region{Name: "opaque", Solid: opaque, Multiplier: field.Constant(1), Geometry: field.Constant(1)},
		&Region{Name: "left", Solid: left, Multiplier: field.Constant(1), Geometry: field.Constant(1)},
		&Region{Name: "right", Solid: right, Multiplier: field.Constant(1), Geometry: field.Constant(1)},
	)
	require.NoError(t, err)

	baseline := tbl.Classifier(OutsideBaseline)
	nearest := tbl.Classifier(OutsideNearest)

	assert.Nil(t, baseline.Classify(geom.Pt(3, 0, 0)))
	assert.Equal(t, "left", nearest.Classify(geom.Pt(3, 0, 0)).String())
	assert.Equal(t, "right", nearest.Classify(geom.Pt(7.5, 0, 0)).String())
	assert.Equal(t, "left", nearest.Classify(geom.Pt(5, 0, 0)).String(), "ties go to the earlier region")
	assert.Equal(t, "opaque", nearest.Classify(geom.Pt(5, 0, 200)).String())
}

func TestParseOutsidePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    OutsidePolicy
		wantErr bool
	}{
		{"", OutsideBaseline, false},
		{"baseline", OutsideBaseline, false},
		{" Nearest ", OutsideNearest, false},
		{"zero", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOutsidePolicy(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
