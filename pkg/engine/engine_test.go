package engine

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vtprint/vtp/pkg/errors"
	"github.com/vtprint/vtp/pkg/extrusion"
	"github.com/vtprint/vtp/pkg/field"
	"github.com/vtprint/vtp/pkg/gcode"
	"github.com/vtprint/vtp/pkg/geom"
	"github.com/vtprint/vtp/pkg/region"
	"github.com/vtprint/vtp/pkg/solid"
)

func everywhere(name string, mult, geo float64) *region.Region {
	return &region.Region{
		Name:       name,
		Solid:      solid.Everywhere{},
		Multiplier: field.Constant(mult),
		Geometry:   field.Constant(geo),
	}
}

// below holds the points with x <= 5.
func below(name string, mult float64) *region.Region {
	return &region.Region{
		Name:       name,
		Solid:      solid.HalfSpace{Normal: geom.Pt(1, 0, 0), Offset: 5},
		Multiplier: field.Constant(mult),
		Geometry:   field.Constant(1),
	}
}

func newEngine(t *testing.T, opts Options, regions ...*region.Region) *Engine {
	t.Helper()
	tbl, err := region.New(regions...)
	require.NoError(t, err)
	opts.Regions = tbl
	e, err := New(opts)
	require.NoError(t, err)
	return e
}

func run(t *testing.T, e *Engine, program string) *Result {
	t.Helper()
	res, err := e.Run(context.Background(), []byte(program))
	require.NoError(t, err)
	return res
}

// tagged returns the generated lines of out.
func tagged(out []byte) []string {
	var lines []string
	for _, l := range strings.Split(string(out), "\n") {
		if gcode.Parse(l, 0).Tagged() {
			lines = append(lines, l)
		}
	}
	return lines
}

// relativeE sums the E words of the G1 lines of a relative-extrusion program.
func relativeE(out []byte) float64 {
	var sum float64
	for _, l := range strings.Split(string(out), "\n") {
		c := gcode.Parse(l, 0)
		if c.IsMove() && c.E.Set {
			sum += c.E.Value
		}
	}
	return sum
}

func TestTenMillimetreMove(t *testing.T) {
	e := newEngine(t, Options{}, everywhere("all", 1, 1))
	res := run(t, e, "G90\nM83\nG1 X0 Y0 Z0.2 F1800\n;TYPE:Perimeter\nG1 X10 Y0 E2.0\n")

	lines := tagged(res.Output)
	require.Len(t, lines, 10)
	assert.Equal(t, "G1 X1.000 Y0.000 E0.20000 F1800 ; vtp:all", lines[0])
	assert.Equal(t, "G1 X10.000 Y0.000 E0.20000 F1800 ; vtp:all", lines[9])

	assert.InDelta(t, 2.0, relativeE(res.Output), 1e-9)
	assert.InDelta(t, 2.0, res.Stats.DepositedE, 1e-6)
	assert.Equal(t, 1, res.Stats.MovesTransformed)
	assert.Equal(t, 10, res.Stats.SubMoves)
	assert.Equal(t, 5, res.Stats.LinesIn)
	assert.Equal(t, 14, res.Stats.LinesOut)
	assert.True(t, strings.HasPrefix(string(res.Output), "G90\nM83\nG1 X0 Y0 Z0.2 F1800\n;TYPE:Perimeter\n"))
	assert.True(t, strings.HasSuffix(string(res.Output), "\n"))
}

func TestUnityConvergesToBaseline(t *testing.T) {
	e := newEngine(t, Options{}, everywhere("all", 1, 1))
	var b strings.Builder
	b.WriteString("M83\n")
	var want float64
	for i := 1; i <= 50; i++ {
		de := 0.013 * float64(i%7+1)
		want += de
		fmt.Fprintf(&b, "G1 X%.3f Y%.3f E%.5f\n", 3.7*float64(i), 1.3*float64(i%5), de)
	}
	res := run(t, e, b.String())

	assert.InDelta(t, res.Stats.BaselineE, res.Stats.DepositedE, 1e-9)
	assert.InDelta(t, want, res.Stats.BaselineE, 1e-9)
	assert.InDelta(t, want, relativeE(res.Output), 1e-4)
	assert.InDelta(t, 1.0, res.Stats.Ratio(), 1e-12)
}

func TestZeroLengthMove(t *testing.T) {
	e := newEngine(t, Options{}, everywhere("all", 3, 1))
	res := run(t, e, "M83\nG1 E0.5 F300\n")

	assert.Equal(t, "M83\nG1 E0.50000 F300 ; vtp:all\n", string(res.Output))
	assert.Equal(t, 1, res.Stats.SubMoves)
}

func TestAbsoluteExtrusionResync(t *testing.T) {
	e := newEngine(t, Options{}, below("core", 2))
	res := run(t, e, "M82\nG92 E0\nG1 X10 E2\nG1 X20 E4\n")

	lines := tagged(res.Output)
	require.Len(t, lines, 21)
	assert.Equal(t, "G1 X1.000 E0.40000 ; vtp:core", lines[0])
	assert.Equal(t, "G1 X6.000 E2.20000 ; vtp:none", lines[5])
	assert.Equal(t, "G1 X10.000 E3.00000 ; vtp:none", lines[9])
	assert.Equal(t, "G92 E2.00000 ; vtp:resync", lines[10])
	// The second move lies outside and keeps its extrusion, so its counter
	// ends where the source's does.
	assert.Equal(t, "G1 X20.000 E4.00000 ; vtp:none", lines[20])
	assert.Equal(t, 1, res.Stats.Resyncs)

	assert.InDelta(t, 2.0, res.Stats.PerRegion["core"].E, 1e-9)
	assert.InDelta(t, 5.0, res.Stats.PerRegion["core"].Length, 1e-9)
	assert.InDelta(t, 3.0, res.Stats.PerRegion[TagNone].E, 1e-9)
	assert.Equal(t, []string{"core", TagNone}, res.Stats.Regions())
	assert.InDelta(t, 5.0, res.Stats.DepositedE, 1e-9)
	assert.InDelta(t, 4.0, res.Stats.BaselineE, 1e-9)
}

func TestRelativePositioning(t *testing.T) {
	e := newEngine(t, Options{}, everywhere("all", 1, 1))
	res := run(t, e, "G91\nM83\nG1 X10 E2\nG1 Y-2.5 E0.5\n")

	var x, y float64
	for _, l := range tagged(res.Output) {
		c := gcode.Parse(l, 0)
		x += c.X.Or(0)
		y += c.Y.Or(0)
	}
	assert.InDelta(t, 10, x, 1e-9)
	assert.InDelta(t, -2.5, y, 1e-9)
	assert.Len(t, tagged(res.Output), 13)
	assert.Equal(t, "G1 X1.000 E0.20000 ; vtp:all", tagged(res.Output)[0])
}

func TestIdempotence(t *testing.T) {
	sphere, err := solid.Sphere(geom.Pt(10, 10, 0), 6)
	require.NoError(t, err)
	regions := []*region.Region{
		{
			Name:       "ball",
			Solid:      sphere,
			Multiplier: field.MustCompile("multiplier", "1 + 0.05*x"),
			Geometry:   field.MustCompile("geometry", "1.5"),
		},
	}

	for _, mode := range []string{"M82", "M83"} {
		t.Run(mode, func(t *testing.T) {
			e := newEngine(t, Options{}, regions...)
			program := mode + "\nG92 E0\n;TYPE:External perimeter\nG1 X0 Y0 Z0.2 F1200\n" +
				"G1 X20 Y0 E1.2\nG1 X20 Y20 E2.4\nG1 X0 Y20 E3.6\nG1 X0 Y0 E4.8\n" +
				";TYPE:Solid infill\nG1 X20 Y20 E6.5\n"
			if mode == "M83" {
				program = "M83\nG92 E0\n;TYPE:External perimeter\nG1 X0 Y0 Z0.2 F1200\n" +
					"G1 X20 Y0 E1.2\nG1 X20 Y20 E1.2\nG1 X0 Y20 E1.2\nG1 X0 Y0 E1.2\n" +
					";TYPE:Solid infill\nG1 X20 Y20 E1.7\n"
			}

			first := run(t, e, program)
			require.Equal(t, 5, first.Stats.MovesTransformed)
			second := run(t, e, string(first.Output))

			assert.Equal(t, string(first.Output), string(second.Output))
			assert.Zero(t, second.Stats.MovesTransformed)
		})
	}
}

func TestNozzleCheck(t *testing.T) {
	const program = "M82\nG92 E0\nG1 X5 Y5 E1.5 F600 ; nozzle check\nG1 X10 E3\n"

	t.Run("removed", func(t *testing.T) {
		e := newEngine(t, Options{}, everywhere("all", 1, 1))
		res := run(t, e, program)

		out := strings.Split(string(res.Output), "\n")
		assert.Equal(t, []string{
			"M82",
			"G92 E0",
			"G1 X5.000 Y5.000 F15000 ; vtp:nozzle-check",
			"G1 F600 ; vtp:feed",
			"G92 E1.50000 ; vtp:resync",
		}, out[:5])
		assert.Equal(t, 1, res.Stats.NozzleChecksRemoved)
		assert.Equal(t, 1, res.Stats.MovesTransformed)
		assert.InDelta(t, 1.5, res.Stats.BaselineE, 1e-12)
	})

	t.Run("kept", func(t *testing.T) {
		e := newEngine(t, Options{KeepNozzleCheck: true}, everywhere("all", 1, 1))
		res := run(t, e, program)

		assert.Zero(t, res.Stats.NozzleChecksRemoved)
		assert.Equal(t, 2, res.Stats.MovesTransformed)
		assert.InDelta(t, 3.0, res.Stats.DepositedE, 1e-9)
	})

	t.Run("relative without axes", func(t *testing.T) {
		e := newEngine(t, Options{}, everywhere("all", 1, 1))
		res := run(t, e, "M83\nG1 E2 F300 ; nozzle check\nG1 X1 E0.1\n")

		assert.Equal(t, "M83\nG1 X1.000 E0.10000 F300 ; vtp:all\n", string(res.Output))
	})
}

func TestPassThrough(t *testing.T) {
	e := newEngine(t, Options{}, everywhere("all", 2, 1))
	program := strings.Join([]string{
		"; generated by a slicer",
		"M104 S215",
		"G28",
		"M83",
		"G1 Z0.2 F9000",
		"G1 X5 Y5 F9000 ; travel",
		"G1 E-0.8 F2100 ; retract",
		"G1 X6 E0.3 ; wipe",
		"G1 X1..2 E1",
		"G1 X7 E0.1 ; vtp:all",
		"M117 Ending",
	}, "\r\n") + "\r\n"

	res := run(t, e, program)
	assert.Equal(t, program, string(res.Output))
	assert.Zero(t, res.Stats.MovesTransformed)
}

func TestStartCodePassesThrough(t *testing.T) {
	e := newEngine(t, Options{}, everywhere("all", 2, 1))

	t.Run("annotated", func(t *testing.T) {
		start := "M83\nG1 Z0.3 F3000\nG1 X60 E9 F1000 ; intro line\nG1 X100 E12.5\n"
		res := run(t, e, start+";TYPE:Perimeter\nG1 X101 E0.1\n")

		assert.True(t, strings.HasPrefix(string(res.Output), start))
		assert.Equal(t, 1, res.Stats.MovesTransformed)
		assert.NotEmpty(t, tagged(res.Output))
	})

	t.Run("unannotated", func(t *testing.T) {
		res := run(t, e, "M83\nG1 X1 E0.1\n")
		assert.Equal(t, 1, res.Stats.MovesTransformed)
	})
}

func TestLayerCount(t *testing.T) {
	e := newEngine(t, Options{}, everywhere("all", 1, 1))
	res := run(t, e, "M83\n;Z:0.2\n;TYPE:Perimeter\nG1 X1 Z0.2 E0.1\n;Z:0.4\nG1 X2 Z0.4 E0.1\n;Z:0.4\n;Z:0.6\nG1 X3 Z0.6 E0.1\n")

	assert.Equal(t, 3, res.Stats.Layers)
	assert.Equal(t, 3, res.Stats.MovesTransformed)
}

func TestLineEndingsPreserved(t *testing.T) {
	e := newEngine(t, Options{}, everywhere("all", 1, 1))
	res := run(t, e, "M83\r\nG1 X2 E0.4\r\nM400")

	assert.Equal(t, "M83\r\nG1 X1.000 E0.20000 ; vtp:all\r\nG1 X2.000 E0.20000 ; vtp:all\r\nM400", string(res.Output))
}

func TestFeatureFilter(t *testing.T) {
	e := newEngine(t, Options{Features: []string{"Infill"}}, everywhere("all", 1, 1))
	res := run(t, e, "M83\n;TYPE:Perimeter\nG1 X1 E0.1\n;TYPE:Infill\nG1 X2 E0.1\nG1 X3 E0.1 ; perimeter\n")

	assert.Equal(t, 1, res.Stats.MovesTransformed)
	lines := tagged(res.Output)
	require.Len(t, lines, 1)
	assert.Equal(t, "G1 X2.000 E0.10000 ; vtp:all", lines[0])
}

func TestVolumetricFeed(t *testing.T) {
	e := newEngine(t, Options{FeedMode: extrusion.FeedVolumetric}, everywhere("all", 2, 1))
	res := run(t, e, "M83\nG1 X1 E0.05 F1800\n")

	model, err := extrusion.NewModel(extrusion.DefaultParams(), extrusion.FeedVolumetric)
	require.NoError(t, err)
	want := model.Feed(region.Values{Multiplier: 2, Geometry: 1}, 1800)

	lines := tagged(res.Output)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], " F"+gcode.FormatFloat(want, -1)+" ")
	assert.Equal(t, "G1 F1800 ; vtp:feed", lines[1])
}

func TestOutsideNearest(t *testing.T) {
	e := newEngine(t, Options{Outside: region.OutsideNearest}, below("core", 2))
	res := run(t, e, "M83\nG1 X10 E1\n")

	assert.NotContains(t, res.Stats.PerRegion, TagNone)
	assert.InDelta(t, 2.0, res.Stats.DepositedE, 1e-9)
}

func TestParallelMatchesSequential(t *testing.T) {
	sphere, err := solid.Sphere(geom.Pt(25, 25, 1), 12)
	require.NoError(t, err)
	regions := []*region.Region{
		{
			Name:       "ball",
			Solid:      sphere,
			Multiplier: field.MustCompile("multiplier", "1 + 0.3*sin(x/3)"),
			Geometry:   field.MustCompile("geometry", "0.8 + 0.01*y"),
		},
		everywhere("rest", 1.1, 1),
	}

	var b strings.Builder
	b.WriteString("M82\nG92 E0\n")
	var e float64
	for i := 0; i < 400; i++ {
		e += 0.07
		fmt.Fprintf(&b, "G1 X%.3f Y%.3f Z%.2f E%.5f F1500\n",
			25+20*math.Cos(float64(i)*0.37), 25+20*math.Sin(float64(i)*0.53), 0.2+float64(i/100)*0.2, e)
	}

	seq := run(t, newEngine(t, Options{Workers: 1}, regions...), b.String())
	par := run(t, newEngine(t, Options{Workers: 8}, regions...), b.String())

	assert.Equal(t, string(seq.Output), string(par.Output))
	assert.Equal(t, seq.Stats.PerRegion, par.Stats.PerRegion)
	assert.Equal(t, seq.Stats.DepositedE, par.Stats.DepositedE)
}

func TestErrorNamesEarliestLine(t *testing.T) {
	regions := []*region.Region{{
		Name:       "all",
		Solid:      solid.Everywhere{},
		Multiplier: field.MustCompile("multiplier", "sqrt(4 - x)"),
		Geometry:   field.Constant(1),
	}}
	program := "M83\nG1 X2 E0.1\nG1 X8 E0.3\nG1 X12 E0.2\nG1 X20 E0.4\n"

	for _, workers := range []int{1, 4} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			e := newEngine(t, Options{Workers: workers}, regions...)
			res, err := e.Run(context.Background(), []byte(program))
			require.Error(t, err)
			assert.Nil(t, res)

			var se *errors.SourceError
			require.True(t, stderrors.As(err, &se))
			assert.Equal(t, 3, se.Line)
			assert.Equal(t, "G1 X8 E0.3", se.Text)
			assert.True(t, errors.Is(err, errors.ErrCodeEvaluation))

			var ee *errors.EvaluationError
			require.True(t, stderrors.As(err, &ee))
			assert.Equal(t, "all", ee.Region)
		})
	}
}

func TestNegativeAreaIsAnError(t *testing.T) {
	e := newEngine(t, Options{}, everywhere("all", -1, 1))
	_, err := e.Run(context.Background(), []byte("M83\nG1 X1 E0.1\n"))
	assert.True(t, errors.Is(err, errors.ErrCodeEvaluation))
}

func TestGeometryAmbiguity(t *testing.T) {
	striped := &region.Region{
		Name:       "stripes",
		Solid:      solid.Func(func(p geom.Point) bool { return math.Mod(p.X+0.25, 1) < 0.5 }),
		Multiplier: field.Constant(1),
		Geometry:   field.Constant(1),
	}
	opts := Options{}
	opts.Split.Increment = 100
	opts.Split.MaxBoundaries = 4
	e := newEngine(t, opts, striped)

	_, err := e.Run(context.Background(), []byte("M83\nG1 X30.5 E1\n"))
	assert.True(t, errors.Is(err, errors.ErrCodeGeometryAmbiguity))

	var se *errors.SourceError
	require.True(t, stderrors.As(err, &se))
	assert.Equal(t, 2, se.Line)
}

func TestProgress(t *testing.T) {
	var (
		mu    sync.Mutex
		calls [][2]int
	)
	opts := Options{
		Workers: 3,
		Progress: func(done, total int) {
			mu.Lock()
			calls = append(calls, [2]int{done, total})
			mu.Unlock()
		},
	}
	e := newEngine(t, opts, everywhere("all", 1, 1))
	run(t, e, "M83\nG1 X1 E0.1\nG1 X2 E0.1\nG1 X3 E0.1\nG1 X4 E0.1\n")

	require.Len(t, calls, 4)
	assert.Equal(t, [2]int{4, 4}, calls[3])
}

func TestCancelled(t *testing.T) {
	e := newEngine(t, Options{}, everywhere("all", 1, 1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Run(ctx, []byte("M83\nG1 X1 E0.1\n"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRewrite(t *testing.T) {
	e := newEngine(t, Options{}, everywhere("all", 1, 1))
	s := NewPrintState()
	s.AbsoluteE = false

	lines, next, err := e.Rewrite(s, gcode.Parse("G1 X2 E0.4 F1200", 1))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"G1 X1.000 E0.20000 F1200 ; vtp:all",
		"G1 X2.000 E0.20000 F1200 ; vtp:all",
	}, lines)
	assert.Equal(t, geom.Pt(2, 0, 0), next.Pos)
	assert.Equal(t, 1200.0, next.Feed)

	lines, _, err = e.Rewrite(next, gcode.Parse("G1 X4 F9000 ; travel", 2))
	require.NoError(t, err)
	assert.Equal(t, []string{"G1 X4 F9000 ; travel"}, lines)
}

func TestProcess(t *testing.T) {
	e := newEngine(t, Options{}, everywhere("all", 1, 1))
	var out strings.Builder
	stats, err := e.Process(context.Background(), strings.NewReader("M83\nG1 X1 E0.1\n"), &out)
	require.NoError(t, err)
	assert.Equal(t, "M83\nG1 X1.000 E0.10000 ; vtp:all\n", out.String())
	assert.Equal(t, 1, stats.MovesTransformed)
}

func TestOptionsValidate(t *testing.T) {
	_, err := New(Options{})
	assert.True(t, errors.Is(err, errors.ErrCodeConfiguration))

	tbl, err := region.New(everywhere("all", 1, 1))
	require.NoError(t, err)

	tests := []struct {
		name string
		opts Options
		code errors.Code
	}{
		{"travel feature", Options{Features: []string{"travel"}}, errors.ErrCodeConfiguration},
		{"outside policy", Options{Outside: "sideways"}, errors.ErrCodeConfiguration},
		{"feed mode", Options{FeedMode: "fast"}, errors.ErrCodeConfiguration},
		{"nozzle", Options{Params: extrusion.Params{Alpha: 1, NozzleDia: -0.4, FilDia: 1.75, EDot: 250}}, errors.ErrCodePhysicalParameter},
		{"travel speed", Options{TravelSpeed: math.NaN()}, errors.ErrCodePhysicalParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.Regions = tbl
			_, err := New(tt.opts)
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err))
		})
	}
}
