// Package engine rewrites G-code programs so that every extruding move
// deposits according to the region it passes through.
//
// A run makes three passes over the program. The scan pass walks the lines in
// order, threading a PrintState through them and selecting the moves to
// transform. The plan pass splits each selected move and recomputes its
// extrusion; moves are independent here, so this pass may run on a worker
// pool. The emit pass writes the program back in source order, replacing
// each selected move with its sub-moves and copying everything else.
package engine

import (
	"bytes"
	"context"
	"io"
	"math"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/vtprint/vtp/pkg/errors"
	"github.com/vtprint/vtp/pkg/extrusion"
	"github.com/vtprint/vtp/pkg/gcode"
	"github.com/vtprint/vtp/pkg/geom"
	"github.com/vtprint/vtp/pkg/split"
)

// Tags written on generated lines that do not belong to a region.
const (
	TagNone        = "none"
	TagResync      = "resync"
	TagFeed        = "feed"
	TagNozzleCheck = "nozzle-check"
)

// Engine rewrites programs against one region table.
// An Engine is immutable and safe for concurrent use.
type Engine struct {
	opts     Options
	splitter *split.Splitter
	model    *extrusion.Model
	features map[gcode.Feature]bool
}

// New validates opts and returns an Engine.
func New(opts Options) (*Engine, error) {
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	splitter, err := split.New(opts.Regions.Classifier(opts.Outside), opts.Split)
	if err != nil {
		return nil, err
	}
	model, err := extrusion.NewModel(opts.Params, opts.FeedMode)
	if err != nil {
		return nil, err
	}
	var features map[gcode.Feature]bool
	if len(opts.Features) > 0 {
		features = make(map[gcode.Feature]bool, len(opts.Features))
		for _, f := range opts.Features {
			features[gcode.Normalise(f)] = true
		}
	}
	return &Engine{opts: opts, splitter: splitter, model: model, features: features}, nil
}

// Options returns the effective options.
func (e *Engine) Options() Options { return e.opts }

// Result is the outcome of a run.
type Result struct {
	Output []byte
	Stats  Stats
}

type action int

const (
	actionCopy action = iota
	actionTransform
	actionNozzleCheck
)

type step struct {
	cmd    gcode.Command
	before PrintState
	action action
	job    *job
}

type job struct {
	from, to geom.Point
	baseE    float64
	feed     float64
	pieces   []extrusion.Piece
	total    float64
	err      error
}

// Run transforms a whole program. On error no output is produced and the
// error is an *errors.SourceError naming the earliest failing line.
func (e *Engine) Run(ctx context.Context, program []byte) (*Result, error) {
	lines, trailing := gcode.Split(program)
	steps, jobs, layers, err := e.scan(ctx, lines)
	if err != nil {
		return nil, err
	}
	if err := e.plan(ctx, jobs); err != nil {
		return nil, err
	}
	for _, st := range steps {
		if st.job != nil && st.job.err != nil {
			return nil, sourceError(st.cmd, st.job.err)
		}
	}

	res := &Result{Stats: newStats(len(lines))}
	res.Stats.Layers = layers
	var buf bytes.Buffer
	buf.Grow(len(program) + len(program)/4)
	for _, st := range steps {
		eol := gcode.LineEnding(st.cmd.Raw)
		var out []string
		switch st.action {
		case actionTransform:
			out = e.rewrite(st, &res.Stats)
		case actionNozzleCheck:
			out = e.nozzleCheck(st, &res.Stats)
		default:
			buf.WriteString(st.cmd.Raw)
			buf.WriteByte('\n')
			res.Stats.LinesOut++
			continue
		}
		for _, l := range out {
			buf.WriteString(l)
			buf.WriteString(eol)
			buf.WriteByte('\n')
		}
		res.Stats.LinesOut += len(out)
	}
	res.Output = buf.Bytes()
	if !trailing && len(res.Output) > 0 {
		res.Output = res.Output[:len(res.Output)-1]
	}

	e.opts.Logger.Debug("transformed program",
		"lines", res.Stats.LinesIn,
		"layers", res.Stats.Layers,
		"moves", res.Stats.MovesTransformed,
		"sub_moves", res.Stats.SubMoves,
		"resyncs", res.Stats.Resyncs)
	return res, nil
}

// Process reads a program from r and writes the transformed program to w.
func (e *Engine) Process(ctx context.Context, r io.Reader, w io.Writer) (Stats, error) {
	program, err := io.ReadAll(r)
	if err != nil {
		return Stats{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "read program")
	}
	res, err := e.Run(ctx, program)
	if err != nil {
		return Stats{}, err
	}
	if _, err := w.Write(res.Output); err != nil {
		return Stats{}, errors.Wrap(errors.ErrCodeInternal, err, "write program")
	}
	return res.Stats, nil
}

// Rewrite transforms a single command given the state before it. It returns
// the lines that replace c, or c's own text when c is not transformed, and
// the state after c. For an annotated program, start from a state whose
// Feature is gcode.FeaturePreamble so the start code passes through.
func (e *Engine) Rewrite(s PrintState, c gcode.Command) ([]string, PrintState, error) {
	st := e.step(s, c)
	var stats Stats
	switch st.action {
	case actionTransform:
		if err := e.recompute(st.job); err != nil {
			return nil, s, sourceError(c, err)
		}
		return e.rewrite(st, &stats), s.Step(c), nil
	case actionNozzleCheck:
		return e.nozzleCheck(st, &stats), s.Step(c), nil
	}
	return []string{c.Raw}, s.Step(c), nil
}

// scan parses every line, tracks the print state and queues the moves to
// transform. It also counts the layer changes announced by ;Z: markers.
// In an annotated program the moves before the first ;TYPE: marker are
// start code and pass through.
func (e *Engine) scan(ctx context.Context, lines []string) ([]step, []*job, int, error) {
	steps := make([]step, len(lines))
	var jobs []*job
	s := NewPrintState()
	if gcode.Annotated(lines) {
		s.Feature = gcode.FeaturePreamble
	}
	layers := 0
	for i, raw := range lines {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, 0, err
			}
		}
		c := gcode.Parse(raw, i+1)
		if c.Malformed {
			e.opts.Logger.Debug("passing malformed line through", "line", c.Line, "text", strings.TrimSpace(raw))
		}
		st := e.step(s, c)
		if st.job != nil {
			jobs = append(jobs, st.job)
		}
		steps[i] = st
		next := s.Step(c)
		if next.LayerZ != s.LayerZ {
			layers++
			e.opts.Logger.Debug("layer", "line", c.Line, "z", next.LayerZ)
		}
		s = next
	}
	return steps, jobs, layers, nil
}

func (e *Engine) step(s PrintState, c gcode.Command) step {
	st := step{cmd: c, before: s, action: e.classify(s, c)}
	if st.action == actionTransform {
		st.job = &job{
			from:  s.Pos,
			to:    s.Target(c),
			baseE: s.ExtrusionDelta(c),
			feed:  c.F.Or(s.Feed),
		}
	}
	return st
}

func (e *Engine) classify(s PrintState, c gcode.Command) action {
	if !c.IsMove() || c.Malformed || c.Tagged() {
		return actionCopy
	}
	if gcode.IsNozzleCheck(c.Comment) && !e.opts.KeepNozzleCheck {
		return actionNozzleCheck
	}
	if s.ExtrusionDelta(c) <= 0 {
		return actionCopy
	}
	f := s.LineFeature(c)
	if !f.Deposits() {
		return actionCopy
	}
	if e.features != nil && !e.features[f] {
		return actionCopy
	}
	return actionTransform
}

// plan splits and recomputes every job. Jobs past the earliest failure are
// skipped, so the earliest failing job always has its error set.
func (e *Engine) plan(ctx context.Context, jobs []*job) error {
	var (
		mu   sync.Mutex
		done int
	)
	report := func() {
		if e.opts.Progress == nil {
			return
		}
		mu.Lock()
		done++
		e.opts.Progress(done, len(jobs))
		mu.Unlock()
	}

	if e.opts.Workers == 1 {
		for _, j := range jobs {
			if err := ctx.Err(); err != nil {
				return err
			}
			if j.err = e.recompute(j); j.err != nil {
				return nil
			}
			report()
		}
		return nil
	}

	var firstFail atomic.Int64
	firstFail.Store(math.MaxInt64)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for i, j := range jobs {
		if int64(i) > firstFail.Load() {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if int64(i) > firstFail.Load() {
				return nil
			}
			if j.err = e.recompute(j); j.err != nil {
				for {
					cur := firstFail.Load()
					if int64(i) >= cur || firstFail.CompareAndSwap(cur, int64(i)) {
						break
					}
				}
				return nil
			}
			report()
			return nil
		})
	}
	return g.Wait()
}

func (e *Engine) recompute(j *job) error {
	subs, err := e.splitter.Split(j.from, j.to)
	if err != nil {
		return err
	}
	j.pieces, j.total, err = e.model.Recompute(j.baseE, j.feed, subs)
	return err
}

// rewrite writes the sub-moves of a planned move.
func (e *Engine) rewrite(st step, stats *Stats) []string {
	c, s, j := st.cmd, st.before, st.job
	f := e.opts.Format
	after := s.Step(c)

	start := 0.0
	if s.AbsoluteE {
		start = s.E
	}
	ledger := extrusion.NewLedger(start, f.PrecE)
	pos := newAxisWriter(c, s, f.PrecXYZ)

	out := make([]string, 0, len(j.pieces)+2)
	for _, p := range j.pieces {
		rel, abs := ledger.Next(p.E)
		ev := rel
		if s.AbsoluteE {
			ev = abs
		}
		var feed gcode.Word
		if p.Feed > 0 {
			feed = gcode.W(p.Feed)
		}
		x, y, z := pos.next(p.To)
		tag := TagNone
		if p.Region != nil {
			tag = p.Region.Name
		}
		out = append(out, f.Move(x, y, z, gcode.W(ev), feed, tag))
		stats.addPiece(tag, p)
	}

	if s.AbsoluteE && gcode.FormatFloat(ledger.Printed(), f.PrecE) != gcode.FormatFloat(after.E, f.PrecE) {
		out = append(out, f.SetE(after.E, TagResync))
		stats.Resyncs++
	}
	if e.model.FeedMode() == extrusion.FeedVolumetric && after.Feed > 0 {
		out = append(out, f.Move(gcode.Word{}, gcode.Word{}, gcode.Word{}, gcode.Word{}, gcode.W(after.Feed), TagFeed))
	}

	stats.MovesTransformed++
	stats.baseline.Add(j.baseE)
	stats.deposited.Add(j.total)
	stats.BaselineE = stats.baseline.Sum()
	stats.DepositedE = stats.deposited.Sum()
	return out
}

// nozzleCheck replaces a nozzle-check move with a travel move over the same
// axes. The extrusion counter and modal feed are restored afterwards.
func (e *Engine) nozzleCheck(st step, stats *Stats) []string {
	c, s := st.cmd, st.before
	f := e.opts.Format
	after := s.Step(c)

	var out []string
	if c.HasXYZ() {
		out = append(out, f.Move(c.X, c.Y, c.Z, gcode.Word{}, gcode.W(e.opts.TravelSpeed), TagNozzleCheck))
		if after.Feed > 0 && after.Feed != e.opts.TravelSpeed {
			out = append(out, f.Move(gcode.Word{}, gcode.Word{}, gcode.Word{}, gcode.Word{}, gcode.W(after.Feed), TagFeed))
		}
	}
	if s.AbsoluteE && after.E != s.E {
		out = append(out, f.SetE(after.E, TagResync))
		stats.Resyncs++
	}
	stats.NozzleChecksRemoved++
	return out
}

// axisWriter produces the axis words of consecutive sub-moves. Under
// relative positioning each word is the difference of rounded offsets from
// the move's start, so the printed deltas add up to the source's.
type axisWriter struct {
	c        gcode.Command
	origin   geom.Point
	absolute bool
	scale    float64
	prev     geom.Point
}

func newAxisWriter(c gcode.Command, s PrintState, prec int) *axisWriter {
	return &axisWriter{c: c, origin: s.Pos, absolute: s.AbsolutePos, scale: math.Pow10(prec)}
}

func (w *axisWriter) next(to geom.Point) (x, y, z gcode.Word) {
	if w.absolute {
		return w.word(w.c.X, to.X), w.word(w.c.Y, to.Y), w.word(w.c.Z, to.Z)
	}
	off := geom.Pt(w.round(to.X-w.origin.X), w.round(to.Y-w.origin.Y), w.round(to.Z-w.origin.Z))
	prev := w.prev
	w.prev = off
	return w.word(w.c.X, off.X-prev.X), w.word(w.c.Y, off.Y-prev.Y), w.word(w.c.Z, off.Z-prev.Z)
}

func (w *axisWriter) word(src gcode.Word, v float64) gcode.Word {
	if !src.Set {
		return gcode.Word{}
	}
	return gcode.W(v)
}

func (w *axisWriter) round(v float64) float64 {
	return math.Round(v*w.scale) / w.scale
}

func sourceError(c gcode.Command, err error) error {
	return &errors.SourceError{Line: c.Line, Text: strings.TrimSpace(c.Raw), Err: err}
}
