// Package split subdivides straight motion segments at a bounded spatial
// resolution and at every region boundary they cross.
//
// A segment P0→P1 is parametrised as P(t) = P0 + t·(P1−P0), t in [0, 1]. It
// is first cut into n = ceil(L/Increment) equal pieces. Wherever the region
// classification changes inside a piece, or the midpoint of a piece
// disagrees with its ends, the piece is bisected until every crossing is
// bracketed to within Tolerance millimetres.
//
// # Boundary Convention
//
// Sub-segments are left-closed: every cut begins the sub-segment on its
// right, which carries the region reached by moving forward from the cut.
// A cut lies within Tolerance of the true crossing. When a crossing falls
// within Tolerance of an existing cut (in particular when a sample lands
// exactly on a boundary) the crossing is placed on that cut, so a boundary
// point starts the forward region's sub-segment.
//
// Bisection depth is capped by MaxIterations and the number of crossings
// per segment by MaxBoundaries; exceeding either returns a
// *errors.GeometryAmbiguityError instead of guessing a region.
package split

import (
	"math"

	"github.com/vtprint/vtp/pkg/errors"
	"github.com/vtprint/vtp/pkg/geom"
	"github.com/vtprint/vtp/pkg/region"
)

// Defaults.
const (
	DefaultIncrement     = 1.0  // mm
	DefaultTolerance     = 1e-4 // mm
	DefaultMaxIterations = 64
	DefaultMaxBoundaries = 256
)

// Options configures a Splitter.
type Options struct {
	Increment     float64 // Maximum sub-segment length in mm
	Tolerance     float64 // Boundary location tolerance in mm
	MaxIterations int     // Bisection depth cap per crossing
	MaxBoundaries int     // Crossing cap per segment
}

// SetDefaults fills zero fields with defaults.
func (o *Options) SetDefaults() {
	if o.Increment == 0 {
		o.Increment = DefaultIncrement
	}
	if o.Tolerance == 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.MaxIterations == 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.MaxBoundaries == 0 {
		o.MaxBoundaries = DefaultMaxBoundaries
	}
}

// Validate checks the options after defaults have been applied.
func (o Options) Validate() error {
	if err := errors.ValidatePositive("eval_increment", o.Increment); err != nil {
		return err
	}
	if err := errors.ValidatePositive("tolerance", o.Tolerance); err != nil {
		return err
	}
	if o.Tolerance >= o.Increment {
		return errors.New(errors.ErrCodeConfiguration,
			"tolerance %g must be smaller than eval_increment %g", o.Tolerance, o.Increment)
	}
	if o.MaxIterations < 1 || o.MaxBoundaries < 1 {
		return errors.New(errors.ErrCodeConfiguration, "iteration and boundary caps must be positive")
	}
	return nil
}

// Classifier maps a point to its region; nil means no region.
type Classifier interface {
	Classify(p geom.Point) *region.Region
}

// SubSegment is one region-homogeneous piece of a split segment.
type SubSegment struct {
	From, To geom.Point
	T0, T1   float64 // Parameters of From and To on the original segment
	Region   *region.Region
	Length   float64
}

// Midpoint returns the point halfway along the sub-segment.
func (s SubSegment) Midpoint() geom.Point {
	return geom.Midpoint(s.From, s.To)
}

// Splitter splits segments against a fixed classifier.
// A Splitter is immutable and safe for concurrent use.
type Splitter struct {
	classifier Classifier
	opts       Options
}

// New returns a Splitter. Zero options take their defaults.
func New(c Classifier, opts Options) (*Splitter, error) {
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Splitter{classifier: c, opts: opts}, nil
}

// Options returns the effective options.
func (s *Splitter) Options() Options { return s.opts }

// Split cuts p0→p1 into region-homogeneous sub-segments no longer than the
// increment. Sub-segment lengths sum to |p1−p0|.
//
// A zero-length segment yields one zero-length sub-segment classified at p0.
func (s *Splitter) Split(p0, p1 geom.Point) ([]SubSegment, error) {
	length := geom.Distance(p0, p1)
	if length == 0 {
		return []SubSegment{{
			From: p0, To: p1, T0: 0, T1: 1,
			Region: s.classifier.Classify(p0),
		}}, nil
	}
	if !geom.Finite(p0) || !geom.Finite(p1) || math.IsInf(length, 0) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "segment endpoints are not finite")
	}

	w := &walker{
		s:      s,
		p0:     p0,
		p1:     p1,
		length: length,
		tol:    s.opts.Tolerance / length,
		ts:     []float64{0},
	}
	if err := w.walk(Pieces(length, s.opts.Increment)); err != nil {
		return nil, err
	}
	return w.segments(), nil
}

// Pieces returns the number of equal pieces needed so that none is longer
// than increment. Quotients within rounding noise of an integer are snapped,
// so 10 mm at 1 mm gives exactly 10 pieces.
func Pieces(length, increment float64) int {
	q := length / increment
	if r := math.Round(q); r >= 1 && math.Abs(q-r) <= 1e-9*r {
		return int(r)
	}
	n := int(math.Ceil(q))
	if n < 1 {
		n = 1
	}
	return n
}

type walker struct {
	s          *Splitter
	p0, p1     geom.Point
	length     float64
	tol        float64 // Tolerance as a fraction of the segment
	ts         []float64
	boundaries int
}

func (w *walker) classify(t float64) *region.Region {
	return w.s.classifier.Classify(geom.Lerp(w.p0, w.p1, t))
}

func (w *walker) walk(n int) error {
	prev := w.classify(0)
	for i := 1; i <= n; i++ {
		a := float64(i-1) / float64(n)
		b := float64(i) / float64(n)
		cur := w.classify(b)
		if err := w.refine(a, b, prev, cur, 0); err != nil {
			return err
		}
		// A crossing within tolerance of b moves onto b.
		if last := w.ts[len(w.ts)-1]; last > a && b-last <= w.tol {
			w.ts[len(w.ts)-1] = b
		} else {
			w.ts = append(w.ts, b)
		}
		prev = cur
	}
	return nil
}

// refine makes [a, b] region-homogeneous, appending every crossing found
// strictly inside it to w.ts in increasing order.
func (w *walker) refine(a, b float64, ca, cb *region.Region, depth int) error {
	width := b - a
	if width <= w.tol {
		if ca != cb {
			return w.cross(b)
		}
		return nil
	}

	m := a + width/2
	cm := w.classify(m)
	if ca == cb && cm == ca {
		return nil
	}
	if depth >= w.s.opts.MaxIterations {
		return w.ambiguous(depth, "bisection did not converge within the iteration cap")
	}
	if err := w.refine(a, m, ca, cm, depth+1); err != nil {
		return err
	}
	return w.refine(m, b, cm, cb, depth+1)
}

// cross records a crossing at t. A crossing within tolerance of the
// previous cut or of the segment end is merged into it.
func (w *walker) cross(t float64) error {
	if t >= 1-w.tol || t-w.ts[len(w.ts)-1] <= w.tol {
		return nil
	}
	w.boundaries++
	if w.boundaries > w.s.opts.MaxBoundaries {
		return w.ambiguous(w.boundaries, "too many region crossings on one segment")
	}
	w.ts = append(w.ts, t)
	return nil
}

func (w *walker) ambiguous(iterations int, reason string) error {
	return &errors.GeometryAmbiguityError{From: w.p0, To: w.p1, Iterations: iterations, Reason: reason}
}

func (w *walker) segments() []SubSegment {
	out := make([]SubSegment, 0, len(w.ts)-1)
	for k := 1; k < len(w.ts); k++ {
		t0, t1 := w.ts[k-1], w.ts[k]
		from := geom.Lerp(w.p0, w.p1, t0)
		to := geom.Lerp(w.p0, w.p1, t1)
		out = append(out, SubSegment{
			From:   from,
			To:     to,
			T0:     t0,
			T1:     t1,
			Region: w.classify((t0 + t1) / 2),
			Length: w.length * (t1 - t0),
		})
	}
	return out
}
