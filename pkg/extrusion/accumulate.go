package extrusion

import "math"

// Accumulator is a Neumaier-compensated running sum.
type Accumulator struct {
	sum float64
	c   float64
}

// Add adds x to the sum.
func (a *Accumulator) Add(x float64) {
	t := a.sum + x
	if math.Abs(a.sum) >= math.Abs(x) {
		a.c += (a.sum - t) + x
	} else {
		a.c += (x - t) + a.sum
	}
	a.sum = t
}

// Sum returns the compensated total.
func (a *Accumulator) Sum() float64 {
	return a.sum + a.c
}

// Ledger turns exact deposits into printable E values without drift.
//
// Every printed value is derived from the exact cumulative total: absolute
// values are round(start + Σe) and relative values are the difference of
// consecutive rounded totals. The printed values of a move therefore add up
// to the rounded exact total, however many pieces it has.
type Ledger struct {
	start   float64
	scale   float64
	acc     Accumulator
	printed float64 // round(start + Σe) after the last Next
}

// NewLedger starts a ledger at the absolute counter value start (0 for
// relative extrusion), rounding to prec decimals.
func NewLedger(start float64, prec int) *Ledger {
	l := &Ledger{start: start, scale: math.Pow10(prec)}
	l.printed = l.round(start)
	return l
}

// Next records deposit e and returns the relative and absolute values to print.
func (l *Ledger) Next(e float64) (relative, absolute float64) {
	l.acc.Add(e)
	abs := l.round(l.start + l.acc.Sum())
	rel := l.round(abs - l.printed)
	l.printed = abs
	return rel, abs
}

// Exact returns start plus the exact sum of deposits so far.
func (l *Ledger) Exact() float64 {
	return l.start + l.acc.Sum()
}

// Printed returns the last absolute value returned by Next.
func (l *Ledger) Printed() float64 { return l.printed }

func (l *Ledger) round(v float64) float64 {
	return math.Round(v*l.scale) / l.scale
}
