// Package field evaluates scalar fields over machine coordinates.
//
// A field is a real-valued function of the variables x, y and z. Fields are
// compiled once from expression text and then evaluated many times; a
// compiled field has no hidden state, so one value may be evaluated from
// any number of goroutines.
//
// # Expression Language
//
// Expressions are compiled with github.com/expr-lang/expr. Besides numeric
// literals and the variables x, y and z, the following are available:
//
//   - Operators: + - * / and ** or ^ for powers; comparisons and the
//     ternary operator (cond ? a : b) for piecewise fields
//   - Constants: pi, e
//   - Functions: sin cos tan asin acos atan atan2 sinh cosh tanh exp log
//     log10 log2 sqrt pow hypot mod, and the builtins abs min max floor
//     ceil round
//
// An expression that is undefined at a point (division by zero, a domain
// error such as sqrt(-1) or log(0)) yields an [errors.EvaluationError]
// rather than NaN or an infinity.
package field

import (
	"github.com/vtprint/vtp/pkg/geom"
)

// Evaluator is a scalar field over machine coordinates.
//
// Implementations must be pure: the result depends only on p. A point where
// the field is undefined yields an *errors.EvaluationError.
type Evaluator interface {
	Evaluate(p geom.Point) (float64, error)
}

// Constant is a field with the same value everywhere.
type Constant float64

// Evaluate returns c.
func (c Constant) Evaluate(geom.Point) (float64, error) {
	return float64(c), nil
}

// Func adapts an ordinary function to an Evaluator.
type Func func(p geom.Point) (float64, error)

// Evaluate calls f(p).
func (f Func) Evaluate(p geom.Point) (float64, error) {
	return f(p)
}
