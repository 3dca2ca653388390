package field

import (
	stderrors "errors"
	"fmt"
	"math"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/vm"

	"github.com/vtprint/vtp/pkg/errors"
	"github.com/vtprint/vtp/pkg/geom"
)

// Expr is a compiled field expression.
type Expr struct {
	name    string
	src     string
	program *vm.Program
}

var _ Evaluator = (*Expr)(nil)

// Compile parses src as a field expression. The name identifies the field in
// evaluation errors (for example "multiplier" or "geometry").
//
// Syntax errors, unknown identifiers and non-numeric results are reported as
// CONFIGURATION errors.
func Compile(name, src string) (*Expr, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, errors.New(errors.ErrCodeConfiguration, "%s: empty expression", name)
	}

	opts := []expr.Option{
		expr.Env(environment(geom.Point{})),
		expr.AsFloat64(),
		expr.Patch(checkedDivision{}),
	}
	opts = append(opts, functions...)

	program, err := expr.Compile(src, opts...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "%s: compile %q", name, src)
	}
	return &Expr{name: name, src: src, program: program}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(name, src string) *Expr {
	e, err := Compile(name, src)
	if err != nil {
		panic(err)
	}
	return e
}

// Name returns the field name given to Compile.
func (e *Expr) Name() string { return e.name }

// String returns the expression source.
func (e *Expr) String() string { return e.src }

// Evaluate evaluates the expression at p.
func (e *Expr) Evaluate(p geom.Point) (float64, error) {
	out, err := expr.Run(e.program, environment(p))
	if err != nil {
		return 0, e.fail(p, err)
	}
	v, ok := out.(float64)
	if !ok {
		return 0, e.fail(p, fmt.Errorf("result has type %T", out))
	}
	if math.IsNaN(v) {
		return 0, e.fail(p, errNaN)
	}
	if math.IsInf(v, 0) {
		return 0, e.fail(p, errInf)
	}
	return v, nil
}

// checkedDivision rewrites every "a / b" into div(a, b), which fails on a
// zero divisor instead of yielding Inf or NaN that a later step could absorb.
type checkedDivision struct{}

func (checkedDivision) Visit(node *ast.Node) {
	b, ok := (*node).(*ast.BinaryNode)
	if !ok || b.Operator != "/" {
		return
	}
	ast.Patch(node, &ast.CallNode{
		Callee:    &ast.IdentifierNode{Value: "div"},
		Arguments: []ast.Node{b.Left, b.Right},
	})
}

func (e *Expr) fail(p geom.Point, cause error) error {
	return &errors.EvaluationError{Field: e.name, Expr: e.src, Point: p, Cause: cause}
}

var (
	errNaN = stderrors.New("result is not a number")
	errInf = stderrors.New("result is infinite (division by zero?)")
)

func environment(p geom.Point) map[string]any {
	return map[string]any{
		"x":  p.X,
		"y":  p.Y,
		"z":  p.Z,
		"pi": math.Pi,
		"e":  math.E,
	}
}
