package field

import (
	"fmt"
	"math"

	"github.com/expr-lang/expr"
)

var (
	unary  = new(func(float64) float64)
	binary = new(func(float64, float64) float64)
)

// functions lists the math functions available to expressions. Functions
// with a restricted domain return an error outside it instead of NaN.
var functions = []expr.Option{
	fn1("sin", math.Sin, nil),
	fn1("cos", math.Cos, nil),
	fn1("tan", math.Tan, nil),
	fn1("asin", math.Asin, within(-1, 1)),
	fn1("acos", math.Acos, within(-1, 1)),
	fn1("atan", math.Atan, nil),
	fn1("sinh", math.Sinh, nil),
	fn1("cosh", math.Cosh, nil),
	fn1("tanh", math.Tanh, nil),
	fn1("exp", math.Exp, nil),
	fn1("log", math.Log, positive),
	fn1("log10", math.Log10, positive),
	fn1("log2", math.Log2, positive),
	fn1("sqrt", math.Sqrt, nonNegative),
	fn2("atan2", math.Atan2, nil),
	fn2("pow", math.Pow, nil),
	fn2("hypot", math.Hypot, nil),
	fn2("div", func(a, b float64) float64 { return a / b }, func(_, b float64) error {
		if b == 0 {
			return fmt.Errorf("division by zero")
		}
		return nil
	}),
	fn2("mod", math.Mod, func(_, b float64) error {
		if b == 0 {
			return fmt.Errorf("mod: division by zero")
		}
		return nil
	}),
}

func fn1(name string, f func(float64) float64, check func(string, float64) error) expr.Option {
	return expr.Function(name, func(params ...any) (any, error) {
		a, err := toFloat(name, params[0])
		if err != nil {
			return nil, err
		}
		if check != nil {
			if err := check(name, a); err != nil {
				return nil, err
			}
		}
		return f(a), nil
	}, unary)
}

func fn2(name string, f func(float64, float64) float64, check func(a, b float64) error) expr.Option {
	return expr.Function(name, func(params ...any) (any, error) {
		a, err := toFloat(name, params[0])
		if err != nil {
			return nil, err
		}
		b, err := toFloat(name, params[1])
		if err != nil {
			return nil, err
		}
		if check != nil {
			if err := check(a, b); err != nil {
				return nil, err
			}
		}
		return f(a, b), nil
	}, binary)
}

// toFloat converts an argument and rejects NaN and infinities, so an
// undefined intermediate value cannot be hidden by a saturating function
// such as atan or exp.
func toFloat(name string, v any) (float64, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	default:
		return 0, fmt.Errorf("%s: argument has type %T", name, v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%s: argument %g is not finite", name, f)
	}
	return f, nil
}

func within(lo, hi float64) func(string, float64) error {
	return func(name string, a float64) error {
		if a < lo || a > hi {
			return fmt.Errorf("%s(%g): argument outside [%g, %g]", name, a, lo, hi)
		}
		return nil
	}
}

func positive(name string, a float64) error {
	if a <= 0 {
		return fmt.Errorf("%s(%g): argument must be positive", name, a)
	}
	return nil
}

func nonNegative(name string, a float64) error {
	if a < 0 {
		return fmt.Errorf("%s(%g): argument must not be negative", name, a)
	}
	return nil
}
