// Package region binds solids to their field pairs and classifies points.
//
// A [Region] is a named solid with a multiplier field and a geometry field.
// A [Table] holds the regions of a project in declaration order and is
// read-only once built. A [Classifier] selects the region containing a
// point: when regions overlap, the one declared first wins, independent of
// how the underlying solids are implemented.
package region

import (
	stderrors "errors"
	"fmt"

	"github.com/vtprint/vtp/pkg/errors"
	"github.com/vtprint/vtp/pkg/field"
	"github.com/vtprint/vtp/pkg/geom"
	"github.com/vtprint/vtp/pkg/solid"
)

// Region is a named solid with its bound field pair.
type Region struct {
	Index      int // Declaration order, starting at 0
	Name       string
	Solid      solid.Solid
	Multiplier field.Evaluator
	Geometry   field.Evaluator
}

// Values are the field values of a region at one point.
type Values struct {
	Multiplier float64 `json:"multiplier"`
	Geometry   float64 `json:"geometry"`
}

// Unity is the field pair that reproduces the slicer's own extrusion.
var Unity = Values{Multiplier: 1, Geometry: 1}

// Evaluate evaluates both fields at p. Evaluation errors are annotated with
// the region name.
func (r *Region) Evaluate(p geom.Point) (Values, error) {
	m, err := r.Multiplier.Evaluate(p)
	if err != nil {
		return Values{}, r.annotate(err)
	}
	g, err := r.Geometry.Evaluate(p)
	if err != nil {
		return Values{}, r.annotate(err)
	}
	return Values{Multiplier: m, Geometry: g}, nil
}

// Exprs returns the source text of both fields, when known.
func (r *Region) Exprs() (mult, geo string) {
	return exprString(r.Multiplier), exprString(r.Geometry)
}

// String returns the region name.
func (r *Region) String() string {
	if r == nil {
		return "none"
	}
	return r.Name
}

func (r *Region) annotate(err error) error {
	var evalErr *errors.EvaluationError
	if stderrors.As(err, &evalErr) {
		annotated := *evalErr
		annotated.Region = r.Name
		return &annotated
	}
	return &errors.EvaluationError{Region: r.Name, Cause: err}
}

func exprString(e field.Evaluator) string {
	if s, ok := e.(fmt.Stringer); ok {
		return s.String()
	}
	if c, ok := e.(field.Constant); ok {
		return fmt.Sprint(float64(c))
	}
	return ""
}
