// Package eval executes tapes. Each evaluator owns its scratch storage and
// must not be shared between goroutines; the tape it runs may be.
//
// Variables are bound positionally: value i belongs to tape.Vars()[i].
// Specialized tapes share their parent's variable table, so one binding
// slice serves a whole subdivision tree.
package eval

import (
	"fmt"

	"github.com/LukeP0WERS/fidget/pkg/graph"
	"github.com/LukeP0WERS/fidget/pkg/interval"
	"github.com/LukeP0WERS/fidget/pkg/tape"
)

// Point evaluates a tape at single points. It is implemented by PointEval
// and by natively compiled functions.
type Point interface {
	Eval(vars []float64) (float64, error)
	Tape() *tape.Tape
}

func checkVars(t *tape.Tape, n int) error {
	if want := len(t.Vars()); n < want {
		return fmt.Errorf("eval: got %d values for %d variables: %w", n, want, ErrMissingVar)
	}
	return nil
}

// axisBinding places x, y and z at their binding positions. It fails if the
// tape reads any variable other than the axes.
func axisBinding[T any](t *tape.Tape, xyz [3]T) ([]T, error) {
	vars := t.Vars()
	out := make([]T, len(vars))
	for i, v := range vars {
		if v.ID > graph.VarZ {
			return nil, fmt.Errorf("eval: variable %q is not an axis: %w", v.Name, ErrMissingVar)
		}
		out[i] = xyz[v.ID]
	}
	return out, nil
}

// BindXYZ returns a binding slice for a tape that reads only the axes.
func BindXYZ(t *tape.Tape, x, y, z float64) ([]float64, error) {
	return axisBinding(t, [3]float64{x, y, z})
}

// BindRegion returns interval bindings for a tape that reads only the axes.
func BindRegion(t *tape.Tape, x, y, z interval.Interval) ([]interval.Interval, error) {
	return axisBinding(t, [3]interval.Interval{x, y, z})
}

// EvalXYZ evaluates p at (x, y, z).
func EvalXYZ(p Point, x, y, z float64) (float64, error) {
	vars, err := BindXYZ(p.Tape(), x, y, z)
	if err != nil {
		return 0, err
	}
	return p.Eval(vars)
}
