// Package sdfx adapts tapes to the github.com/deadsy/sdfx SDF3 interface so
// sdfx renderers can sample them. sdfx evaluates from many goroutines;
// each call borrows a pooled evaluator.
package sdfx

import (
	"errors"
	"fmt"
	"sync"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/LukeP0WERS/fidget/internal/logger"
	"github.com/LukeP0WERS/fidget/pkg/eval"
	"github.com/LukeP0WERS/fidget/pkg/graph"
	"github.com/LukeP0WERS/fidget/pkg/jit"
	"github.com/LukeP0WERS/fidget/pkg/tape"
)

// Compile-time interface check.
var _ sdf.SDF3 = (*Field)(nil)

// ErrNotSpatial is returned for tapes reading variables other than x, y
// and z.
var ErrNotSpatial = errors.New("tape reads non-axis variables")

// worker is one goroutine's evaluator and binding buffer.
type worker struct {
	point eval.Point
	vars  []float64
}

// Field is a tape viewed as an sdf.SDF3 over a fixed bounding box.
type Field struct {
	tape   *tape.Tape
	axes   [3]int
	box    sdf.Box3
	native *jit.Function
	pool   sync.Pool
}

// Option configures a Field.
type Option func(*options)

type options struct {
	native bool
}

// WithNative selects natively compiled evaluation when the host supports
// it. It is on by default.
func WithNative(on bool) Option { return func(o *options) { o.native = on } }

// New wraps t, which must read only the axes, as a field bounded by the box
// [min, max].
func New(t *tape.Tape, min, max [3]float64, opts ...Option) (*Field, error) {
	o := options{native: true}
	for _, opt := range opts {
		opt(&o)
	}
	for _, v := range t.Vars() {
		if v.ID > graph.VarZ {
			return nil, fmt.Errorf("sdfx: variable %q: %w", v.Name, ErrNotSpatial)
		}
	}
	for a := 0; a < 3; a++ {
		if !(min[a] < max[a]) {
			return nil, fmt.Errorf("sdfx: empty bounds %v..%v", min, max)
		}
	}

	f := &Field{
		tape: t,
		axes: t.AxisIndex(),
		box: sdf.Box3{
			Min: v3.Vec{X: min[0], Y: min[1], Z: min[2]},
			Max: v3.Vec{X: max[0], Y: max[1], Z: max[2]},
		},
	}
	if o.native {
		fn, err := jit.Compile(t, jit.HostArch())
		switch {
		case err == nil:
			f.native = fn
		case errors.Is(err, jit.ErrUnsupported):
			logger.Get().Debug("sdfx: interpreting tape", "records", t.Len(), "reason", err)
		default:
			return nil, err
		}
	}
	nvars := len(t.Vars())
	f.pool.New = func() any {
		w := &worker{vars: make([]float64, nvars)}
		if f.native != nil {
			w.point = f.native
		} else {
			w.point = eval.NewPointEval(t)
		}
		return w
	}
	return f, nil
}

// Tape returns the wrapped tape.
func (f *Field) Tape() *tape.Tape { return f.tape }

// Native reports whether evaluation runs natively compiled code.
func (f *Field) Native() bool { return f.native != nil }

// Evaluate returns the field value at p.
func (f *Field) Evaluate(p v3.Vec) float64 {
	w := f.pool.Get().(*worker)
	defer f.pool.Put(w)
	for a, v := range [3]float64{p.X, p.Y, p.Z} {
		if i := f.axes[a]; i >= 0 {
			w.vars[i] = v
		}
	}
	// Bindings are complete by construction, so Eval cannot fail.
	v, _ := w.point.Eval(w.vars)
	return v
}

// BoundingBox implements sdf.SDF3.
func (f *Field) BoundingBox() sdf.Box3 { return f.box }

// Bounds returns the bounding box as arrays.
func (f *Field) Bounds() (min, max [3]float64) {
	b := f.box
	return [3]float64{b.Min.X, b.Min.Y, b.Min.Z}, [3]float64{b.Max.X, b.Max.Y, b.Max.Z}
}

// Close releases native code. The field must not be evaluated afterwards.
func (f *Field) Close() error {
	if f.native == nil {
		return nil
	}
	return f.native.Close()
}
