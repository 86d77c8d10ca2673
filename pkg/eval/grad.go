package eval

import (
	"math"

	"github.com/LukeP0WERS/fidget/pkg/graph"
	"github.com/LukeP0WERS/fidget/pkg/tape"
)

// Grad is a value with its partial derivatives. D[i] is the derivative with
// respect to tape.Vars()[i].
type Grad struct {
	Value float64
	D     []float64
}

// Normal returns the derivatives with respect to x, y and z given the
// tape's axis binding positions. Axes the tape does not read have a zero
// derivative.
func (g Grad) Normal(axes [3]int) [3]float64 {
	var n [3]float64
	for a, i := range axes {
		if i >= 0 && i < len(g.D) {
			n[a] = g.D[i]
		}
	}
	return n
}

// GradEval computes values and first derivatives by forward-mode
// differentiation. At a min or max the derivative follows the operand the
// value came from; at a tie that is the right operand.
type GradEval struct {
	tape  *tape.Tape
	nvars int
	value []float64
	deriv []float64 // slot-major, nvars entries per slot
}

// NewGradEval returns a gradient evaluator for t.
func NewGradEval(t *tape.Tape) *GradEval {
	nv := len(t.Vars())
	return &GradEval{
		tape:  t,
		nvars: nv,
		value: make([]float64, t.Len()),
		deriv: make([]float64, t.Len()*nv),
	}
}

// Tape returns the tape being evaluated.
func (e *GradEval) Tape() *tape.Tape { return e.tape }

// Eval computes the value and gradient at one point.
func (e *GradEval) Eval(vars []float64) (Grad, error) {
	if err := checkVars(e.tape, len(vars)); err != nil {
		return Grad{}, err
	}
	e.run(vars)
	root := int(e.tape.Root())
	g := Grad{Value: e.value[root], D: make([]float64, e.nvars)}
	copy(g.D, e.deriv[root*e.nvars:(root+1)*e.nvars])
	return g, nil
}

// EvalBatch computes gradients for many points. vars is column major as in
// BatchEval; out receives one Grad per point.
func (e *GradEval) EvalBatch(vars [][]float64, out []Grad) error {
	if err := checkVars(e.tape, len(vars)); err != nil {
		return err
	}
	for i := 0; i < e.nvars; i++ {
		if len(vars[i]) < len(out) {
			return ErrShortColumn
		}
	}
	point := make([]float64, e.nvars)
	for k := range out {
		for i := range point {
			point[i] = vars[i][k]
		}
		g, err := e.Eval(point)
		if err != nil {
			return err
		}
		out[k] = g
	}
	return nil
}

func (e *GradEval) run(vars []float64) {
	nv := e.nvars
	v := e.value
	d := func(slot tape.Slot) []float64 { return e.deriv[int(slot)*nv : int(slot+1)*nv] }

	for i, r := range e.tape.Records() {
		out := e.deriv[i*nv : (i+1)*nv]
		switch r.Op {
		case graph.OpInput:
			v[i] = vars[r.Var]
			clear(out)
			out[r.Var] = 1
		case graph.OpConst:
			v[i] = r.Imm
			clear(out)
		default:
			if r.Op.Arity() == 1 {
				a := v[r.Args[0]]
				v[i] = r.Op.Unary(a)
				unaryGrad(r.Op, a, v[i], d(r.Args[0]), out)
			} else {
				a, b := v[r.Args[0]], v[r.Args[1]]
				v[i] = r.Op.Binary(a, b)
				binaryGrad(r.Op, a, b, d(r.Args[0]), d(r.Args[1]), out)
			}
		}
	}
}

// unaryGrad applies the chain rule for a unary op with operand a and
// result v. The arithmetic order is fixed so native code can match it.
func unaryGrad(op graph.Op, a, v float64, da, out []float64) {
	for j, x := range da {
		switch op {
		case graph.OpNeg:
			out[j] = -x
		case graph.OpAbs:
			if a < 0 {
				out[j] = -x
			} else {
				out[j] = x
			}
		case graph.OpRecip:
			out[j] = -(x / (a * a))
		case graph.OpSqrt:
			out[j] = x / (v + v)
		case graph.OpSquare:
			out[j] = (a + a) * x
		case graph.OpSin:
			out[j] = math.Cos(a) * x
		case graph.OpCos:
			out[j] = -math.Sin(a) * x
		case graph.OpExp:
			out[j] = v * x
		case graph.OpLn:
			out[j] = x / a
		}
	}
}

// binaryGrad applies the sum, product and quotient rules. Products are
// rounded individually before being summed.
func binaryGrad(op graph.Op, a, b float64, da, db, out []float64) {
	for j := range out {
		switch op {
		case graph.OpAdd:
			out[j] = da[j] + db[j]
		case graph.OpSub:
			out[j] = da[j] - db[j]
		case graph.OpMul:
			out[j] = float64(a*db[j]) + float64(b*da[j])
		case graph.OpDiv:
			out[j] = (float64(da[j]*b) - float64(a*db[j])) / (b * b)
		case graph.OpMin:
			if a < b {
				out[j] = da[j]
			} else {
				out[j] = db[j]
			}
		case graph.OpMax:
			if a > b {
				out[j] = da[j]
			} else {
				out[j] = db[j]
			}
		}
	}
}
