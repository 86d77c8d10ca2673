package eval

import (
	"github.com/LukeP0WERS/fidget/pkg/graph"
	"github.com/LukeP0WERS/fidget/pkg/interval"
	"github.com/LukeP0WERS/fidget/pkg/tape"
)

// IntervalEval computes conservative bounds for a tape over a region and
// records, for every min and max, whether one operand provably wins there.
type IntervalEval struct {
	tape    *tape.Tape
	values  []interval.Interval
	choices []tape.Choice
}

// NewIntervalEval returns an interval evaluator for t.
func NewIntervalEval(t *tape.Tape) *IntervalEval {
	return &IntervalEval{
		tape:    t,
		values:  make([]interval.Interval, t.Len()),
		choices: make([]tape.Choice, t.ChoiceCount()),
	}
}

// Tape returns the tape being evaluated.
func (e *IntervalEval) Tape() *tape.Tape { return e.tape }

// Eval bounds the tape's value when each variable ranges over the matching
// interval. It replaces the choices from any previous evaluation.
func (e *IntervalEval) Eval(vars []interval.Interval) (interval.Interval, error) {
	if err := checkVars(e.tape, len(vars)); err != nil {
		return interval.Interval{}, err
	}
	clear(e.choices)
	return e.run(vars), nil
}

// EvalSubdiv splits the region n times along its widest variable, evaluates
// each piece and returns the hull. The bound is often tighter than a single
// Eval. Choices are combined over all pieces, so they hold for the whole
// region.
func (e *IntervalEval) EvalSubdiv(vars []interval.Interval, n int) (interval.Interval, error) {
	if err := checkVars(e.tape, len(vars)); err != nil {
		return interval.Interval{}, err
	}
	clear(e.choices)
	region := append([]interval.Interval(nil), vars[:len(e.tape.Vars())]...)
	return e.subdiv(region, n), nil
}

func (e *IntervalEval) subdiv(vars []interval.Interval, n int) interval.Interval {
	if n <= 0 || len(vars) == 0 {
		return e.run(vars)
	}
	widest := 0
	for i, v := range vars {
		if v.Width() > vars[widest].Width() {
			widest = i
		}
	}
	whole := vars[widest]
	lo, hi := whole.Split()
	vars[widest] = lo
	a := e.subdiv(vars, n-1)
	vars[widest] = hi
	b := e.subdiv(vars, n-1)
	vars[widest] = whole
	return interval.Hull(a, b)
}

// run evaluates every record, ORing min/max tags into the choice slice.
func (e *IntervalEval) run(vars []interval.Interval) interval.Interval {
	v := e.values
	next := 0
	for i, r := range e.tape.Records() {
		switch r.Op {
		case graph.OpInput:
			v[i] = vars[r.Var]
		case graph.OpConst:
			v[i] = interval.Point(r.Imm)
		case graph.OpNeg:
			v[i] = interval.Neg(v[r.Args[0]])
		case graph.OpAbs:
			v[i] = interval.Abs(v[r.Args[0]])
		case graph.OpRecip:
			v[i] = interval.Recip(v[r.Args[0]])
		case graph.OpSqrt:
			v[i] = interval.Sqrt(v[r.Args[0]])
		case graph.OpSquare:
			v[i] = interval.Square(v[r.Args[0]])
		case graph.OpSin:
			v[i] = interval.Sin(v[r.Args[0]])
		case graph.OpCos:
			v[i] = interval.Cos(v[r.Args[0]])
		case graph.OpExp:
			v[i] = interval.Exp(v[r.Args[0]])
		case graph.OpLn:
			v[i] = interval.Ln(v[r.Args[0]])
		case graph.OpAdd:
			v[i] = interval.Add(v[r.Args[0]], v[r.Args[1]])
		case graph.OpSub:
			v[i] = interval.Sub(v[r.Args[0]], v[r.Args[1]])
		case graph.OpMul:
			v[i] = interval.Mul(v[r.Args[0]], v[r.Args[1]])
		case graph.OpDiv:
			v[i] = interval.Div(v[r.Args[0]], v[r.Args[1]])
		case graph.OpMin, graph.OpMax:
			a, b := v[r.Args[0]], v[r.Args[1]]
			if r.Op == graph.OpMin {
				v[i] = interval.Min(a, b)
			} else {
				v[i] = interval.Max(a, b)
			}
			e.choices[next] |= tag(r.Op, interval.Compare(a, b))
			next++
		default:
			v[i] = interval.NaN()
		}
	}
	return v[e.tape.Root()]
}

// tag converts an interval ordering into a min/max choice. Overlapping or
// touching operands keep both branches.
func tag(op graph.Op, o interval.Order) tape.Choice {
	switch {
	case o == interval.Below && op == graph.OpMin, o == interval.Above && op == graph.OpMax:
		return tape.ChoiceLeft
	case o == interval.Above && op == graph.OpMin, o == interval.Below && op == graph.OpMax:
		return tape.ChoiceRight
	default:
		return tape.ChoiceBoth
	}
}

// Values returns the interval computed for every tape slot by the last
// evaluation. After EvalSubdiv it holds the slots of the last sub-region
// visited, not the hull EvalSubdiv returned. The slice is reused by the
// next call.
func (e *IntervalEval) Values() []interval.Interval { return e.values }

// Choices returns the min/max tags from the last evaluation, one per
// min/max record in slot order.
func (e *IntervalEval) Choices() []tape.Choice { return e.choices }

// Simplify specializes the tape using the last evaluation's choices. The
// result is only valid inside the evaluated region.
func (e *IntervalEval) Simplify() (*tape.Tape, error) {
	return tape.Simplify(e.tape, e.choices)
}

// Classify reports whether a bound proves a region empty (entirely
// outside) or full (entirely inside). A bound that may be NaN proves
// nothing.
func Classify(b interval.Interval) (empty, full bool) {
	if b.PossiblyNaN() {
		return false, false
	}
	return b.Lo > 0, b.Hi < 0
}
