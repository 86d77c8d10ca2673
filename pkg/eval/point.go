package eval

import (
	"github.com/LukeP0WERS/fidget/pkg/graph"
	"github.com/LukeP0WERS/fidget/pkg/tape"
)

// PointEval interprets a tape at single points.
type PointEval struct {
	tape    *tape.Tape
	slots   []float64
	choices []tape.Choice
}

// NewPointEval returns a point evaluator for t.
func NewPointEval(t *tape.Tape) *PointEval {
	return &PointEval{
		tape:    t,
		slots:   make([]float64, t.Len()),
		choices: make([]tape.Choice, t.ChoiceCount()),
	}
}

// Tape returns the tape being evaluated.
func (e *PointEval) Tape() *tape.Tape { return e.tape }

// Eval computes the tape's value with variables bound positionally.
// The operand each min/max selected is ORed into Choices.
func (e *PointEval) Eval(vars []float64) (float64, error) {
	if err := checkVars(e.tape, len(vars)); err != nil {
		return 0, err
	}
	s := e.slots
	next := 0
	for i, r := range e.tape.Records() {
		switch arity := r.Op.Arity(); {
		case r.Op == graph.OpInput:
			s[i] = vars[r.Var]
		case r.Op == graph.OpConst:
			s[i] = r.Imm
		case arity == 1:
			s[i] = r.Op.Unary(s[r.Args[0]])
		case r.Op.IsChoice():
			a, b := s[r.Args[0]], s[r.Args[1]]
			s[i] = r.Op.Binary(a, b)
			e.choices[next] |= pointChoice(r.Op, a, b)
			next++
		default:
			s[i] = r.Op.Binary(s[r.Args[0]], s[r.Args[1]])
		}
	}
	return s[e.tape.Root()], nil
}

// pointChoice reports which operand of a min or max produced the result.
// Ties and NaN operands count as both.
func pointChoice(op graph.Op, a, b float64) tape.Choice {
	switch {
	case a < b:
		if op == graph.OpMin {
			return tape.ChoiceLeft
		}
		return tape.ChoiceRight
	case a > b:
		if op == graph.OpMin {
			return tape.ChoiceRight
		}
		return tape.ChoiceLeft
	default:
		return tape.ChoiceBoth
	}
}

// Choices returns the accumulated min/max choices since the last
// ResetChoices.
func (e *PointEval) Choices() []tape.Choice { return e.choices }

// ResetChoices clears the accumulated choices.
func (e *PointEval) ResetChoices() { clear(e.choices) }

// Simplify specializes the tape to the branches taken by every point
// evaluated since the last reset.
func (e *PointEval) Simplify() (*tape.Tape, error) {
	return tape.Simplify(e.tape, e.choices)
}
