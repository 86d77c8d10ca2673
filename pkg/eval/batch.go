package eval

import (
	"fmt"

	"github.com/LukeP0WERS/fidget/pkg/graph"
	"github.com/LukeP0WERS/fidget/pkg/tape"
)

// BatchWidth is the number of points evaluated per pass over the tape.
const BatchWidth = 64

// BatchEval interprets a tape over many points, amortizing the dispatch of
// each record over a group of BatchWidth lanes.
type BatchEval struct {
	tape  *tape.Tape
	slots [][BatchWidth]float64
}

// NewBatchEval returns a batch evaluator for t.
func NewBatchEval(t *tape.Tape) *BatchEval {
	return &BatchEval{tape: t, slots: make([][BatchWidth]float64, t.Len())}
}

// Tape returns the tape being evaluated.
func (e *BatchEval) Tape() *tape.Tape { return e.tape }

// Eval fills out[k] with the tape's value at point k. Input is column
// major: vars[i][k] is variable i at point k.
func (e *BatchEval) Eval(vars [][]float64, out []float64) error {
	if err := checkVars(e.tape, len(vars)); err != nil {
		return err
	}
	for i := range e.tape.Vars() {
		if len(vars[i]) < len(out) {
			return fmt.Errorf("eval: column %d has %d values for %d outputs: %w",
				i, len(vars[i]), len(out), ErrShortColumn)
		}
	}
	for start := 0; start < len(out); start += BatchWidth {
		n := min(BatchWidth, len(out)-start)
		e.group(vars, start, n)
		copy(out[start:start+n], e.slots[e.tape.Root()][:n])
	}
	return nil
}

func (e *BatchEval) group(vars [][]float64, start, n int) {
	s := e.slots
	for i, r := range e.tape.Records() {
		dst := s[i][:n]
		switch r.Op.Arity() {
		case 0:
			if r.Op == graph.OpInput {
				copy(dst, vars[r.Var][start:start+n])
			} else {
				for k := range dst {
					dst[k] = r.Imm
				}
			}
		case 1:
			a := s[r.Args[0]][:n]
			for k := range dst {
				dst[k] = r.Op.Unary(a[k])
			}
		case 2:
			a, b := s[r.Args[0]][:n], s[r.Args[1]][:n]
			for k := range dst {
				dst[k] = r.Op.Binary(a[k], b[k])
			}
		}
	}
}
