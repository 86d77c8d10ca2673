// Package tape flattens an expression graph into a linear program and
// specializes such programs for a spatial region.
//
// A tape is a list of records in dependency order: every operand refers to
// an earlier position, and the value of the tape is the value of its root
// record. Tapes are immutable once built and may be shared between
// goroutines; evaluators keep their scratch state separately.
package tape

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/LukeP0WERS/fidget/pkg/graph"
)

// Slot is a position on a tape.
type Slot uint32

// Record is a single tape instruction.
type Record struct {
	Op   graph.Op
	Args [2]Slot // operands; unary ops use Args[0] only
	Imm  float64 // OpConst
	Var  int     // OpInput: index into the tape's variable table
}

// Operands returns the slots this record reads.
func (r Record) Operands() []Slot {
	switch r.Op.Arity() {
	case 1:
		return r.Args[:1]
	case 2:
		return r.Args[:2]
	}
	return nil
}

// recordKey identifies records for deduplication. Constants compare by bit
// pattern so NaN and signed zeros deduplicate exactly.
type recordKey struct {
	op   graph.Op
	args [2]Slot
	bits uint64
	v    int
}

func (r Record) key() recordKey {
	k := recordKey{op: r.Op, args: r.Args, v: r.Var}
	if r.Op == graph.OpConst {
		k.bits = math.Float64bits(r.Imm)
	}
	return k
}

// Var is an entry in a tape's variable table.
type Var struct {
	ID   graph.VarID
	Name string
}

// Tape is a compiled expression.
type Tape struct {
	records   []Record
	root      Slot
	vars      []Var
	origin    []Slot // position of each record in the full tape
	decisions []Decision
	choices   int
}

// New builds a tape from raw records and validates it. The tape is treated
// as a full tape: each record is its own origin.
func New(records []Record, root Slot, vars []Var) (*Tape, error) {
	t := &Tape{
		records: append([]Record(nil), records...),
		root:    root,
		vars:    append([]Var(nil), vars...),
	}
	t.origin = make([]Slot, len(t.records))
	for i := range t.origin {
		t.origin[i] = Slot(i)
	}
	t.countChoices()
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tape) countChoices() {
	t.choices = lo.CountBy(t.records, func(r Record) bool { return r.Op.IsChoice() })
}

// Len returns the number of records.
func (t *Tape) Len() int { return len(t.records) }

// Record returns the record at slot i.
func (t *Tape) Record(i Slot) Record { return t.records[i] }

// Records returns the tape's records. The slice must not be modified.
func (t *Tape) Records() []Record { return t.records }

// Root returns the slot holding the tape's value.
func (t *Tape) Root() Slot { return t.root }

// Vars returns the variable table. Evaluators take one value per entry, in
// this order. A specialized tape shares its parent's table.
func (t *Tape) Vars() []Var { return t.vars }

// VarIndex returns the binding position of a variable.
func (t *Tape) VarIndex(id graph.VarID) (int, bool) {
	for i, v := range t.vars {
		if v.ID == id {
			return i, true
		}
	}
	return -1, false
}

// AxisIndex returns the binding positions of x, y and z, or -1 for axes
// the tape does not read.
func (t *Tape) AxisIndex() [3]int {
	var out [3]int
	for a := range out {
		out[a], _ = t.VarIndex(graph.VarID(a))
	}
	return out
}

// ChoiceCount returns the number of min/max records. Choice slices passed
// to Simplify and filled by evaluators have this length, ordered by slot.
func (t *Tape) ChoiceCount() int { return t.choices }

// Decisions returns the min/max records removed on the way from the full
// tape to this one, in the order they were removed.
func (t *Tape) Decisions() []Decision { return t.decisions }

// Origin returns the full-tape position of the record at slot i.
func (t *Tape) Origin(i Slot) Slot { return t.origin[i] }

// Uses reports whether the tape contains an op.
func (t *Tape) Uses(op graph.Op) bool {
	return lo.ContainsBy(t.records, func(r Record) bool { return r.Op == op })
}

// OpCounts returns the number of records per op.
func (t *Tape) OpCounts() map[graph.Op]int {
	return lo.CountValuesBy(t.records, func(r Record) graph.Op { return r.Op })
}

// Validate checks that every operand precedes its user, variables are in
// range and the root exists.
func (t *Tape) Validate() error {
	if len(t.records) == 0 {
		return &SlotError{Msg: "empty tape", Err: ErrBadSlot}
	}
	if int(t.root) >= len(t.records) {
		return &SlotError{Pos: t.root, Msg: "root out of range", Err: ErrBadSlot}
	}
	for i, r := range t.records {
		pos := Slot(i)
		arity := r.Op.Arity()
		if arity < 0 || arity > 2 {
			return &SlotError{Pos: pos, Msg: fmt.Sprintf("op %s cannot appear on a tape", r.Op), Err: ErrBadRecord}
		}
		for _, a := range r.Operands() {
			if a >= pos {
				return &SlotError{Pos: pos, Msg: fmt.Sprintf("operand $%d does not precede its user", a), Err: ErrBadSlot}
			}
		}
		if r.Op == graph.OpInput && (r.Var < 0 || r.Var >= len(t.vars)) {
			return &SlotError{Pos: pos, Msg: fmt.Sprintf("variable %d out of range", r.Var), Err: ErrBadSlot}
		}
	}
	return nil
}

// String disassembles the tape.
func (t *Tape) String() string {
	var sb strings.Builder
	for i, r := range t.records {
		fmt.Fprintf(&sb, "$%d = %s", i, r.Op)
		switch r.Op {
		case graph.OpConst:
			fmt.Fprintf(&sb, " %g", r.Imm)
		case graph.OpInput:
			fmt.Fprintf(&sb, " %s", t.vars[r.Var].Name)
		default:
			for _, a := range r.Operands() {
				fmt.Fprintf(&sb, " $%d", a)
			}
		}
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "root $%d\n", t.root)
	return sb.String()
}

// sortVars orders a variable table by id so axes come first.
func sortVars(vars []Var) {
	sort.Slice(vars, func(i, j int) bool { return vars[i].ID < vars[j].ID })
}
