package jit

import (
	"fmt"
	"math"

	"github.com/LukeP0WERS/fidget/pkg/graph"
	"github.com/LukeP0WERS/fidget/pkg/tape"
)

// vop is an operation in the scalar program a tape is lowered to.
type vop uint8

const (
	vInput  vop = iota // in[idx]
	vConst             // imm
	vAdd               // a + b
	vSub               // a - b
	vMul               // a × b
	vDiv               // a ÷ b
	vMin               // graph.Min(a, b)
	vMax               // graph.Max(a, b)
	vNeg               // -a
	vAbs               // |a|
	vSqrt              // √a
	vSelect            // a < b ? c : d
	vStore             // out[idx] = a
)

var vopNames = [...]string{
	vInput: "input", vConst: "const", vAdd: "add", vSub: "sub", vMul: "mul",
	vDiv: "div", vMin: "min", vMax: "max", vNeg: "neg", vAbs: "abs",
	vSqrt: "sqrt", vSelect: "select", vStore: "store",
}

func (op vop) String() string {
	if int(op) < len(vopNames) {
		return vopNames[op]
	}
	return fmt.Sprintf("vop(%d)", int(op))
}

func (op vop) arity() int {
	switch op {
	case vInput, vConst:
		return 0
	case vNeg, vAbs, vSqrt, vStore:
		return 1
	case vSelect:
		return 4
	default:
		return 2
	}
}

// inst is one instruction of the scalar program. Its value is identified by
// its index; stores produce no value.
type inst struct {
	op   vop
	args [4]int
	imm  float64
	idx  int
}

// program is a straight-line scalar program in SSA form.
type program struct {
	insts []inst
	nin   int // values read per point
	nout  int // values written per point
}

type lowerer struct {
	p      *program
	consts map[uint64]int
}

func (l *lowerer) emit(in inst) int {
	l.p.insts = append(l.p.insts, in)
	return len(l.p.insts) - 1
}

func (l *lowerer) op(op vop, args ...int) int {
	in := inst{op: op}
	copy(in.args[:], args)
	return l.emit(in)
}

func (l *lowerer) constant(v float64) int {
	bits := math.Float64bits(v)
	if id, ok := l.consts[bits]; ok {
		return id
	}
	id := l.emit(inst{op: vConst, imm: v})
	l.consts[bits] = id
	return id
}

// lower converts a tape to a scalar program. In gradient mode the program
// also carries forward-mode derivatives with respect to every tape
// variable, using the same arithmetic as the interpreter so results agree
// bit for bit. Transcendental ops are not supported.
func lower(t *tape.Tape, grad bool) (*program, error) {
	nv := len(t.Vars())
	l := &lowerer{p: &program{nin: nv, nout: 1}, consts: make(map[uint64]int)}
	if grad {
		l.p.nout = 1 + nv
	}

	val := make([]int, t.Len())
	var der [][]int
	if grad {
		der = make([][]int, t.Len())
	}

	for i, r := range t.Records() {
		if r.Op.IsTranscendental() {
			return nil, fmt.Errorf("jit: %s at $%d: %w", r.Op, i, ErrUnsupported)
		}
		var a, b int
		switch r.Op.Arity() {
		case 1:
			a = val[r.Args[0]]
		case 2:
			a, b = val[r.Args[0]], val[r.Args[1]]
		}

		switch r.Op {
		case graph.OpInput:
			val[i] = l.emit(inst{op: vInput, idx: r.Var})
		case graph.OpConst:
			val[i] = l.constant(r.Imm)
		case graph.OpNeg:
			val[i] = l.op(vNeg, a)
		case graph.OpAbs:
			val[i] = l.op(vAbs, a)
		case graph.OpRecip:
			val[i] = l.op(vDiv, l.constant(1), a)
		case graph.OpSqrt:
			val[i] = l.op(vSqrt, a)
		case graph.OpSquare:
			val[i] = l.op(vMul, a, a)
		case graph.OpAdd:
			val[i] = l.op(vAdd, a, b)
		case graph.OpSub:
			val[i] = l.op(vSub, a, b)
		case graph.OpMul:
			val[i] = l.op(vMul, a, b)
		case graph.OpDiv:
			val[i] = l.op(vDiv, a, b)
		case graph.OpMin:
			val[i] = l.op(vMin, a, b)
		case graph.OpMax:
			val[i] = l.op(vMax, a, b)
		default:
			return nil, fmt.Errorf("jit: %s at $%d: %w", r.Op, i, ErrUnsupported)
		}

		if grad {
			der[i] = l.derivative(r, a, b, val[i], der, nv)
		}
	}

	root := t.Root()
	l.emit(inst{op: vStore, args: [4]int{val[root]}, idx: 0})
	if grad {
		for j, d := range der[root] {
			l.emit(inst{op: vStore, args: [4]int{d}, idx: 1 + j})
		}
	}
	return l.p, nil
}

// derivative emits the partials of record r. a and b are the operand
// values and v the record's own value.
func (l *lowerer) derivative(r tape.Record, a, b, v int, der [][]int, nv int) []int {
	out := make([]int, nv)
	switch r.Op {
	case graph.OpInput:
		for j := range out {
			if j == r.Var {
				out[j] = l.constant(1)
			} else {
				out[j] = l.constant(0)
			}
		}
		return out
	case graph.OpConst:
		for j := range out {
			out[j] = l.constant(0)
		}
		return out
	}

	da := der[r.Args[0]]
	var db []int
	if r.Op.Arity() == 2 {
		db = der[r.Args[1]]
	}

	// Terms shared by every partial.
	var shared int
	switch r.Op {
	case graph.OpRecip:
		shared = l.op(vMul, a, a)
	case graph.OpSqrt:
		shared = l.op(vAdd, v, v)
	case graph.OpSquare:
		shared = l.op(vAdd, a, a)
	case graph.OpDiv:
		shared = l.op(vMul, b, b)
	case graph.OpAbs:
		shared = l.constant(0)
	}

	for j := range out {
		switch r.Op {
		case graph.OpNeg:
			out[j] = l.op(vNeg, da[j])
		case graph.OpAbs:
			out[j] = l.op(vSelect, a, shared, l.op(vNeg, da[j]), da[j])
		case graph.OpRecip:
			out[j] = l.op(vNeg, l.op(vDiv, da[j], shared))
		case graph.OpSqrt:
			out[j] = l.op(vDiv, da[j], shared)
		case graph.OpSquare:
			out[j] = l.op(vMul, shared, da[j])
		case graph.OpAdd:
			out[j] = l.op(vAdd, da[j], db[j])
		case graph.OpSub:
			out[j] = l.op(vSub, da[j], db[j])
		case graph.OpMul:
			out[j] = l.op(vAdd, l.op(vMul, a, db[j]), l.op(vMul, b, da[j]))
		case graph.OpDiv:
			num := l.op(vSub, l.op(vMul, da[j], b), l.op(vMul, a, db[j]))
			out[j] = l.op(vDiv, num, shared)
		case graph.OpMin:
			out[j] = l.op(vSelect, a, b, da[j], db[j])
		case graph.OpMax:
			out[j] = l.op(vSelect, b, a, da[j], db[j])
		}
	}
	return out
}
