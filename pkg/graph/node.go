package graph

import (
	"fmt"
	"math"
)

// Op enumerates the operations a node can perform.
type Op uint8

const (
	OpInvalid Op = iota
	OpInput       // input variable (axis or named)
	OpConst       // constant value
	OpNeg         // -a
	OpAbs         // |a|
	OpRecip       // 1/a
	OpSqrt        // √a
	OpSquare      // a²
	OpSin         // sin a
	OpCos         // cos a
	OpExp         // eᵃ
	OpLn          // ln a
	OpAdd         // a + b
	OpSub         // a - b
	OpMul         // a × b
	OpDiv         // a ÷ b
	OpMin         // min(a, b)
	OpMax         // max(a, b)
	OpRemap       // shape evaluated at (x', y', z')
	opCount
)

var opNames = [opCount]string{
	OpInvalid: "invalid",
	OpInput:   "input",
	OpConst:   "const",
	OpNeg:     "neg",
	OpAbs:     "abs",
	OpRecip:   "recip",
	OpSqrt:    "sqrt",
	OpSquare:  "square",
	OpSin:     "sin",
	OpCos:     "cos",
	OpExp:     "exp",
	OpLn:      "ln",
	OpAdd:     "add",
	OpSub:     "sub",
	OpMul:     "mul",
	OpDiv:     "div",
	OpMin:     "min",
	OpMax:     "max",
	OpRemap:   "remap",
}

func (op Op) String() string {
	if op < opCount {
		return opNames[op]
	}
	return fmt.Sprintf("Op(%d)", int(op))
}

// ParseOp returns the op with the given name.
func ParseOp(name string) (Op, bool) {
	for i, n := range opNames {
		if n == name && Op(i) != OpInvalid {
			return Op(i), true
		}
	}
	return OpInvalid, false
}

// Arity returns the number of operands the op takes, or -1 for OpInvalid.
func (op Op) Arity() int {
	switch {
	case op == OpInput || op == OpConst:
		return 0
	case op >= OpNeg && op <= OpLn:
		return 1
	case op >= OpAdd && op <= OpMax:
		return 2
	case op == OpRemap:
		return 4
	default:
		return -1
	}
}

// IsUnary reports whether op takes a single operand.
func (op Op) IsUnary() bool { return op.Arity() == 1 }

// IsBinary reports whether op takes two operands.
func (op Op) IsBinary() bool { return op.Arity() == 2 }

// IsChoice reports whether op selects one of its operands (min or max).
// Interval evaluation may prove the selection constant over a region.
func (op Op) IsChoice() bool { return op == OpMin || op == OpMax }

// IsCommutative reports whether swapping the operands preserves the value.
// min and max are excluded: their tie-breaking returns the right operand.
func (op Op) IsCommutative() bool { return op == OpAdd || op == OpMul }

// IsTranscendental reports whether op is sin, cos, exp or ln.
func (op Op) IsTranscendental() bool {
	return op == OpSin || op == OpCos || op == OpExp || op == OpLn
}

// Unary applies a unary op to a scalar. Every numeric backend uses these
// semantics, so results agree bit for bit with constant folding.
func (op Op) Unary(a float64) float64 {
	switch op {
	case OpNeg:
		return -a
	case OpAbs:
		return math.Abs(a)
	case OpRecip:
		return 1 / a
	case OpSqrt:
		return math.Sqrt(a)
	case OpSquare:
		return a * a
	case OpSin:
		return math.Sin(a)
	case OpCos:
		return math.Cos(a)
	case OpExp:
		return math.Exp(a)
	case OpLn:
		return math.Log(a)
	}
	panic(fmt.Sprintf("graph: %s is not a unary op", op))
}

// Binary applies a binary op to two scalars.
func (op Op) Binary(a, b float64) float64 {
	switch op {
	case OpAdd:
		return a + b
	case OpSub:
		return a - b
	case OpMul:
		return a * b
	case OpDiv:
		return a / b
	case OpMin:
		return Min(a, b)
	case OpMax:
		return Max(a, b)
	}
	panic(fmt.Sprintf("graph: %s is not a binary op", op))
}

// Min returns the smaller of a and b. If either is NaN the result is NaN;
// on a tie the right operand is returned (so min(-0, +0) is +0).
func Min(a, b float64) float64 {
	if a < b {
		return a
	}
	if a != a || b != b {
		return math.NaN()
	}
	return b
}

// Max returns the larger of a and b with the same NaN and tie rules as Min.
func Max(a, b float64) float64 {
	if a > b {
		return a
	}
	if a != a || b != b {
		return math.NaN()
	}
	return b
}

// NodeID identifies a node within its Context. Ids are dense, assigned in
// insertion order, and never reused. An operand always has a smaller id
// than the node that uses it.
type NodeID uint32

// VarID identifies an input variable within a Context.
type VarID uint32

// Reserved variables for the coordinate axes.
const (
	VarX VarID = iota
	VarY
	VarZ
)

// Node is an immutable operation with references to its operands.
type Node struct {
	Op    Op
	Args  [4]NodeID // only the first Op.Arity() entries are meaningful
	Value float64   // OpConst only
	Var   VarID     // OpInput only
}

// Operands returns the node's operand ids.
func (n Node) Operands() []NodeID {
	k := n.Op.Arity()
	if k <= 0 {
		return nil
	}
	return n.Args[:k]
}

// nodeKey is the content address of a node. Constants are keyed by their
// bit pattern so that -0 and +0 stay distinct and NaN deduplicates.
type nodeKey struct {
	op   Op
	args [4]NodeID
	bits uint64
	v    VarID
}

func (n Node) key() nodeKey {
	k := nodeKey{op: n.Op, v: n.Var}
	copy(k.args[:], n.Operands())
	if n.Op == OpConst {
		k.bits = math.Float64bits(n.Value)
	}
	return k
}
