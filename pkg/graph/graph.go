package graph

import (
	"fmt"
	"strings"
)

// Context is an arena of hash-consed nodes. Inserting a node that already
// exists returns the existing id, so structurally equal expressions share
// storage. Nodes are never removed or mutated.
//
// A Context is not safe for concurrent mutation; build it from a single
// goroutine, then compile tapes which may be shared freely.
type Context struct {
	nodes    []Node
	index    map[nodeKey]NodeID
	vars     []string
	varIndex map[string]VarID
}

// New creates a Context with the three coordinate axes registered.
func New() *Context {
	c := &Context{
		index:    make(map[nodeKey]NodeID),
		varIndex: make(map[string]VarID),
	}
	for _, name := range []string{"x", "y", "z"} {
		c.varIndex[name] = VarID(len(c.vars))
		c.vars = append(c.vars, name)
	}
	return c
}

// Len returns the number of nodes in the arena.
func (c *Context) Len() int { return len(c.nodes) }

// Get returns the node with the given id.
func (c *Context) Get(id NodeID) (Node, error) {
	if int(id) >= len(c.nodes) {
		return Node{}, fmt.Errorf("graph: get %d: %w", id, ErrBadNode)
	}
	return c.nodes[id], nil
}

// Has reports whether id refers to a node in this Context.
func (c *Context) Has(id NodeID) bool { return int(id) < len(c.nodes) }

// VarCount returns the number of registered variables, axes included.
func (c *Context) VarCount() int { return len(c.vars) }

// VarName returns the name of a variable.
func (c *Context) VarName(v VarID) (string, error) {
	if int(v) >= len(c.vars) {
		return "", fmt.Errorf("graph: var %d: %w", v, ErrBadVar)
	}
	return c.vars[v], nil
}

// LookupVar returns the id of a named variable.
func (c *Context) LookupVar(name string) (VarID, bool) {
	v, ok := c.varIndex[name]
	return v, ok
}

func (c *Context) intern(n Node) NodeID {
	k := n.key()
	if id, ok := c.index[k]; ok {
		return id
	}
	id := NodeID(len(c.nodes))
	c.nodes = append(c.nodes, n)
	c.index[k] = id
	return id
}

// X returns the node for the x axis.
func (c *Context) X() NodeID { return c.intern(Node{Op: OpInput, Var: VarX}) }

// Y returns the node for the y axis.
func (c *Context) Y() NodeID { return c.intern(Node{Op: OpInput, Var: VarY}) }

// Z returns the node for the z axis.
func (c *Context) Z() NodeID { return c.intern(Node{Op: OpInput, Var: VarZ}) }

// Axes returns the x, y and z nodes.
func (c *Context) Axes() (x, y, z NodeID) { return c.X(), c.Y(), c.Z() }

// Var returns the node for a named input variable, registering the name on
// first use. The names "x", "y" and "z" (in any case) belong to the axes.
func (c *Context) Var(name string) (NodeID, error) {
	for _, axis := range c.vars[:3] {
		if strings.EqualFold(name, axis) {
			return 0, fmt.Errorf("graph: var %q: %w", name, ErrReservedName)
		}
	}
	v, ok := c.varIndex[name]
	if !ok {
		v = VarID(len(c.vars))
		c.vars = append(c.vars, name)
		c.varIndex[name] = v
	}
	return c.intern(Node{Op: OpInput, Var: v}), nil
}

// Constant returns the node for a constant value.
func (c *Context) Constant(v float64) NodeID {
	return c.intern(Node{Op: OpConst, Value: v})
}

// ConstValue returns the value of a constant node; ok is false for
// any other op.
func (c *Context) ConstValue(id NodeID) (v float64, ok bool, err error) {
	n, err := c.Get(id)
	if err != nil {
		return 0, false, err
	}
	if n.Op != OpConst {
		return 0, false, nil
	}
	return n.Value, true, nil
}

// Insert adds an operation node, or returns the existing node with the same
// op and operands. If every operand of a unary or binary op is a constant
// the result is folded into a constant. On error the Context is unchanged.
func (c *Context) Insert(op Op, operands ...NodeID) (NodeID, error) {
	arity := op.Arity()
	if arity <= 0 {
		return 0, &ConstructionError{Op: op, Operands: operands, Err: ErrBadOp}
	}
	if len(operands) != arity {
		return 0, &ConstructionError{Op: op, Operands: operands, Err: ErrArity}
	}
	for _, a := range operands {
		if !c.Has(a) {
			return 0, &ConstructionError{Op: op, Operands: operands, Err: ErrBadNode}
		}
	}

	switch arity {
	case 1:
		if a := c.nodes[operands[0]]; a.Op == OpConst {
			return c.Constant(op.Unary(a.Value)), nil
		}
	case 2:
		a, b := c.nodes[operands[0]], c.nodes[operands[1]]
		if a.Op == OpConst && b.Op == OpConst {
			return c.Constant(op.Binary(a.Value, b.Value)), nil
		}
	case 4:
		// A constant shape does not depend on its coordinates.
		if c.nodes[operands[0]].Op == OpConst {
			return operands[0], nil
		}
	}

	n := Node{Op: op}
	copy(n.Args[:], operands)
	return c.intern(n), nil
}

// Neg returns -a.
func (c *Context) Neg(a NodeID) (NodeID, error) { return c.Insert(OpNeg, a) }

// Abs returns |a|.
func (c *Context) Abs(a NodeID) (NodeID, error) { return c.Insert(OpAbs, a) }

// Recip returns 1/a.
func (c *Context) Recip(a NodeID) (NodeID, error) { return c.Insert(OpRecip, a) }

// Sqrt returns √a.
func (c *Context) Sqrt(a NodeID) (NodeID, error) { return c.Insert(OpSqrt, a) }

// Square returns a².
func (c *Context) Square(a NodeID) (NodeID, error) { return c.Insert(OpSquare, a) }

// Sin returns sin a.
func (c *Context) Sin(a NodeID) (NodeID, error) { return c.Insert(OpSin, a) }

// Cos returns cos a.
func (c *Context) Cos(a NodeID) (NodeID, error) { return c.Insert(OpCos, a) }

// Exp returns eᵃ.
func (c *Context) Exp(a NodeID) (NodeID, error) { return c.Insert(OpExp, a) }

// Ln returns the natural logarithm of a.
func (c *Context) Ln(a NodeID) (NodeID, error) { return c.Insert(OpLn, a) }

// Add returns a + b.
func (c *Context) Add(a, b NodeID) (NodeID, error) { return c.Insert(OpAdd, a, b) }

// Sub returns a - b.
func (c *Context) Sub(a, b NodeID) (NodeID, error) { return c.Insert(OpSub, a, b) }

// Mul returns a × b.
func (c *Context) Mul(a, b NodeID) (NodeID, error) { return c.Insert(OpMul, a, b) }

// Div returns a ÷ b.
func (c *Context) Div(a, b NodeID) (NodeID, error) { return c.Insert(OpDiv, a, b) }

// Min returns min(a, b).
func (c *Context) Min(a, b NodeID) (NodeID, error) { return c.Insert(OpMin, a, b) }

// Max returns max(a, b).
func (c *Context) Max(a, b NodeID) (NodeID, error) { return c.Insert(OpMax, a, b) }

// Remap returns shape evaluated with its x, y and z axes replaced by the
// given expressions. The shape's own nodes are not rewritten.
func (c *Context) Remap(shape, x, y, z NodeID) (NodeID, error) {
	return c.Insert(OpRemap, shape, x, y, z)
}

// Shape pairs a Context with a root node.
type Shape struct {
	Ctx  *Context
	Root NodeID
}

// Shape returns the shape rooted at id.
func (c *Context) Shape(id NodeID) Shape { return Shape{Ctx: c, Root: id} }

// String renders the expression below the shape's root as an s-expression.
func (s Shape) String() string {
	if s.Ctx == nil {
		return "<nil>"
	}
	return s.Ctx.Format(s.Root)
}

// Format renders the expression rooted at id as an s-expression.
// Shared subexpressions are printed at every use.
func (c *Context) Format(id NodeID) string {
	var sb strings.Builder
	c.format(&sb, id)
	return sb.String()
}

func (c *Context) format(sb *strings.Builder, id NodeID) {
	if !c.Has(id) {
		fmt.Fprintf(sb, "<bad %d>", id)
		return
	}
	n := c.nodes[id]
	switch n.Op {
	case OpConst:
		fmt.Fprintf(sb, "%g", n.Value)
	case OpInput:
		sb.WriteString(c.vars[n.Var])
	default:
		sb.WriteByte('(')
		sb.WriteString(n.Op.String())
		for _, a := range n.Operands() {
			sb.WriteByte(' ')
			c.format(sb, a)
		}
		sb.WriteByte(')')
	}
}
