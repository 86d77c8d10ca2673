package tape

import (
	"fmt"

	"github.com/LukeP0WERS/fidget/pkg/graph"
)

// noSlot marks an axis that has not been remapped.
const noSlot = ^Slot(0)

// env holds the slots substituted for x, y and z while compiling below a
// Remap node.
type env [3]Slot

var identity = env{noSlot, noSlot, noSlot}

type visitKey struct {
	id  graph.NodeID
	env env
}

type frame struct {
	id    graph.NodeID
	env   env
	stage int
	inner env
}

type compiler struct {
	ctx     *graph.Context
	records []Record
	dedup   map[recordKey]Slot
	memo    map[visitKey]Slot
}

// Compile flattens the expression rooted at root into a tape. Remap nodes
// are expanded by substituting their coordinate expressions, identical
// records are shared and all-constant records are folded. The result only
// contains records reachable from the root, and its variable table lists
// the variables it reads ordered by id. Compilation is deterministic.
func Compile(ctx *graph.Context, root graph.NodeID) (*Tape, error) {
	if !ctx.Has(root) {
		return nil, fmt.Errorf("tape: compile %d: %w", root, graph.ErrBadNode)
	}
	c := &compiler{
		ctx:   ctx,
		dedup: make(map[recordKey]Slot),
		memo:  make(map[visitKey]Slot),
	}
	out, err := c.run(root)
	if err != nil {
		return nil, err
	}
	t, err := c.finish(out)
	if err != nil {
		return nil, fmt.Errorf("tape: compile: %w", err)
	}
	return t, nil
}

// run walks the graph iteratively in post-order so deep expressions do not
// exhaust the goroutine stack.
func (c *compiler) run(root graph.NodeID) (Slot, error) {
	stack := []frame{{id: root, env: identity}}
	for len(stack) > 0 {
		top := len(stack) - 1
		f := stack[top]
		key := visitKey{f.id, f.env}
		if _, ok := c.memo[key]; ok {
			stack = stack[:top]
			continue
		}
		n, err := c.ctx.Get(f.id)
		if err != nil {
			return 0, fmt.Errorf("tape: compile: %w", err)
		}

		switch {
		case n.Op == graph.OpConst:
			c.memo[key] = c.emit(Record{Op: graph.OpConst, Imm: n.Value})
			stack = stack[:top]

		case n.Op == graph.OpInput:
			if n.Var <= graph.VarZ && f.env[n.Var] != noSlot {
				c.memo[key] = f.env[n.Var]
			} else {
				c.memo[key] = c.emit(Record{Op: graph.OpInput, Var: int(n.Var)})
			}
			stack = stack[:top]

		case n.Op == graph.OpRemap:
			switch f.stage {
			case 0:
				stack[top].stage = 1
				for _, a := range n.Args[1:4] {
					stack = append(stack, frame{id: a, env: f.env})
				}
			case 1:
				var inner env
				for i, a := range n.Args[1:4] {
					inner[i] = c.memo[visitKey{a, f.env}]
				}
				stack[top].stage = 2
				stack[top].inner = inner
				stack = append(stack, frame{id: n.Args[0], env: inner})
			default:
				c.memo[key] = c.memo[visitKey{n.Args[0], f.inner}]
				stack = stack[:top]
			}

		case n.Op.Arity() == 1 || n.Op.Arity() == 2:
			ops := n.Operands()
			if f.stage == 0 {
				stack[top].stage = 1
				for i := len(ops) - 1; i >= 0; i-- {
					stack = append(stack, frame{id: ops[i], env: f.env})
				}
				continue
			}
			r := Record{Op: n.Op}
			for i, a := range ops {
				r.Args[i] = c.memo[visitKey{a, f.env}]
			}
			c.memo[key] = c.emit(r)
			stack = stack[:top]

		default:
			return 0, fmt.Errorf("tape: compile: node %d has invalid op %s", f.id, n.Op)
		}
	}
	return c.memo[visitKey{root, identity}], nil
}

// emit appends a record, folding constants and reusing an identical
// earlier record when one exists.
func (c *compiler) emit(r Record) Slot {
	if arity := r.Op.Arity(); arity == 1 || arity == 2 {
		folded := true
		for _, a := range r.Operands() {
			if c.records[a].Op != graph.OpConst {
				folded = false
			}
		}
		if folded {
			a := c.records[r.Args[0]].Imm
			var v float64
			if arity == 1 {
				v = r.Op.Unary(a)
			} else {
				v = r.Op.Binary(a, c.records[r.Args[1]].Imm)
			}
			r = Record{Op: graph.OpConst, Imm: v}
		}
	}
	k := r.key()
	if s, ok := c.dedup[k]; ok {
		return s
	}
	s := Slot(len(c.records))
	c.records = append(c.records, r)
	c.dedup[k] = s
	return s
}

// finish drops records that folding or unused remap coordinates left
// unreachable, then builds the variable table from the inputs that remain.
func (c *compiler) finish(root Slot) (*Tape, error) {
	full := &Tape{records: c.records, root: root, origin: make([]Slot, len(c.records))}
	for i := range full.origin {
		full.origin[i] = Slot(i)
	}
	t := full.compact()
	// A compiled tape is the root of its own specialization tree.
	for i := range t.origin {
		t.origin[i] = Slot(i)
	}

	seen := make(map[int]bool)
	for _, r := range t.records {
		if r.Op != graph.OpInput || seen[r.Var] {
			continue
		}
		seen[r.Var] = true
		name, err := c.ctx.VarName(graph.VarID(r.Var))
		if err != nil {
			return nil, err
		}
		t.vars = append(t.vars, Var{ID: graph.VarID(r.Var), Name: name})
	}
	sortVars(t.vars)
	index := make(map[int]int, len(t.vars))
	for i, v := range t.vars {
		index[int(v.ID)] = i
	}
	for i, r := range t.records {
		if r.Op == graph.OpInput {
			t.records[i].Var = index[r.Var]
		}
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}
