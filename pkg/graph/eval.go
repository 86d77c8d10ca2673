package graph

import (
	"fmt"
	"math"
)

// Eval computes the value of root at a single point by walking the graph.
// It is slow and meant as a reference for the compiled evaluators. The
// axes are bound from vars["x"], vars["y"] and vars["z"] (zero if absent);
// every named variable reachable from root must be bound.
func (c *Context) Eval(root NodeID, vars map[string]float64) (float64, error) {
	w := walker{c: c, vars: vars, memo: make(map[walkKey]float64)}
	env := [3]float64{vars["x"], vars["y"], vars["z"]}
	v, err := w.eval(root, env)
	if err != nil {
		return 0, fmt.Errorf("graph: eval: %w", err)
	}
	return v, nil
}

// EvalXYZ is Eval for shapes with no named variables.
func (c *Context) EvalXYZ(root NodeID, x, y, z float64) (float64, error) {
	return c.Eval(root, map[string]float64{"x": x, "y": y, "z": z})
}

type walkKey struct {
	id  NodeID
	env [3]uint64
}

type walker struct {
	c    *Context
	vars map[string]float64
	memo map[walkKey]float64
}

func (w *walker) eval(id NodeID, env [3]float64) (float64, error) {
	n, err := w.c.Get(id)
	if err != nil {
		return 0, err
	}
	key := walkKey{id: id, env: [3]uint64{
		math.Float64bits(env[0]), math.Float64bits(env[1]), math.Float64bits(env[2]),
	}}
	if v, ok := w.memo[key]; ok {
		return v, nil
	}

	var v float64
	switch n.Op {
	case OpConst:
		v = n.Value
	case OpInput:
		if n.Var <= VarZ {
			v = env[n.Var]
			break
		}
		name := w.c.vars[n.Var]
		bound, ok := w.vars[name]
		if !ok {
			return 0, fmt.Errorf("%q: %w", name, ErrUnbound)
		}
		v = bound
	case OpRemap:
		var inner [3]float64
		for i := range inner {
			if inner[i], err = w.eval(n.Args[i+1], env); err != nil {
				return 0, err
			}
		}
		if v, err = w.eval(n.Args[0], inner); err != nil {
			return 0, err
		}
	default:
		switch n.Op.Arity() {
		case 1:
			a, err := w.eval(n.Args[0], env)
			if err != nil {
				return 0, err
			}
			v = n.Op.Unary(a)
		case 2:
			a, err := w.eval(n.Args[0], env)
			if err != nil {
				return 0, err
			}
			b, err := w.eval(n.Args[1], env)
			if err != nil {
				return 0, err
			}
			v = n.Op.Binary(a, b)
		default:
			return 0, fmt.Errorf("node %d: invalid op %s", id, n.Op)
		}
	}
	w.memo[key] = v
	return v, nil
}
