package graph

import (
	"fmt"
	"math"
)

// ValidationSeverity indicates whether a validation finding means the
// arena is corrupt or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // arena invariant violated
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	NodeID   NodeID             // which node has the problem
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] node %d: %s", e.Severity, e.NodeID, e.Message)
}

// Validate checks the structural invariants of the arena: operands precede
// their users, arities match, variables exist and the hash-consing index
// agrees with the node list. An empty slice means the Context is sound.
// Validate never mutates the Context.
func Validate(c *Context) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateNodes(c)...)
	errs = append(errs, validateIndex(c)...)
	return errs
}

// HasErrors reports whether any finding has error severity.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

func validateNodes(c *Context) []ValidationError {
	var errs []ValidationError
	fail := func(id NodeID, sev ValidationSeverity, format string, args ...any) {
		errs = append(errs, ValidationError{NodeID: id, Severity: sev, Message: fmt.Sprintf(format, args...)})
	}

	for i, n := range c.nodes {
		id := NodeID(i)
		arity := n.Op.Arity()
		if arity < 0 {
			fail(id, SeverityError, "invalid op %s", n.Op)
			continue
		}
		for j, a := range n.Args {
			if j >= arity {
				if a != 0 {
					fail(id, SeverityError, "%s has operand in unused slot %d", n.Op, j)
				}
				continue
			}
			if a >= id {
				fail(id, SeverityError, "operand %d does not precede its user", a)
			}
		}

		switch n.Op {
		case OpInput:
			if int(n.Var) >= len(c.vars) {
				fail(id, SeverityError, "input refers to unknown variable %d", n.Var)
			}
		case OpConst:
			if math.IsNaN(n.Value) {
				fail(id, SeverityWarning, "constant is NaN")
			}
		default:
			if arity == 1 || arity == 2 {
				folded := true
				for _, a := range n.Operands() {
					if a >= id || c.nodes[a].Op != OpConst {
						folded = false
					}
				}
				if folded {
					fail(id, SeverityWarning, "%s of constants was not folded", n.Op)
				}
			}
		}
	}
	return errs
}

func validateIndex(c *Context) []ValidationError {
	var errs []ValidationError
	if len(c.index) != len(c.nodes) {
		errs = append(errs, ValidationError{
			Severity: SeverityError,
			Message:  fmt.Sprintf("index has %d entries for %d nodes", len(c.index), len(c.nodes)),
		})
	}
	for i, n := range c.nodes {
		if got, ok := c.index[n.key()]; !ok || got != NodeID(i) {
			errs = append(errs, ValidationError{
				NodeID:   NodeID(i),
				Severity: SeverityError,
				Message:  "node is not its own hash-consing representative",
			})
		}
	}
	for name, v := range c.varIndex {
		if int(v) >= len(c.vars) || c.vars[v] != name {
			errs = append(errs, ValidationError{
				Severity: SeverityError,
				Message:  fmt.Sprintf("variable %q indexed inconsistently", name),
			})
		}
	}
	return errs
}
