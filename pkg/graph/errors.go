package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrArity is returned when an op receives the wrong number of operands.
	ErrArity = errors.New("wrong number of operands")
	// ErrBadNode is returned when an operand id is not present in the Context.
	ErrBadNode = errors.New("node is not present in this context")
	// ErrBadOp is returned for ops that cannot be built with Insert.
	ErrBadOp = errors.New("op cannot be inserted directly")
	// ErrBadVar is returned for an unknown variable.
	ErrBadVar = errors.New("variable is not present in this context")
	// ErrReservedName is returned when a named variable collides with an axis.
	ErrReservedName = errors.New("name is reserved for a coordinate axis")
	// ErrUnbound is returned by reference evaluation when a variable has no value.
	ErrUnbound = errors.New("variable has no binding")
	// ErrContextMismatch is returned when shapes from different contexts are combined.
	ErrContextMismatch = errors.New("shapes belong to different contexts")
)

// ConstructionError reports a failed node insertion. The Context is left
// unmodified when one is returned.
type ConstructionError struct {
	Op       Op
	Operands []NodeID
	Err      error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("graph: insert %s%v: %v", e.Op, e.Operands, e.Err)
}

func (e *ConstructionError) Unwrap() error {
	return e.Err
}

// ErrZeroScale is returned when a scale transform has a zero factor.
var ErrZeroScale = errors.New("scale factor is zero")
