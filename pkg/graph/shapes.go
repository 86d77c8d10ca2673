package graph

import (
	"fmt"
	"math"
)

// builder threads the first construction error through a chain of inserts
// so combinators read as straight-line arithmetic.
type builder struct {
	c   *Context
	err error
}

func (b *builder) op(op Op, args ...NodeID) NodeID {
	if b.err != nil {
		return 0
	}
	id, err := b.c.Insert(op, args...)
	if err != nil {
		b.err = err
	}
	return id
}

func (b *builder) k(v float64) NodeID { return b.c.Constant(v) }

func (b *builder) result(id NodeID) (NodeID, error) {
	if b.err != nil {
		return 0, b.err
	}
	return id, nil
}

// checkShapes fails before anything is inserted when a shape is not in the
// arena, so a rejected combinator leaves the context unchanged.
func (c *Context) checkShapes(op Op, shapes ...NodeID) error {
	for _, s := range shapes {
		if !c.Has(s) {
			return &ConstructionError{Op: op, Operands: shapes, Err: ErrBadNode}
		}
	}
	return nil
}

// Circle returns the signed distance to a circle in the XY plane.
func (c *Context) Circle(cx, cy, r float64) (NodeID, error) {
	b := &builder{c: c}
	x, y := c.X(), c.Y()
	dx := b.op(OpSquare, b.op(OpSub, x, b.k(cx)))
	dy := b.op(OpSquare, b.op(OpSub, y, b.k(cy)))
	return b.result(b.op(OpSub, b.op(OpSqrt, b.op(OpAdd, dx, dy)), b.k(r)))
}

// Sphere returns the signed distance to a sphere.
func (c *Context) Sphere(cx, cy, cz, r float64) (NodeID, error) {
	b := &builder{c: c}
	x, y, z := c.Axes()
	dx := b.op(OpSquare, b.op(OpSub, x, b.k(cx)))
	dy := b.op(OpSquare, b.op(OpSub, y, b.k(cy)))
	dz := b.op(OpSquare, b.op(OpSub, z, b.k(cz)))
	sum := b.op(OpAdd, b.op(OpAdd, dx, dy), dz)
	return b.result(b.op(OpSub, b.op(OpSqrt, sum), b.k(r)))
}

// slab returns max(lo - a, a - hi): negative strictly between lo and hi.
func (b *builder) slab(a NodeID, lo, hi float64) NodeID {
	return b.op(OpMax, b.op(OpSub, b.k(lo), a), b.op(OpSub, a, b.k(hi)))
}

// Rectangle returns an axis-aligned rectangle in the XY plane. The field is
// exact inside and a lower bound on distance outside.
func (c *Context) Rectangle(lo, hi [2]float64) (NodeID, error) {
	b := &builder{c: c}
	sx := b.slab(c.X(), lo[0], hi[0])
	sy := b.slab(c.Y(), lo[1], hi[1])
	return b.result(b.op(OpMax, sx, sy))
}

// Box returns an axis-aligned box.
func (c *Context) Box(lo, hi [3]float64) (NodeID, error) {
	b := &builder{c: c}
	x, y, z := c.Axes()
	s := b.op(OpMax, b.slab(x, lo[0], hi[0]), b.slab(y, lo[1], hi[1]))
	return b.result(b.op(OpMax, s, b.slab(z, lo[2], hi[2])))
}

// Translate moves a shape by (dx, dy, dz).
func (c *Context) Translate(shape NodeID, dx, dy, dz float64) (NodeID, error) {
	if err := c.checkShapes(OpRemap, shape); err != nil {
		return 0, err
	}
	b := &builder{c: c}
	x, y, z := c.Axes()
	return b.result(b.op(OpRemap, shape,
		b.op(OpSub, x, b.k(dx)),
		b.op(OpSub, y, b.k(dy)),
		b.op(OpSub, z, b.k(dz))))
}

// Scale stretches a shape by per-axis factors about the origin.
func (c *Context) Scale(shape NodeID, sx, sy, sz float64) (NodeID, error) {
	if sx == 0 || sy == 0 || sz == 0 {
		return 0, fmt.Errorf("graph: scale (%g, %g, %g): %w", sx, sy, sz, ErrZeroScale)
	}
	if err := c.checkShapes(OpRemap, shape); err != nil {
		return 0, err
	}
	b := &builder{c: c}
	x, y, z := c.Axes()
	return b.result(b.op(OpRemap, shape,
		b.op(OpMul, x, b.k(1/sx)),
		b.op(OpMul, y, b.k(1/sy)),
		b.op(OpMul, z, b.k(1/sz))))
}

// RotateZ rotates a shape counter-clockwise about the z axis by angle radians.
func (c *Context) RotateZ(shape NodeID, angle float64) (NodeID, error) {
	if err := c.checkShapes(OpRemap, shape); err != nil {
		return 0, err
	}
	b := &builder{c: c}
	x, y, z := c.Axes()
	sin, cos := math.Sincos(angle)
	// Sample the shape at the inverse rotation of each point.
	nx := b.op(OpAdd, b.op(OpMul, x, b.k(cos)), b.op(OpMul, y, b.k(sin)))
	ny := b.op(OpSub, b.op(OpMul, y, b.k(cos)), b.op(OpMul, x, b.k(sin)))
	return b.result(b.op(OpRemap, shape, nx, ny, z))
}

func (c *Context) fold(op Op, shapes []NodeID) (NodeID, error) {
	if len(shapes) == 0 {
		return 0, &ConstructionError{Op: op, Err: ErrArity}
	}
	if err := c.checkShapes(op, shapes...); err != nil {
		return 0, err
	}
	b := &builder{c: c}
	acc := shapes[0]
	for _, s := range shapes[1:] {
		acc = b.op(op, acc, s)
	}
	return b.result(acc)
}

// Union returns the union of one or more shapes (their pointwise minimum).
func (c *Context) Union(shapes ...NodeID) (NodeID, error) { return c.fold(OpMin, shapes) }

// Intersection returns the intersection of one or more shapes (their
// pointwise maximum).
func (c *Context) Intersection(shapes ...NodeID) (NodeID, error) { return c.fold(OpMax, shapes) }

// Difference returns a with b cut away.
func (c *Context) Difference(a, b NodeID) (NodeID, error) {
	if err := c.checkShapes(OpMax, a, b); err != nil {
		return 0, err
	}
	bl := &builder{c: c}
	return bl.result(bl.op(OpMax, a, bl.op(OpNeg, b)))
}

// Inverse swaps the inside and outside of a shape.
func (c *Context) Inverse(a NodeID) (NodeID, error) { return c.Neg(a) }
