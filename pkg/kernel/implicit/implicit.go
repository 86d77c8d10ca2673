// Package implicit implements kernel.Kernel with expression graphs. Each
// solid is a node in a shared graph.Context whose value is negative inside
// the solid; meshing compiles the node to a tape and runs the mesher over
// its bounding box.
package implicit

import (
	"errors"
	"fmt"
	"math"

	"github.com/LukeP0WERS/fidget/pkg/graph"
	"github.com/LukeP0WERS/fidget/pkg/kernel"
	"github.com/LukeP0WERS/fidget/pkg/tape"
	"github.com/LukeP0WERS/fidget/pkg/tessellate"
)

// Compile-time interface checks.
var (
	_ kernel.Kernel = (*Kernel)(nil)
	_ kernel.Solid  = (*Solid)(nil)
)

// ErrForeignSolid is returned when a solid from another kernel is passed in.
var ErrForeignSolid = errors.New("solid belongs to another kernel")

// margin pads bounding boxes before meshing so the surface never touches
// the sampled region's boundary.
const margin = 0.05

// Solid is a graph node with a conservative bounding box.
type Solid struct {
	k        *Kernel
	root     graph.NodeID
	min, max [3]float64
}

// BoundingBox returns an axis-aligned box containing the solid.
func (s *Solid) BoundingBox() (min, max [3]float64) { return s.min, s.max }

// Node returns the solid's graph node.
func (s *Solid) Node() graph.NodeID { return s.root }

// Kernel builds solids in one graph.Context. Operations never return
// errors directly: the first failure is kept and reported by Err, and
// every later operation returns an empty solid.
type Kernel struct {
	ctx  *graph.Context
	opts []tessellate.Option
	err  error
}

// New returns a kernel over a fresh context. opts are passed to the mesher
// by ToMesh.
func New(opts ...tessellate.Option) *Kernel {
	return NewWithContext(graph.New(), opts...)
}

// NewWithContext returns a kernel that adds nodes to ctx.
func NewWithContext(ctx *graph.Context, opts ...tessellate.Option) *Kernel {
	return &Kernel{ctx: ctx, opts: opts}
}

// Context returns the graph solids are built in.
func (k *Kernel) Context() *graph.Context { return k.ctx }

// Err returns the first error any operation hit.
func (k *Kernel) Err() error { return k.err }

func (k *Kernel) solid(id graph.NodeID, err error, min, max [3]float64) kernel.Solid {
	if err != nil && k.err == nil {
		k.err = err
	}
	if k.err != nil {
		return &Solid{k: k}
	}
	return &Solid{k: k, root: id, min: min, max: max}
}

func (k *Kernel) unwrap(s kernel.Solid) (*Solid, bool) {
	is, ok := s.(*Solid)
	if !ok || is.k != k {
		if k.err == nil {
			k.err = fmt.Errorf("implicit: %T: %w", s, ErrForeignSolid)
		}
		return nil, false
	}
	return is, true
}

// Wrap adopts a node already in the kernel's context as a solid bounded by
// [min, max]. The bounds are trusted as given.
func (k *Kernel) Wrap(id graph.NodeID, min, max [3]float64) kernel.Solid {
	var err error
	if !k.ctx.Has(id) {
		err = fmt.Errorf("implicit: node %d: %w", id, graph.ErrBadNode)
	}
	return k.solid(id, err, min, max)
}

// Box creates a box with its minimum corner at the origin.
func (k *Kernel) Box(x, y, z float64) kernel.Solid {
	max := [3]float64{x, y, z}
	id, err := k.ctx.Box([3]float64{}, max)
	return k.solid(id, err, [3]float64{}, max)
}

// Sphere creates a sphere centred on the origin.
func (k *Kernel) Sphere(radius float64) kernel.Solid {
	id, err := k.ctx.Sphere(0, 0, 0, radius)
	r := [3]float64{radius, radius, radius}
	return k.solid(id, err, neg(r), r)
}

// Cylinder creates a cylinder along z, centred on the origin. segments is
// ignored: the surface is exact.
func (k *Kernel) Cylinder(height, radius float64, segments int) kernel.Solid {
	disc, err := k.ctx.Circle(0, 0, radius)
	if err != nil {
		return k.solid(0, err, [3]float64{}, [3]float64{})
	}
	az, err := k.ctx.Abs(k.ctx.Z())
	if err != nil {
		return k.solid(0, err, [3]float64{}, [3]float64{})
	}
	ends, err := k.ctx.Sub(az, k.ctx.Constant(height/2))
	if err != nil {
		return k.solid(0, err, [3]float64{}, [3]float64{})
	}
	id, err := k.ctx.Max(disc, ends)
	ext := [3]float64{radius, radius, height / 2}
	return k.solid(id, err, neg(ext), ext)
}

// Union returns the union of two solids.
func (k *Kernel) Union(a, b kernel.Solid) kernel.Solid {
	sa, ok1 := k.unwrap(a)
	sb, ok2 := k.unwrap(b)
	if !ok1 || !ok2 {
		return k.solid(0, nil, [3]float64{}, [3]float64{})
	}
	id, err := k.ctx.Union(sa.root, sb.root)
	var min, max [3]float64
	for i := range min {
		min[i] = math.Min(sa.min[i], sb.min[i])
		max[i] = math.Max(sa.max[i], sb.max[i])
	}
	return k.solid(id, err, min, max)
}

// Difference returns a with b removed. The result keeps a's bounds.
func (k *Kernel) Difference(a, b kernel.Solid) kernel.Solid {
	sa, ok1 := k.unwrap(a)
	sb, ok2 := k.unwrap(b)
	if !ok1 || !ok2 {
		return k.solid(0, nil, [3]float64{}, [3]float64{})
	}
	id, err := k.ctx.Difference(sa.root, sb.root)
	return k.solid(id, err, sa.min, sa.max)
}

// Intersection returns the intersection of two solids. Disjoint bounds
// give an empty box at a's minimum corner.
func (k *Kernel) Intersection(a, b kernel.Solid) kernel.Solid {
	sa, ok1 := k.unwrap(a)
	sb, ok2 := k.unwrap(b)
	if !ok1 || !ok2 {
		return k.solid(0, nil, [3]float64{}, [3]float64{})
	}
	id, err := k.ctx.Intersection(sa.root, sb.root)
	var min, max [3]float64
	for i := range min {
		min[i] = math.Max(sa.min[i], sb.min[i])
		max[i] = math.Min(sa.max[i], sb.max[i])
		if max[i] < min[i] {
			min, max = sa.min, sa.min
			break
		}
	}
	return k.solid(id, err, min, max)
}

// Translate moves a solid by (x, y, z).
func (k *Kernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	ss, ok := k.unwrap(s)
	if !ok {
		return k.solid(0, nil, [3]float64{}, [3]float64{})
	}
	id, err := k.ctx.Translate(ss.root, x, y, z)
	d := [3]float64{x, y, z}
	var min, max [3]float64
	for i := range d {
		min[i], max[i] = ss.min[i]+d[i], ss.max[i]+d[i]
	}
	return k.solid(id, err, min, max)
}

// rotation returns Rz·Ry·Rx for angles in degrees.
func rotation(x, y, z float64) [3][3]float64 {
	sx, cx := math.Sincos(x * math.Pi / 180)
	sy, cy := math.Sincos(y * math.Pi / 180)
	sz, cz := math.Sincos(z * math.Pi / 180)
	return [3][3]float64{
		{cz * cy, cz*sy*sx - sz*cx, cz*sy*cx + sz*sx},
		{sz * cy, sz*sy*sx + cz*cx, sz*sy*cx - cz*sx},
		{-sy, cy * sx, cy * cx},
	}
}

// Rotate rotates a solid by Euler angles in degrees, applied about x, then
// y, then z. The bounds are those of the rotated original box.
func (k *Kernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	ss, ok := k.unwrap(s)
	if !ok {
		return k.solid(0, nil, [3]float64{}, [3]float64{})
	}
	m := rotation(x, y, z)

	// Sample the solid at the inverse rotation (the transpose) of each point.
	axes := [3]graph.NodeID{k.ctx.X(), k.ctx.Y(), k.ctx.Z()}
	var local [3]graph.NodeID
	for i := 0; i < 3; i++ {
		acc, set := k.ctx.Constant(0), false
		for j := 0; j < 3; j++ {
			if m[j][i] == 0 {
				continue
			}
			term, err := k.ctx.Mul(axes[j], k.ctx.Constant(m[j][i]))
			if err == nil && set {
				term, err = k.ctx.Add(acc, term)
			}
			if err != nil {
				return k.solid(0, err, [3]float64{}, [3]float64{})
			}
			acc, set = term, true
		}
		local[i] = acc
	}
	id, err := k.ctx.Remap(ss.root, local[0], local[1], local[2])

	inf := math.Inf(1)
	min := [3]float64{inf, inf, inf}
	max := neg(min)
	for c := 0; c < 8; c++ {
		var p [3]float64
		for a := 0; a < 3; a++ {
			if c&(1<<a) != 0 {
				p[a] = ss.max[a]
			} else {
				p[a] = ss.min[a]
			}
		}
		for i := 0; i < 3; i++ {
			v := m[i][0]*p[0] + m[i][1]*p[1] + m[i][2]*p[2]
			min[i] = math.Min(min[i], v)
			max[i] = math.Max(max[i], v)
		}
	}
	return k.solid(id, err, min, max)
}

// Tape compiles a solid for evaluation.
func (k *Kernel) Tape(s kernel.Solid) (*tape.Tape, error) {
	if k.err != nil {
		return nil, k.err
	}
	ss, ok := k.unwrap(s)
	if !ok {
		return nil, k.err
	}
	return tape.Compile(k.ctx, ss.root)
}

// ToMesh meshes a solid over its padded bounding box.
func (k *Kernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	t, err := k.Tape(s)
	if err != nil {
		return nil, fmt.Errorf("implicit: %w", err)
	}
	min, max := s.BoundingBox()
	for i := range min {
		pad := margin*(max[i]-min[i]) + 1e-3
		min[i] -= pad
		max[i] += pad
	}
	return tessellate.Tessellate(t, min, max, k.opts...)
}

func neg(v [3]float64) [3]float64 { return [3]float64{-v[0], -v[1], -v[2]} }
