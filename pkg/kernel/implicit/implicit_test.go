package implicit

import (
	"errors"
	"math"
	"testing"

	"github.com/LukeP0WERS/fidget/pkg/graph"
	"github.com/LukeP0WERS/fidget/pkg/kernel"
	"github.com/LukeP0WERS/fidget/pkg/tessellate"
)

func newKernel() *Kernel { return New(tessellate.WithCells(24)) }

// value evaluates a solid's field at a point.
func value(t *testing.T, k *Kernel, s kernel.Solid, x, y, z float64) float64 {
	t.Helper()
	v, err := k.Context().EvalXYZ(s.(*Solid).Node(), x, y, z)
	if err != nil {
		t.Fatalf("EvalXYZ: %v", err)
	}
	return v
}

func checkBounds(t *testing.T, s kernel.Solid, wantMin, wantMax [3]float64) {
	t.Helper()
	const tol = 1e-9
	min, max := s.BoundingBox()
	for i := 0; i < 3; i++ {
		if math.Abs(min[i]-wantMin[i]) > tol || math.Abs(max[i]-wantMax[i]) > tol {
			t.Errorf("axis %d: bounds %g..%g, want %g..%g", i, min[i], max[i], wantMin[i], wantMax[i])
		}
	}
}

func TestPrimitives(t *testing.T) {
	k := newKernel()
	tests := []struct {
		name    string
		solid   kernel.Solid
		inside  [3]float64
		outside [3]float64
		min     [3]float64
		max     [3]float64
	}{
		{"box", k.Box(4, 2, 1), [3]float64{3.5, 1, 0.5}, [3]float64{-0.5, 1, 0.5},
			[3]float64{0, 0, 0}, [3]float64{4, 2, 1}},
		{"sphere", k.Sphere(2), [3]float64{1, 1, 1}, [3]float64{2, 1, 0},
			[3]float64{-2, -2, -2}, [3]float64{2, 2, 2}},
		{"cylinder", k.Cylinder(4, 1, 32), [3]float64{0.5, 0.5, 1.9}, [3]float64{0, 0, 2.1},
			[3]float64{-1, -1, -2}, [3]float64{1, 1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, out := tt.inside, tt.outside
			if v := value(t, k, tt.solid, in[0], in[1], in[2]); v >= 0 {
				t.Errorf("value at %v = %g, want negative", in, v)
			}
			if v := value(t, k, tt.solid, out[0], out[1], out[2]); v <= 0 {
				t.Errorf("value at %v = %g, want positive", out, v)
			}
			checkBounds(t, tt.solid, tt.min, tt.max)
		})
	}
	if err := k.Err(); err != nil {
		t.Fatalf("Err: %v", err)
	}
}

func TestBooleans(t *testing.T) {
	k := newKernel()
	a := k.Box(2, 2, 2)
	b := k.Translate(k.Box(2, 2, 2), 1, 0, 0)

	u := k.Union(a, b)
	checkBounds(t, u, [3]float64{0, 0, 0}, [3]float64{3, 2, 2})
	if v := value(t, k, u, 2.5, 1, 1); v >= 0 {
		t.Errorf("union misses b: %g", v)
	}

	i := k.Intersection(a, b)
	checkBounds(t, i, [3]float64{1, 0, 0}, [3]float64{2, 2, 2})
	if v := value(t, k, i, 0.5, 1, 1); v <= 0 {
		t.Errorf("intersection keeps a alone: %g", v)
	}

	d := k.Difference(a, b)
	checkBounds(t, d, [3]float64{0, 0, 0}, [3]float64{2, 2, 2})
	if v := value(t, k, d, 1.5, 1, 1); v <= 0 {
		t.Errorf("difference keeps the overlap: %g", v)
	}
	if v := value(t, k, d, 0.5, 1, 1); v >= 0 {
		t.Errorf("difference lost a: %g", v)
	}

	far := k.Translate(k.Box(1, 1, 1), 10, 10, 10)
	checkBounds(t, k.Intersection(a, far), [3]float64{0, 0, 0}, [3]float64{0, 0, 0})
}

func TestTranslate(t *testing.T) {
	k := newKernel()
	s := k.Translate(k.Sphere(1), 100, 200, 300)
	checkBounds(t, s, [3]float64{99, 199, 299}, [3]float64{101, 201, 301})
	if v := value(t, k, s, 100, 200, 300); math.Abs(v+1) > 1e-12 {
		t.Errorf("value at centre = %g, want -1", v)
	}
}

func TestRotate(t *testing.T) {
	k := newKernel()
	// A long box along X rotated 90 degrees around Z extends along -Y.
	r := k.Rotate(k.Box(10, 1, 1), 0, 0, 90)
	min, max := r.BoundingBox()
	const tol = 1e-9
	if math.Abs(max[0]-min[0]-1) > tol || math.Abs(max[1]-min[1]-10) > tol {
		t.Errorf("rotated extents = %g x %g, want 1 x 10", max[0]-min[0], max[1]-min[1])
	}
	if v := value(t, k, r, -0.5, 8, 0.5); v >= 0 {
		t.Errorf("value at (-0.5, 8, 0.5) = %g, want inside", v)
	}
	if v := value(t, k, r, 8, 0.5, 0.5); v <= 0 {
		t.Errorf("value at (8, 0.5, 0.5) = %g, want outside", v)
	}

	// X then Y: (1,0,0) goes to (1,0,0) then to (0,0,-1).
	m := rotation(90, 90, 0)
	got := [3]float64{m[0][0], m[1][0], m[2][0]}
	want := [3]float64{0, 0, -1}
	for i := range got {
		if math.Abs(got[i]-want[i]) > tol {
			t.Errorf("rotation(90, 90, 0)·x̂ = %v, want %v", got, want)
			break
		}
	}
}

func TestToMesh(t *testing.T) {
	k := newKernel()
	box := k.Box(4, 4, 4)
	boxMesh, err := k.ToMesh(box)
	if err != nil {
		t.Fatalf("ToMesh(box): %v", err)
	}
	if boxMesh.IsEmpty() {
		t.Fatal("box mesh is empty")
	}
	if len(boxMesh.Indices) != boxMesh.TriangleCount()*3 {
		t.Fatalf("indices length %d != triangles*3", len(boxMesh.Indices))
	}
	min, max := boxMesh.Bounds()
	for i := 0; i < 3; i++ {
		if math.Abs(float64(min[i])) > 0.5 || math.Abs(float64(max[i])-4) > 0.5 {
			t.Errorf("axis %d: mesh spans %g..%g, want about 0..4", i, min[i], max[i])
		}
	}

	diff := k.Difference(box, k.Translate(k.Cylinder(6, 1, 32), 2, 2, 2))
	diffMesh, err := k.ToMesh(diff)
	if err != nil {
		t.Fatalf("ToMesh(diff): %v", err)
	}
	// A box with a hole has more surface than a plain box.
	if diffMesh.TriangleCount() <= boxMesh.TriangleCount() {
		t.Errorf("difference (%d triangles) should exceed box (%d triangles)",
			diffMesh.TriangleCount(), boxMesh.TriangleCount())
	}
}

func TestWrap(t *testing.T) {
	ctx := graph.New()
	ball, err := ctx.Sphere(0, 0, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	k := NewWithContext(ctx, tessellate.WithCells(16), tessellate.WithName("ball"))
	s := k.Wrap(ball, [3]float64{-1, -1, -1}, [3]float64{1, 1, 1})
	if k.Err() != nil {
		t.Fatalf("Err = %v", k.Err())
	}
	if got := s.(*Solid).Node(); got != ball {
		t.Errorf("Node = %d, want %d", got, ball)
	}
	m, err := k.ToMesh(s)
	if err != nil {
		t.Fatalf("ToMesh: %v", err)
	}
	if m.IsEmpty() || m.Name != "ball" {
		t.Errorf("mesh %q has %d triangles", m.Name, m.TriangleCount())
	}

	k.Wrap(graph.NodeID(ctx.Len()+10), [3]float64{}, [3]float64{1, 1, 1})
	if !errors.Is(k.Err(), graph.ErrBadNode) {
		t.Errorf("wrapping a missing node: Err = %v, want ErrBadNode", k.Err())
	}
}

type otherSolid struct{}

func (otherSolid) BoundingBox() (min, max [3]float64) { return }

func TestStickyError(t *testing.T) {
	k := newKernel()
	u := k.Union(k.Box(1, 1, 1), otherSolid{})
	if !errors.Is(k.Err(), ErrForeignSolid) {
		t.Fatalf("Err = %v, want ErrForeignSolid", k.Err())
	}
	// Later operations keep the first error.
	k.Sphere(1)
	if !errors.Is(k.Err(), ErrForeignSolid) {
		t.Errorf("Err = %v after later op", k.Err())
	}
	if _, err := k.ToMesh(u); !errors.Is(err, ErrForeignSolid) {
		t.Errorf("ToMesh error = %v, want ErrForeignSolid", err)
	}

	k2 := newKernel()
	k2.Union(k.Sphere(1), k2.Sphere(1))
	if !errors.Is(k2.Err(), ErrForeignSolid) {
		t.Errorf("solid from another kernel: Err = %v", k2.Err())
	}
}
