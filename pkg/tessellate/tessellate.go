// Package tessellate extracts triangle meshes from tapes. Sampling is done
// by sdfx's uniform marching cubes over a tape-backed field; vertex normals
// come from the tape's gradient rather than from the triangles.
package tessellate

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/deadsy/sdfx/render"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/LukeP0WERS/fidget/internal/logger"
	"github.com/LukeP0WERS/fidget/pkg/eval"
	"github.com/LukeP0WERS/fidget/pkg/kernel"
	"github.com/LukeP0WERS/fidget/pkg/kernel/sdfx"
	"github.com/LukeP0WERS/fidget/pkg/tape"
)

// DefaultCells is the number of marching cubes cells along the longest
// edge of the bounding box.
const DefaultCells = 64

// ErrBadConfig is returned for unusable mesher settings.
var ErrBadConfig = errors.New("invalid mesh configuration")

// Config holds mesher settings.
type Config struct {
	Cells  int
	Native bool // evaluate with natively compiled code when possible
	Name   string
	Logger *slog.Logger
}

// Option configures a tessellation.
type Option func(*Config)

// WithCells sets the sampling resolution.
func WithCells(n int) Option { return func(c *Config) { c.Cells = n } }

// WithNative toggles natively compiled evaluation.
func WithNative(on bool) Option { return func(c *Config) { c.Native = on } }

// WithName sets the name recorded on the mesh.
func WithName(name string) Option { return func(c *Config) { c.Name = name } }

// WithLogger sets the logger for mesh statistics.
func WithLogger(l *slog.Logger) Option { return func(c *Config) { c.Logger = l } }

// Tessellate meshes the zero level set of t inside the box [min, max].
// t may read only x, y and z. The mesh is indexed: vertices shared by
// neighbouring triangles are stored once.
func Tessellate(t *tape.Tape, min, max [3]float64, opts ...Option) (*kernel.Mesh, error) {
	cfg := Config{Cells: DefaultCells, Native: true}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.Cells < 2 {
		return nil, fmt.Errorf("tessellate: %d cells: %w", cfg.Cells, ErrBadConfig)
	}
	log := logger.Or(cfg.Logger)

	f, err := sdfx.New(t, min, max, sdfx.WithNative(cfg.Native))
	if err != nil {
		return nil, fmt.Errorf("tessellate: %w", err)
	}
	defer f.Close()

	start := time.Now()
	triangles := render.ToTriangles(f, render.NewMarchingCubesUniform(cfg.Cells))

	b := newBuilder(t)
	for _, tri := range triangles {
		var idx [3]uint32
		for j := 0; j < 3; j++ {
			idx[j] = b.vertex(tri[j])
		}
		if idx[0] == idx[1] || idx[1] == idx[2] || idx[0] == idx[2] {
			b.degenerate++
			continue
		}
		b.mesh.Indices = append(b.mesh.Indices, idx[0], idx[1], idx[2])
	}
	b.mesh.Name = cfg.Name

	log.Info("tessellate: mesh finished",
		"cells", cfg.Cells,
		"native", f.Native(),
		"triangles", b.mesh.TriangleCount(),
		"vertices", b.mesh.VertexCount(),
		"degenerate", b.degenerate,
		"elapsed", time.Since(start))
	return b.mesh, nil
}

// builder accumulates an indexed mesh.
type builder struct {
	mesh       *kernel.Mesh
	index      map[v3.Vec]uint32
	grad       *eval.GradEval
	axes       [3]int
	vars       []float64
	degenerate int
}

func newBuilder(t *tape.Tape) *builder {
	return &builder{
		mesh:  &kernel.Mesh{},
		index: make(map[v3.Vec]uint32),
		grad:  eval.NewGradEval(t),
		axes:  t.AxisIndex(),
		vars:  make([]float64, len(t.Vars())),
	}
}

// vertex returns the index of p, adding it with its normal if new.
func (b *builder) vertex(p v3.Vec) uint32 {
	if i, ok := b.index[p]; ok {
		return i
	}
	i := uint32(len(b.index))
	b.index[p] = i
	n := b.normal(p)
	b.mesh.Vertices = append(b.mesh.Vertices, float32(p.X), float32(p.Y), float32(p.Z))
	b.mesh.Normals = append(b.mesh.Normals, float32(n[0]), float32(n[1]), float32(n[2]))
	return i
}

// normal is the normalized gradient at p, or zero where the gradient
// vanishes or is not finite.
func (b *builder) normal(p v3.Vec) [3]float64 {
	for a, v := range [3]float64{p.X, p.Y, p.Z} {
		if i := b.axes[a]; i >= 0 {
			b.vars[i] = v
		}
	}
	g, err := b.grad.Eval(b.vars)
	if err != nil {
		return [3]float64{}
	}
	n := g.Normal(b.axes)
	l := math.Sqrt(n[0]*n[0] + n[1]*n[1] + n[2]*n[2])
	if l == 0 || math.IsNaN(l) || math.IsInf(l, 0) {
		return [3]float64{}
	}
	return [3]float64{n[0] / l, n[1] / l, n[2] / l}
}
