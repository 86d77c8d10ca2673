// Package render rasterizes slices of implicit surfaces. The image is cut
// into tiles rendered in parallel. Each tile is bounded with interval
// arithmetic: tiles proven outside or inside are filled at once, the rest
// are split into quadrants evaluated with a tape specialized to the tile,
// and the smallest tiles are evaluated per pixel in batches.
package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"github.com/LukeP0WERS/fidget/internal/logger"
	"github.com/LukeP0WERS/fidget/pkg/eval"
	"github.com/LukeP0WERS/fidget/pkg/graph"
	"github.com/LukeP0WERS/fidget/pkg/interval"
	"github.com/LukeP0WERS/fidget/pkg/jit"
	"github.com/LukeP0WERS/fidget/pkg/tape"
)

// ErrBadConfig is returned for unusable render settings.
var ErrBadConfig = errors.New("invalid render configuration")

// Pixel values. Points where the field is negative are inside.
const (
	Inside  = 255
	Outside = 0
)

func (c *Config) validate() error {
	switch {
	case c.Size <= 0:
		return fmt.Errorf("render: size %d: %w", c.Size, ErrBadConfig)
	case c.TileSize <= 0 || c.MinTile <= 0:
		return fmt.Errorf("render: tile sizes %d/%d: %w", c.TileSize, c.MinTile, ErrBadConfig)
	case c.Workers <= 0:
		return fmt.Errorf("render: %d workers: %w", c.Workers, ErrBadConfig)
	case c.Supersample <= 0:
		return fmt.Errorf("render: supersample %d: %w", c.Supersample, ErrBadConfig)
	}
	for _, iv := range []interval.Interval{c.Bounds.X, c.Bounds.Y} {
		if !(iv.Width() > 0) || math.IsInf(iv.Width(), 0) {
			return fmt.Errorf("render: bounds %v: %w", iv, ErrBadConfig)
		}
	}
	return nil
}

func configure(opts []Option) (Config, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return cfg, cfg.validate()
}

// tile is a half-open pixel rectangle.
type tile struct {
	x0, y0, x1, y1 int
}

func (t tile) w() int    { return t.x1 - t.x0 }
func (t tile) h() int    { return t.y1 - t.y0 }
func (t tile) area() int { return t.w() * t.h() }

func (t tile) quadrants() [4]tile {
	mx, my := t.x0+t.w()/2, t.y0+t.h()/2
	return [4]tile{
		{t.x0, t.y0, mx, my},
		{mx, t.y0, t.x1, my},
		{t.x0, my, mx, t.y1},
		{mx, my, t.x1, t.y1},
	}
}

type renderer struct {
	cfg    Config
	n      int // internal edge length
	dx, dy float64
	img    *image.Gray
	stats  collector
}

func newRenderer(cfg Config) *renderer {
	n := cfg.Size * cfg.Supersample
	return &renderer{
		cfg: cfg,
		n:   n,
		dx:  cfg.Bounds.X.Width() / float64(n),
		dy:  cfg.Bounds.Y.Width() / float64(n),
		img: image.NewGray(image.Rect(0, 0, n, n)),
	}
}

// region returns the area a tile covers. Row 0 is the top of the image.
func (r *renderer) region(t tile) (x, y interval.Interval) {
	b := r.cfg.Bounds
	x = interval.New(b.X.Lo+float64(t.x0)*r.dx, b.X.Lo+float64(t.x1)*r.dx)
	y = interval.New(b.Y.Hi-float64(t.y1)*r.dy, b.Y.Hi-float64(t.y0)*r.dy)
	return x, y
}

// center returns the sample point of a pixel.
func (r *renderer) center(px, py int) (x, y float64) {
	b := r.cfg.Bounds
	return b.X.Lo + (float64(px)+0.5)*r.dx, b.Y.Hi - (float64(py)+0.5)*r.dy
}

func (r *renderer) fill(t tile, v uint8) {
	for py := t.y0; py < t.y1; py++ {
		row := r.img.Pix[py*r.img.Stride:]
		for px := t.x0; px < t.x1; px++ {
			row[px] = v
		}
	}
}

// columns binds the pixel centers of a tile as batch input for tp.
func (r *renderer) columns(tp *tape.Tape, t tile) ([][]float64, error) {
	n := t.area()
	axes := [3][]float64{make([]float64, 0, n), make([]float64, 0, n), make([]float64, n)}
	for py := t.y0; py < t.y1; py++ {
		for px := t.x0; px < t.x1; px++ {
			x, y := r.center(px, py)
			axes[0] = append(axes[0], x)
			axes[1] = append(axes[1], y)
		}
	}
	for k := range axes[2] {
		axes[2][k] = r.cfg.Z
	}
	vars := tp.Vars()
	cols := make([][]float64, len(vars))
	for i, v := range vars {
		if v.ID > graph.VarZ {
			return nil, fmt.Errorf("render: variable %q is not an axis: %w", v.Name, eval.ErrMissingVar)
		}
		cols[i] = axes[v.ID]
	}
	return cols, nil
}

func (r *renderer) store(t tile, out []float64) {
	k := 0
	for py := t.y0; py < t.y1; py++ {
		row := r.img.Pix[py*r.img.Stride:]
		for px := t.x0; px < t.x1; px++ {
			if out[k] < 0 {
				row[px] = Inside
			} else {
				row[px] = Outside
			}
			k++
		}
	}
}

func (r *renderer) pixels(tp *tape.Tape, t tile) error {
	cols, err := r.columns(tp, t)
	if err != nil {
		return err
	}
	out := make([]float64, t.area())
	if err := eval.NewBatchEval(tp).Eval(cols, out); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	r.store(t, out)
	return nil
}

// tile renders one tile with tp, which is valid at least over the tile.
func (r *renderer) tile(ctx context.Context, tp *tape.Tape, t tile, depth int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	x, y := r.region(t)
	vars, err := eval.BindRegion(tp, x, y, interval.Point(r.cfg.Z))
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	ie := eval.NewIntervalEval(tp)
	b, err := ie.Eval(vars)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	switch empty, full := eval.Classify(b); {
	case empty:
		r.fill(t, Outside)
		r.stats.visit(depth, tp.Len(), outcomeEmpty, 0)
		return nil
	case full:
		r.fill(t, Inside)
		r.stats.visit(depth, tp.Len(), outcomeFull, 0)
		return nil
	}

	next, err := ie.Simplify()
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if t.w() <= r.cfg.MinTile || t.h() <= r.cfg.MinTile {
		r.stats.visit(depth, tp.Len(), outcomeLeaf, t.area())
		return r.pixels(next, t)
	}
	r.stats.visit(depth, tp.Len(), outcomeSplit, 0)
	for _, q := range t.quadrants() {
		if err := r.tile(ctx, next, q, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// finish downscales a supersampled image to the output size.
func (r *renderer) finish() *image.Gray {
	if r.cfg.Supersample == 1 {
		return r.img
	}
	out := image.NewGray(image.Rect(0, 0, r.cfg.Size, r.cfg.Size))
	xdraw.CatmullRom.Scale(out, out.Bounds(), r.img, r.img.Bounds(), xdraw.Src, nil)
	return out
}

// Render draws the slice z = Z of the shape t describes. Pixels where the
// field is negative are Inside.
func Render(ctx context.Context, tp *tape.Tape, opts ...Option) (*image.Gray, *Stats, error) {
	cfg, err := configure(opts)
	if err != nil {
		return nil, nil, err
	}
	log := logger.Or(cfg.Logger)
	r := newRenderer(cfg)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for y := 0; y < r.n; y += cfg.TileSize {
		for x := 0; x < r.n; x += cfg.TileSize {
			t := tile{x, y, min(x+cfg.TileSize, r.n), min(y+cfg.TileSize, r.n)}
			g.Go(func() error { return r.tile(gctx, tp, t, 0) })
		}
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	stats := r.stats.stats()
	log.Info("render: finished", "size", cfg.Size, "tape", tp.Len(),
		"points", stats.Points, "depth", len(stats.Levels))
	for d, l := range stats.Levels {
		log.Debug("render: level", "depth", d, "tiles", l.Tiles, "empty", l.Empty,
			"full", l.Full, "leaves", l.Leaves, "min_tape", l.MinLen, "max_tape", l.MaxLen)
	}
	return r.finish(), stats, nil
}

// Brute draws the same image as Render by evaluating every pixel with the
// full tape, using native code when the host supports it.
func Brute(tp *tape.Tape, opts ...Option) (*image.Gray, error) {
	cfg, err := configure(opts)
	if err != nil {
		return nil, err
	}
	r := newRenderer(cfg)
	all := tile{0, 0, r.n, r.n}
	cols, err := r.columns(tp, all)
	if err != nil {
		return nil, err
	}
	out := make([]float64, all.area())

	f, err := jit.Compile(tp, jit.HostArch())
	switch {
	case err == nil:
		defer f.Close()
		err = f.EvalBatch(cols, out)
	case errors.Is(err, jit.ErrUnsupported):
		logger.Or(cfg.Logger).Debug("render: interpreting tape", "reason", err)
		err = eval.NewBatchEval(tp).Eval(cols, out)
	}
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	r.store(all, out)
	return r.finish(), nil
}
