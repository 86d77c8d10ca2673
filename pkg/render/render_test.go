package render

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/LukeP0WERS/fidget/pkg/eval"
	"github.com/LukeP0WERS/fidget/pkg/graph"
	"github.com/LukeP0WERS/fidget/pkg/interval"
	"github.com/LukeP0WERS/fidget/pkg/tape"
)

func compile(t *testing.T, build func(c *graph.Context) (graph.NodeID, error)) *tape.Tape {
	t.Helper()
	ctx := graph.New()
	root, err := build(ctx)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	tp, err := tape.Compile(ctx, root)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return tp
}

func circles(c *graph.Context) (graph.NodeID, error) {
	a, _ := c.Circle(-0.4, 0, 0.3)
	b, _ := c.Circle(0.4, 0.2, 0.35)
	return c.Union(a, b)
}

func countInside(pix []uint8) int {
	n := 0
	for _, p := range pix {
		if p == Inside {
			n++
		}
	}
	return n
}

func TestRenderMatchesBrute(t *testing.T) {
	tests := []struct {
		name  string
		build func(c *graph.Context) (graph.NodeID, error)
	}{
		{"circle", func(c *graph.Context) (graph.NodeID, error) { return c.Circle(0, 0, 0.5) }},
		{"union", circles},
		{"difference", func(c *graph.Context) (graph.NodeID, error) {
			a, _ := c.Rectangle([2]float64{-0.8, -0.6}, [2]float64{0.8, 0.6})
			b, _ := c.Circle(0.1, 0, 0.4)
			return c.Difference(a, b)
		}},
		{"rotated", func(c *graph.Context) (graph.NodeID, error) {
			a, _ := c.Rectangle([2]float64{-0.7, -0.1}, [2]float64{0.7, 0.1})
			return c.RotateZ(a, 0.6)
		}},
		{"transcendental", func(c *graph.Context) (graph.NodeID, error) {
			x, y, _ := c.Axes()
			s, _ := c.Sin(x)
			m, _ := c.Mul(s, c.Constant(0.5))
			return c.Sub(y, m)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp := compile(t, tt.build)
			opts := []Option{WithSize(64), WithTileSize(16, 2), WithBounds(Region{
				X: interval.New(-1, 1), Y: interval.New(-1, 1),
			})}
			got, stats, err := Render(context.Background(), tp, opts...)
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			want, err := Brute(tp, opts...)
			if err != nil {
				t.Fatalf("Brute: %v", err)
			}
			if diff := cmp.Diff(want.Pix, got.Pix); diff != "" {
				t.Errorf("quadtree image differs from brute force (-want +got):\n%s", diff)
			}
			if stats.Points >= 64*64 {
				t.Errorf("evaluated %d points, want fewer than %d", stats.Points, 64*64)
			}
		})
	}
}

func TestRenderCircle(t *testing.T) {
	tp := compile(t, func(c *graph.Context) (graph.NodeID, error) { return c.Circle(0, 0, 0.5) })
	img, _, err := Render(context.Background(), tp, WithSize(32), WithTileSize(8, 2))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got := img.GrayAt(16, 16).Y; got != Inside {
		t.Errorf("center pixel = %d, want Inside", got)
	}
	if got := img.GrayAt(0, 0).Y; got != Outside {
		t.Errorf("corner pixel = %d, want Outside", got)
	}
}

func TestRenderTapeShrinks(t *testing.T) {
	tp := compile(t, circles)
	_, stats, err := Render(context.Background(), tp, WithSize(64), WithTileSize(32, 4))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(stats.Levels) < 2 {
		t.Fatalf("expected subdivision, got %d levels", len(stats.Levels))
	}
	if got := stats.Levels[0].MaxLen; got != tp.Len() {
		t.Errorf("root tiles used tape of length %d, want %d", got, tp.Len())
	}
	for d := 1; d < len(stats.Levels); d++ {
		if stats.Levels[d].MaxLen > stats.Levels[d-1].MaxLen {
			t.Errorf("depth %d max tape %d exceeds depth %d max %d",
				d, stats.Levels[d].MaxLen, d-1, stats.Levels[d-1].MaxLen)
		}
	}
	last := stats.Levels[len(stats.Levels)-1]
	if last.MinLen >= tp.Len() {
		t.Errorf("deepest tiles never specialized: min tape %d, root %d", last.MinLen, tp.Len())
	}
	if stats.String() == "" {
		t.Error("empty stats report")
	}
}

func TestRenderDeterministic(t *testing.T) {
	tp := compile(t, circles)
	one, _, err := Render(context.Background(), tp, WithSize(48), WithTileSize(16, 4), WithWorkers(1))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	many, _, err := Render(context.Background(), tp, WithSize(48), WithTileSize(16, 4), WithWorkers(8))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if diff := cmp.Diff(one.Pix, many.Pix); diff != "" {
		t.Errorf("images differ by worker count (-1 worker +8 workers):\n%s", diff)
	}
}

func TestRenderSupersample(t *testing.T) {
	tp := compile(t, func(c *graph.Context) (graph.NodeID, error) { return c.Circle(0, 0, 0.5) })
	img, _, err := Render(context.Background(), tp, WithSize(16), WithSupersample(4))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got := img.Bounds().Dx(); got != 16 {
		t.Fatalf("width = %d, want 16", got)
	}
	if got := img.GrayAt(8, 8).Y; got < Inside-4 {
		t.Errorf("center pixel = %d, want about %d", got, Inside)
	}
	edge := 0
	for _, p := range img.Pix {
		if p != Inside && p != Outside {
			edge++
		}
	}
	if edge == 0 {
		t.Error("supersampled image has no antialiased pixels")
	}
}

func TestRenderSlice(t *testing.T) {
	tp := compile(t, func(c *graph.Context) (graph.NodeID, error) { return c.Sphere(0, 0, 0, 0.8) })
	mid, _, err := Render(context.Background(), tp, WithSize(32))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	top, _, err := Render(context.Background(), tp, WithSize(32), WithZ(0.7))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if m, k := countInside(mid.Pix), countInside(top.Pix); k == 0 || k >= m {
		t.Errorf("inside pixels: z=0 %d, z=0.7 %d; want 0 < z=0.7 < z=0", m, k)
	}
}

func TestRenderErrors(t *testing.T) {
	circle := compile(t, func(c *graph.Context) (graph.NodeID, error) { return c.Circle(0, 0, 0.5) })
	withVar := compile(t, func(c *graph.Context) (graph.NodeID, error) {
		r, _ := c.Var("r")
		return c.Sub(c.X(), r)
	})

	tests := []struct {
		name string
		tp   *tape.Tape
		opts []Option
		want error
	}{
		{"zero size", circle, []Option{WithSize(0)}, ErrBadConfig},
		{"zero tiles", circle, []Option{WithTileSize(0, 0)}, ErrBadConfig},
		{"no workers", circle, []Option{WithWorkers(0)}, ErrBadConfig},
		{"no supersample", circle, []Option{WithSupersample(0)}, ErrBadConfig},
		{"empty bounds", circle, []Option{WithBounds(Region{X: interval.Point(0), Y: interval.New(-1, 1)})}, ErrBadConfig},
		{"named variable", withVar, nil, eval.ErrMissingVar},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := Render(context.Background(), tt.tp, tt.opts...); !errors.Is(err, tt.want) {
				t.Errorf("Render error = %v, want %v", err, tt.want)
			}
			if _, err := Brute(tt.tp, tt.opts...); !errors.Is(err, tt.want) {
				t.Errorf("Brute error = %v, want %v", err, tt.want)
			}
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := Render(ctx, circle); !errors.Is(err, context.Canceled) {
		t.Errorf("Render with cancelled context: error = %v, want context.Canceled", err)
	}
}
