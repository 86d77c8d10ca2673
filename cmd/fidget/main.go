// Command fidget runs shape scripts and renders or meshes the result.
//
//	fidget render examples/circles.fidget -o circles.png --size 512
//	fidget mesh examples/hollow.fidget -o hollow.stl --cells 96 --bounds 2
//	fidget tape examples/circles.fidget
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/LukeP0WERS/fidget/internal/logger"
	"github.com/LukeP0WERS/fidget/pkg/engine"
	"github.com/LukeP0WERS/fidget/pkg/graph"
	"github.com/LukeP0WERS/fidget/pkg/interval"
	"github.com/LukeP0WERS/fidget/pkg/jit"
	"github.com/LukeP0WERS/fidget/pkg/render"
	"github.com/LukeP0WERS/fidget/pkg/tape"
	"github.com/LukeP0WERS/fidget/pkg/tessellate"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:           "fidget",
		Short:         "Render and mesh implicit surfaces described by scripts",
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			h := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})
			logger.SetLogger(slog.New(h))
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output")
	root.AddCommand(newRenderCmd(), newMeshCmd(), newTapeCmd())
	return root
}

// load runs the script at path and compiles the union of what it drew.
func load(path string) (*engine.Result, *tape.Tape, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	res, evalErrs, err := engine.NewEngine().Evaluate(string(src))
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(evalErrs) > 0 {
		errs := make([]error, len(evalErrs))
		for i, e := range evalErrs {
			errs[i] = fmt.Errorf("%s: %w", path, e)
		}
		return nil, nil, errors.Join(errs...)
	}
	for _, w := range res.Warnings {
		logger.Get().Warn(w.Message, "script", path, "node", w.NodeID)
	}
	if len(res.Shapes) == 0 {
		return nil, nil, fmt.Errorf("%s: script drew nothing", path)
	}
	root, err := res.Context.Union(res.Shapes...)
	if err != nil {
		return nil, nil, err
	}
	t, err := tape.Compile(res.Context, root)
	if err != nil {
		return nil, nil, err
	}
	return res, t, nil
}

func create(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func newRenderCmd() *cobra.Command {
	var (
		out         string
		size        int
		bounds      float64
		z           float64
		supersample int
		workers     int
	)
	cmd := &cobra.Command{
		Use:   "render SCRIPT",
		Short: "Render a z slice of the script's shapes to a PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, t, err := load(args[0])
			if err != nil {
				return err
			}
			opts := []render.Option{
				render.WithSize(size),
				render.WithBounds(render.Region{
					X: interval.New(-bounds, bounds),
					Y: interval.New(-bounds, bounds),
				}),
				render.WithZ(z),
				render.WithSupersample(supersample),
			}
			if workers > 0 {
				opts = append(opts, render.WithWorkers(workers))
			}
			img, stats, err := render.Render(cmd.Context(), t, opts...)
			if err != nil {
				return err
			}
			logger.Get().Debug("render: tiles", "stats", stats.String())
			return create(out, func(w io.Writer) error { return png.Encode(w, img) })
		},
	}
	f := cmd.Flags()
	f.StringVarP(&out, "output", "o", "out.png", "output PNG path")
	f.IntVar(&size, "size", render.DefaultSize, "image edge length in pixels")
	f.Float64Var(&bounds, "bounds", 1, "render the square [-bounds, bounds]²")
	f.Float64Var(&z, "z", 0, "z of the rendered slice")
	f.IntVar(&supersample, "supersample", render.DefaultSupersample, "samples per pixel along each axis")
	f.IntVar(&workers, "workers", 0, "tiles rendered at once (0 for one per CPU)")
	return cmd
}

func newMeshCmd() *cobra.Command {
	var (
		out    string
		cells  int
		bounds float64
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "mesh SCRIPT",
		Short: "Mesh the script's shapes to STL, or to JSON with one mesh per shape",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if asJSON {
				src, err := os.ReadFile(args[0])
				if err != nil {
					return err
				}
				result := NewApp(cells, bounds).Evaluate(string(src))
				return create(out, func(w io.Writer) error {
					enc := json.NewEncoder(w)
					enc.SetIndent("", "  ")
					return enc.Encode(result)
				})
			}
			_, t, err := load(args[0])
			if err != nil {
				return err
			}
			m, err := tessellate.Tessellate(t,
				[3]float64{-bounds, -bounds, -bounds}, [3]float64{bounds, bounds, bounds},
				tessellate.WithCells(cells))
			if err != nil {
				return err
			}
			return tessellate.SaveSTL(out, m)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&out, "output", "o", "out.stl", "output path")
	f.IntVar(&cells, "cells", tessellate.DefaultCells, "marching cubes cells along each axis")
	f.Float64Var(&bounds, "bounds", 2, "mesh the cube [-bounds, bounds]³")
	f.BoolVar(&asJSON, "json", false, "write per-shape meshes as JSON")
	return cmd
}

func newTapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tape SCRIPT",
		Short: "Print the compiled tape and native code statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, t, err := load(args[0])
			if err != nil {
				return err
			}
			return printTape(cmd.OutOrStdout(), res.Context, t)
		},
	}
}

func printTape(w io.Writer, ctx *graph.Context, t *tape.Tape) error {
	fmt.Fprintf(w, "; %d nodes, %d records, %d choices\n", ctx.Len(), t.Len(), t.ChoiceCount())
	fmt.Fprint(w, t.String())

	arch := jit.HostArch()
	fn, err := jit.Compile(t, arch)
	if errors.Is(err, jit.ErrUnsupported) {
		fmt.Fprintf(w, "; native: %v\n", err)
		return nil
	}
	if err != nil {
		return err
	}
	defer fn.Close()
	info := fn.Info()
	_, err = fmt.Fprintf(w, "; native %s: value %d bytes, gradient %d bytes, %d spill slots\n",
		arch, info.ValueBytes, info.GradBytes, info.Spills)
	return err
}
