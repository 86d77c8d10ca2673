package main

import (
	"fmt"

	"github.com/LukeP0WERS/fidget/internal/logger"
	"github.com/LukeP0WERS/fidget/pkg/engine"
	"github.com/LukeP0WERS/fidget/pkg/graph"
	"github.com/LukeP0WERS/fidget/pkg/kernel"
	"github.com/LukeP0WERS/fidget/pkg/kernel/implicit"
	"github.com/LukeP0WERS/fidget/pkg/tessellate"
)

// colorPalette is a default palette used to assign distinct colors to shapes.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// App runs scripts and meshes what they draw.
type App struct {
	engine *engine.Engine
	cells  int
	bounds float64 // meshes cover [-bounds, bounds]³
}

// MeshData is the JSON-serializable mesh format written by `mesh --json`.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	Name     string    `json:"name"`
	Color    string    `json:"color"`
}

// EvalErrorData is a JSON-serializable eval error.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is the full result of running a script.
type EvalResult struct {
	Meshes   []MeshData      `json:"meshes"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`
}

// NewApp creates an App meshing at the given resolution and extent.
func NewApp(cells int, bounds float64) *App {
	return &App{
		engine: engine.NewEngine(),
		cells:  cells,
		bounds: bounds,
	}
}

// Evaluate runs source and returns one mesh per drawn shape.
func (a *App) Evaluate(source string) EvalResult {
	result := EvalResult{
		Meshes:   []MeshData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}
	log := logger.Get()

	res, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		log.Error("evaluate: fatal", "err", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return result
	}
	for _, w := range res.Warnings {
		result.Warnings = append(result.Warnings, EvalErrorData{
			Message: fmt.Sprintf("node %d: %s", w.NodeID, w.Message),
		})
	}

	for i, root := range res.Shapes {
		name := fmt.Sprintf("shape-%d", i)
		m, err := a.mesh(res, root, name)
		if err != nil {
			log.Error("mesh failed", "shape", name, "err", err)
			result.Errors = append(result.Errors, EvalErrorData{
				Message: fmt.Sprintf("%s: meshing failed: %v", name, err),
			})
			continue
		}
		result.Meshes = append(result.Meshes, MeshData{
			Vertices: m.Vertices,
			Normals:  m.Normals,
			Indices:  m.Indices,
			Name:     m.Name,
			Color:    colorPalette[i%len(colorPalette)],
		})
	}
	return result
}

// mesh tessellates one drawn shape over the App's cube. Each shape gets its
// own kernel so a failure stays with that shape.
func (a *App) mesh(res *engine.Result, root graph.NodeID, name string) (*kernel.Mesh, error) {
	k := implicit.NewWithContext(res.Context, tessellate.WithCells(a.cells), tessellate.WithName(name))
	b := a.bounds
	return k.ToMesh(k.Wrap(root, [3]float64{-b, -b, -b}, [3]float64{b, b, b}))
}
