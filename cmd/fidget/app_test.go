package main

import (
	"fmt"
	"os"
	"strings"
	"testing"
)

func newTestApp() *App { return NewApp(16, 2) }

// TestE2EPairExample exercises the full pipeline: script → engine → graph
// → tape → meshes, the same path `mesh --json` takes.
func TestE2EPairExample(t *testing.T) {
	app := newTestApp()

	source, err := os.ReadFile("../../examples/pair.fidget")
	if err != nil {
		t.Fatalf("failed to read pair.fidget: %v", err)
	}

	result := app.Evaluate(string(source))
	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			t.Errorf("eval error (line %d): %s", e.Line, e.Message)
		}
		t.FailNow()
	}

	if len(result.Meshes) != 2 {
		t.Fatalf("expected 2 meshes, got %d", len(result.Meshes))
	}
	for i, m := range result.Meshes {
		if want := "shape-" + string(rune('0'+i)); m.Name != want {
			t.Errorf("mesh %d: name %q, want %q", i, m.Name, want)
		}
		if len(m.Vertices) == 0 || len(m.Normals) == 0 || len(m.Indices) == 0 {
			t.Errorf("mesh %q: empty geometry", m.Name)
		}
		if m.Color == "" {
			t.Errorf("mesh %q: no color assigned", m.Name)
		}
	}
	if result.Meshes[0].Color == result.Meshes[1].Color {
		t.Error("neighbouring meshes share a color")
	}
}

func TestE2EExamplesRun(t *testing.T) {
	for _, name := range []string{"circles", "hollow", "pair"} {
		t.Run(name, func(t *testing.T) {
			src, err := os.ReadFile("../../examples/" + name + ".fidget")
			if err != nil {
				t.Fatal(err)
			}
			result := newTestApp().Evaluate(string(src))
			if len(result.Errors) > 0 {
				t.Fatalf("errors: %v", result.Errors)
			}
			if len(result.Meshes) == 0 {
				t.Fatal("no meshes")
			}
		})
	}
}

// TestE2EEmptySource ensures the pipeline handles empty input gracefully.
func TestE2EEmptySource(t *testing.T) {
	for _, src := range []string{"", "   \n\t ", ";; just a comment\n; another"} {
		result := newTestApp().Evaluate(src)
		if len(result.Errors) > 0 {
			t.Errorf("unexpected errors for %q: %v", src, result.Errors)
		}
		if len(result.Meshes) != 0 {
			t.Errorf("expected 0 meshes for %q, got %d", src, len(result.Meshes))
		}
	}
}

// TestE2ESyntaxError ensures eval errors are reported, not fatal errors.
func TestE2ESyntaxError(t *testing.T) {
	result := newTestApp().Evaluate("(draw (sphere 1)")

	if len(result.Errors) == 0 {
		t.Fatal("expected eval errors for syntax error")
	}
	if result.Errors[0].Message == "" {
		t.Error("error message should not be empty")
	}
	if len(result.Meshes) != 0 {
		t.Errorf("expected 0 meshes on error, got %d", len(result.Meshes))
	}
}

func TestE2EBuiltinError(t *testing.T) {
	result := newTestApp().Evaluate(`(draw (scale (sphere 1) 0 1 1))`)
	if len(result.Errors) == 0 {
		t.Fatal("expected an error for a zero scale")
	}
	if !strings.Contains(result.Errors[0].Message, "scale") {
		t.Errorf("error %q does not mention scale", result.Errors[0].Message)
	}
}

func TestE2EWarnings(t *testing.T) {
	result := newTestApp().Evaluate(`(draw (max (sphere 1) (sqrt (constant -1))))`)
	if len(result.Errors) > 0 {
		t.Fatalf("errors: %v", result.Errors)
	}
	if len(result.Warnings) == 0 {
		t.Error("expected a warning for the square root of a negative constant")
	}
}

func TestE2ERapidEvaluationAlternating(t *testing.T) {
	// Alternates between valid and invalid sources so the engine recovers
	// cleanly between error and success states.
	app := newTestApp()
	sources := []string{
		`(draw (sphere 1))`,
		`(draw (sphere`,
		``,
		`(undefined-func 1 2 3)`,
		`(+ 1 2)`,
		`(draw (box))`,
	}
	want := []int{1, 0, 0, 0, 0, 1}
	for i, source := range sources {
		result := app.Evaluate(source)
		if len(result.Meshes) != want[i] {
			t.Errorf("source %q: %d meshes, want %d", source, len(result.Meshes), want[i])
		}
	}
}

func TestE2EColorPaletteWrapping(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < len(colorPalette)+1; i++ {
		// Distinct radii so hash-consing keeps every shape.
		fmt.Fprintf(&sb, "(draw (sphere %g))\n", 0.1*float64(i+1))
	}
	result := NewApp(8, 1).Evaluate(sb.String())
	if len(result.Errors) > 0 {
		t.Fatalf("errors: %v", result.Errors)
	}
	n := len(colorPalette) + 1
	if len(result.Meshes) != n {
		t.Fatalf("expected %d meshes, got %d", n, len(result.Meshes))
	}
	if result.Meshes[n-1].Color != result.Meshes[0].Color {
		t.Errorf("palette did not wrap: %q vs %q", result.Meshes[n-1].Color, result.Meshes[0].Color)
	}
}
