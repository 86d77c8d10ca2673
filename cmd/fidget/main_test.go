package main

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/LukeP0WERS/fidget/internal/logger"
)

// run executes the CLI with args and returns what it printed.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() { logger.SetLogger(nil) })
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRenderCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "circles.png")
	if _, err := run(t, "render", "../../examples/circles.fidget", "-o", path, "--size", "64"); err != nil {
		t.Fatalf("render: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 64 {
		t.Errorf("image is %dx%d, want 64x64", b.Dx(), b.Dy())
	}
}

func TestMeshCommand(t *testing.T) {
	dir := t.TempDir()
	stl := filepath.Join(dir, "hollow.stl")
	if _, err := run(t, "mesh", "../../examples/hollow.fidget", "-o", stl, "--cells", "16", "--bounds", "1.5"); err != nil {
		t.Fatalf("mesh: %v", err)
	}
	data, err := os.ReadFile(stl)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) <= 84 || (len(data)-84)%50 != 0 {
		t.Errorf("STL is %d bytes, not a whole number of facets", len(data))
	}

	js := filepath.Join(dir, "pair.json")
	if _, err := run(t, "mesh", "../../examples/pair.fidget", "--json", "-o", js, "--cells", "16"); err != nil {
		t.Fatalf("mesh --json: %v", err)
	}
	data, err = os.ReadFile(js)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"shape-1"`) {
		t.Error("JSON output lacks the second shape")
	}
}

func TestTapeCommand(t *testing.T) {
	out, err := run(t, "tape", "../../examples/circles.fidget")
	if err != nil {
		t.Fatalf("tape: %v", err)
	}
	for _, want := range []string{"= min", "root $", "; native"} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}
}

func TestCommandErrors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.fidget")
	broken := filepath.Join(dir, "broken.fidget")
	if err := os.WriteFile(empty, []byte("(+ 1 2)"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(broken, []byte("(draw (sphere"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no shapes", []string{"tape", empty}, "drew nothing"},
		{"syntax", []string{"tape", broken}, broken},
		{"missing file", []string{"tape", filepath.Join(dir, "nope")}, "nope"},
		{"no args", []string{"render"}, "arg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}
