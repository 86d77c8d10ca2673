package tessellate

import (
	"fmt"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/LukeP0WERS/fidget/pkg/kernel"
)

// Triangles expands the indexed mesh into sdfx triangles, one per index
// triple, in index order.
func Triangles(m *kernel.Mesh) []*sdf.Triangle3 {
	tris := make([]*sdf.Triangle3, m.TriangleCount())
	for t := range tris {
		tri := &sdf.Triangle3{}
		for j := 0; j < 3; j++ {
			i := m.Indices[3*t+j]
			tri[j] = v3.Vec{
				X: float64(m.Vertices[3*i]),
				Y: float64(m.Vertices[3*i+1]),
				Z: float64(m.Vertices[3*i+2]),
			}
		}
		tris[t] = tri
	}
	return tris
}

// SaveSTL writes m to the file at path as binary STL. Facet normals come
// from the triangle winding.
func SaveSTL(path string, m *kernel.Mesh) error {
	if err := render.SaveSTL(path, Triangles(m)); err != nil {
		return fmt.Errorf("tessellate: stl %s: %w", path, err)
	}
	return nil
}
